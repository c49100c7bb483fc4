package services

import (
	"errors"
	"fmt"
	"time"
	"tripsynth/internal/domain"

	"github.com/shopspring/decimal"
)

// PlannerOptions tunes the feasibility engine, assembler and resolver.
type PlannerOptions struct {
	DayStart domain.TimeOfDay
	DayEnd   domain.TimeOfDay

	// EXTEND_HOURS widens both ends of the day by ExtendStep at a time, up to ExtendCap.
	ExtendStep time.Duration
	ExtendCap  time.Duration

	// BudgetOverflowPct is the percentage a single day (or the lodging) may exceed its share.
	BudgetOverflowPct decimal.Decimal

	PrimaryMode     domain.TravelMode
	SubstituteModes []domain.TravelMode

	// Provider call policy.
	Concurrency  int
	CallTimeout  time.Duration
	Retries      int
	RetryBackoff time.Duration

	// Scoring.
	TravelPenaltyPerMinute float64
	LookaheadWeight        float64
	LookaheadWidth         int

	DefaultVisitDuration time.Duration
	// LodgingBudgetShare is the fraction of the budget a lodging may take before
	// cheaper listings are preferred over better rated ones.
	LodgingBudgetShare decimal.Decimal
}

func DefaultPlannerOptions() PlannerOptions {
	return PlannerOptions{
		DayStart:               domain.NewTimeOfDay(9, 0),
		DayEnd:                 domain.NewTimeOfDay(21, 0),
		ExtendStep:             30 * time.Minute,
		ExtendCap:              2 * time.Hour,
		BudgetOverflowPct:      decimal.NewFromInt(15),
		PrimaryMode:            domain.ModeDrive,
		SubstituteModes:        []domain.TravelMode{domain.ModeTransit, domain.ModeWalk},
		Concurrency:            8,
		CallTimeout:            10 * time.Second,
		Retries:                1,
		RetryBackoff:           500 * time.Millisecond,
		TravelPenaltyPerMinute: 0.1,
		LookaheadWeight:        0.5,
		LookaheadWidth:         3,
		DefaultVisitDuration:   90 * time.Minute,
		LodgingBudgetShare:     decimal.NewFromFloat(0.7),
	}
}

func (o PlannerOptions) Validate() error {
	var errs []error
	if o.DayEnd <= o.DayStart {
		errs = append(errs, fmt.Errorf("day end %s must be after day start %s", o.DayEnd, o.DayStart))
	}
	if o.ExtendStep <= 0 || o.ExtendCap < o.ExtendStep {
		errs = append(errs, fmt.Errorf("extend step %s must be positive and not above cap %s", o.ExtendStep, o.ExtendCap))
	}
	if o.BudgetOverflowPct.IsNegative() {
		errs = append(errs, errors.New("budget overflow percentage must not be negative"))
	}
	if o.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be at least 1"))
	}
	if o.CallTimeout <= 0 {
		errs = append(errs, errors.New("call timeout must be positive"))
	}
	if o.Retries < 0 {
		errs = append(errs, errors.New("retries must not be negative"))
	}
	if o.RetryBackoff <= 0 {
		errs = append(errs, errors.New("retry backoff must be positive"))
	}
	if o.LookaheadWidth < 0 {
		errs = append(errs, errors.New("lookahead width must not be negative"))
	}
	if o.DefaultVisitDuration <= 0 {
		errs = append(errs, errors.New("default visit duration must be positive"))
	}
	if _, err := domain.ParseTravelMode(string(o.PrimaryMode)); err != nil {
		errs = append(errs, err)
	}
	for _, m := range o.SubstituteModes {
		if _, err := domain.ParseTravelMode(string(m)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: planner options: %w", domain.ErrValidation, err)
	}
	return nil
}

// overflowFactor is 1 + BudgetOverflowPct/100.
func (o PlannerOptions) overflowFactor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(o.BudgetOverflowPct.Div(decimal.NewFromInt(100)))
}

func (o PlannerOptions) allModes() []domain.TravelMode {
	out := []domain.TravelMode{o.PrimaryMode}
	for _, m := range o.SubstituteModes {
		if m != o.PrimaryMode {
			out = append(out, m)
		}
	}
	return out
}
