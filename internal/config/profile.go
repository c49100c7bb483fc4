package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/services"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// profile mirrors services.PlannerOptions in YAML. Absent keys keep the base value.
type profile struct {
	DayStart               *string  `yaml:"day_start"`
	DayEnd                 *string  `yaml:"day_end"`
	ExtendStep             *string  `yaml:"extend_step"`
	ExtendCap              *string  `yaml:"extend_cap"`
	BudgetOverflowPct      *float64 `yaml:"budget_overflow_pct"`
	PrimaryMode            *string  `yaml:"primary_mode"`
	SubstituteModes        []string `yaml:"substitute_modes"`
	Concurrency            *int     `yaml:"concurrency"`
	CallTimeout            *string  `yaml:"call_timeout"`
	Retries                *int     `yaml:"retries"`
	RetryBackoff           *string  `yaml:"retry_backoff"`
	TravelPenaltyPerMinute *float64 `yaml:"travel_penalty_per_minute"`
	LookaheadWeight        *float64 `yaml:"lookahead_weight"`
	LookaheadWidth         *int     `yaml:"lookahead_width"`
	DefaultVisitDuration   *string  `yaml:"default_visit_duration"`
	LodgingBudgetShare     *float64 `yaml:"lodging_budget_share"`
}

// LoadProfile reads a YAML planner profile from path and applies it on top of base.
func LoadProfile(path string, base services.PlannerOptions) (services.PlannerOptions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("load planner profile %q: %w", path, err)
	}
	var p profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return base, fmt.Errorf("load planner profile %q: parse yaml: %w", path, err)
	}
	opts, err := p.apply(base)
	if err != nil {
		return base, fmt.Errorf("load planner profile %q: %w", path, err)
	}
	return opts, nil
}

func (p profile) apply(o services.PlannerOptions) (services.PlannerOptions, error) {
	var errs []error
	clock := func(dst *domain.TimeOfDay, raw *string) {
		if raw == nil {
			return
		}
		v, err := domain.ParseTimeOfDay(*raw)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = v
	}
	duration := func(dst *time.Duration, name string, raw *string) {
		if raw == nil {
			return
		}
		v, err := time.ParseDuration(*raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a duration", name, *raw))
			return
		}
		*dst = v
	}

	clock(&o.DayStart, p.DayStart)
	clock(&o.DayEnd, p.DayEnd)
	duration(&o.ExtendStep, "extend_step", p.ExtendStep)
	duration(&o.ExtendCap, "extend_cap", p.ExtendCap)
	duration(&o.CallTimeout, "call_timeout", p.CallTimeout)
	duration(&o.RetryBackoff, "retry_backoff", p.RetryBackoff)
	duration(&o.DefaultVisitDuration, "default_visit_duration", p.DefaultVisitDuration)

	if p.BudgetOverflowPct != nil {
		o.BudgetOverflowPct = decimal.NewFromFloat(*p.BudgetOverflowPct)
	}
	if p.LodgingBudgetShare != nil {
		o.LodgingBudgetShare = decimal.NewFromFloat(*p.LodgingBudgetShare)
	}
	if p.PrimaryMode != nil {
		m, err := domain.ParseTravelMode(*p.PrimaryMode)
		if err != nil {
			errs = append(errs, err)
		} else {
			o.PrimaryMode = m
		}
	}
	if p.SubstituteModes != nil {
		modes := make([]domain.TravelMode, 0, len(p.SubstituteModes))
		for _, raw := range p.SubstituteModes {
			m, err := domain.ParseTravelMode(raw)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			modes = append(modes, m)
		}
		o.SubstituteModes = modes
	}
	if p.Concurrency != nil {
		o.Concurrency = *p.Concurrency
	}
	if p.Retries != nil {
		o.Retries = *p.Retries
	}
	if p.TravelPenaltyPerMinute != nil {
		o.TravelPenaltyPerMinute = *p.TravelPenaltyPerMinute
	}
	if p.LookaheadWeight != nil {
		o.LookaheadWeight = *p.LookaheadWeight
	}
	if p.LookaheadWidth != nil {
		o.LookaheadWidth = *p.LookaheadWidth
	}

	if len(errs) > 0 {
		return o, errors.Join(errs...)
	}
	return o, nil
}
