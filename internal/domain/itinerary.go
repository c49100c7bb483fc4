package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FailureReason explains why a day could not be filled.
type FailureReason string

const (
	ReasonBudgetExceeded   FailureReason = "BUDGET_EXCEEDED"
	ReasonNoOpenCandidates FailureReason = "NO_OPEN_CANDIDATES"
	ReasonUnreachable      FailureReason = "UNREACHABLE"
)

// RelaxationLevel names a constraint relaxation, in the order they are tried.
type RelaxationLevel string

const (
	LevelExtendHours         RelaxationLevel = "EXTEND_HOURS"
	LevelAllowBudgetOverflow RelaxationLevel = "ALLOW_BUDGET_OVERFLOW"
	LevelSubstituteMode      RelaxationLevel = "SUBSTITUTE_MODE"
	LevelAcceptDegenerateDay RelaxationLevel = "ACCEPT_DEGENERATE_DAY"
)

// ConflictResolution records one relaxation applied (or attempted) while planning.
// A zero Date means the relaxation applies to the whole trip.
type ConflictResolution struct {
	Level       RelaxationLevel `json:"level"`
	Date        time.Time       `json:"date"`
	ActivityID  string          `json:"activity_id,omitempty"`
	Reason      FailureReason   `json:"reason,omitempty"`
	Description string          `json:"description"`
	Rationale   string          `json:"rationale"`
}

// ScheduledItem is one activity placed on a day. Leg is how the traveller got there.
type ScheduledItem struct {
	Candidate Candidate  `json:"candidate"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	Leg       *TravelLeg `json:"leg,omitempty"`
}

type DayPlan struct {
	Date       time.Time       `json:"date"`
	Items      []ScheduledItem `json:"items"`
	Cost       Money           `json:"cost"`
	TravelTime time.Duration   `json:"travel_time"`
	// Degenerate marks a rest day kept only to preserve date coverage.
	Degenerate bool   `json:"degenerate"`
	Advisory   string `json:"advisory,omitempty"`
}

// LastPoint returns the id of the last scheduled candidate, or "" for an empty day.
func (d DayPlan) LastPoint() string {
	if len(d.Items) == 0 {
		return ""
	}
	return d.Items[len(d.Items)-1].Candidate.ID
}

// Itinerary is the planner's output. It is built incrementally and then frozen by
// Finalize; re-planning always creates a new value.
type Itinerary struct {
	ID          string               `json:"id"`
	Trip        Trip                 `json:"trip"`
	Lodging     Candidate            `json:"lodging"`
	TimeZone    string               `json:"time_zone"`
	Days        []DayPlan            `json:"days"`
	TotalCost   Money                `json:"total_cost"`
	Resolutions []ConflictResolution `json:"resolutions"`
}

// Finalize computes the total cost and a content-derived ID. Identical inputs
// always produce byte-identical itineraries.
func (it *Itinerary) Finalize() error {
	total := it.Lodging.Cost
	if total.Currency == "" {
		total = it.Trip.Budget.Zero()
	}
	for _, d := range it.Days {
		total = total.Add(d.Cost)
	}
	it.TotalCost = total
	if it.Resolutions == nil {
		it.Resolutions = []ConflictResolution{}
	}

	it.ID = ""
	b, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("finalize itinerary: %w", err)
	}
	it.ID = uuid.NewSHA1(uuid.NameSpaceOID, b).String()
	return nil
}

func (it Itinerary) HasResolution(level RelaxationLevel) bool {
	for _, r := range it.Resolutions {
		if r.Level == level {
			return true
		}
	}
	return false
}

// DegenerateDays counts rest days.
func (it Itinerary) DegenerateDays() int {
	n := 0
	for _, d := range it.Days {
		if d.Degenerate {
			n++
		}
	}
	return n
}

// CheckInvariants verifies the structural guarantees every finalized itinerary must hold.
func (it Itinerary) CheckInvariants() error {
	if !it.Lodging.Availability.Covers(it.Trip.Dates) {
		return fmt.Errorf("itinerary invariant: lodging %q availability %s does not cover %s",
			it.Lodging.ID, it.Lodging.Availability, it.Trip.Dates)
	}
	if len(it.Days) != it.Trip.Days() {
		return fmt.Errorf("itinerary invariant: %d day plans for a %d day trip", len(it.Days), it.Trip.Days())
	}

	for i, d := range it.Days {
		want := it.Trip.Dates.Start.AddDate(0, 0, i)
		if !DateOf(d.Date).Equal(want) {
			return fmt.Errorf("itinerary invariant: day %d has date %s, want %s",
				i+1, d.Date.Format(DateLayout), want.Format(DateLayout))
		}
		if !d.Degenerate && len(d.Items) == 0 {
			return fmt.Errorf("itinerary invariant: day %s is empty but not marked degenerate", want.Format(DateLayout))
		}

		for j, item := range d.Items {
			if !DateOf(item.Start).Equal(want) || !DateOf(item.End.Add(-time.Nanosecond)).Equal(want) {
				return fmt.Errorf("itinerary invariant: %q on %s falls outside its date",
					item.Candidate.ID, want.Format(DateLayout))
			}
			if item.End.Before(item.Start) {
				return fmt.Errorf("itinerary invariant: %q ends before it starts", item.Candidate.ID)
			}
			if j == 0 {
				continue
			}
			prev := d.Items[j-1]
			gap := time.Duration(0)
			if item.Leg != nil {
				gap = item.Leg.Duration
			}
			if item.Start.Before(prev.End.Add(gap)) {
				return fmt.Errorf("itinerary invariant: %q starts at %s before %q ends plus travel (%s + %s)",
					item.Candidate.ID, item.Start.Format(time.Kitchen), prev.Candidate.ID,
					prev.End.Format(time.Kitchen), gap)
			}
		}
	}

	if it.TotalCost.GreaterThan(it.Trip.Budget) && !it.HasResolution(LevelAllowBudgetOverflow) {
		return fmt.Errorf("itinerary invariant: total cost %s exceeds budget %s without a recorded overflow",
			it.TotalCost, it.Trip.Budget)
	}
	return nil
}
