package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MinTripDays = 1
	MaxTripDays = 30
)

var (
	MinBudget = decimal.NewFromInt(100)
	MaxBudget = decimal.NewFromInt(10000)
)

// DefaultPreference is applied when the traveller states no preference at all.
const DefaultPreference = "general sightseeing"

// QuickPreferences is the fixed vocabulary offered to travellers alongside free text.
var QuickPreferences = []string{
	"Adventure", "Relaxation", "Sightseeing", "Cultural Experiences",
	"Beach", "Mountain", "Luxury", "Budget-Friendly", "Food & Dining",
	"Shopping", "Nightlife", "Family-Friendly",
}

// Trip is the traveller's request. It is treated as immutable once planning starts.
type Trip struct {
	Destination   string    `json:"destination"`
	Dates         DateRange `json:"dates"`
	Budget        Money     `json:"budget"`
	Preferences   []string  `json:"preferences"`
	AllowRevisits bool      `json:"allow_revisits"`
	// TimeZone is an IANA zone name; empty means resolve from the lodging location.
	TimeZone string `json:"time_zone,omitempty"`
}

func NewTrip(destination string, dates DateRange, budget Money, preferences []string) (Trip, error) {
	t := Trip{
		Destination: strings.TrimSpace(destination),
		Dates:       dates,
		Budget:      budget,
		Preferences: NormalizePreferences(preferences),
	}
	if err := t.Validate(); err != nil {
		return Trip{}, err
	}
	return t, nil
}

func (t Trip) Validate() error {
	if strings.TrimSpace(t.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrValidation)
	}
	if t.Dates.IsZero() || t.Dates.End.Before(t.Dates.Start) {
		return fmt.Errorf("%w: trip needs a start date and an end date on or after it", ErrValidation)
	}
	if n := t.Dates.Len(); n < MinTripDays || n > MaxTripDays {
		return fmt.Errorf("%w: trip must last between %d and %d days, got %d", ErrValidation, MinTripDays, MaxTripDays, n)
	}
	if err := ValidateCurrency(t.Budget.Currency); err != nil {
		return err
	}
	if !t.Budget.IsPositive() {
		return fmt.Errorf("%w: budget must be positive", ErrValidation)
	}
	if t.Budget.Amount.LessThan(MinBudget) || t.Budget.Amount.GreaterThan(MaxBudget) {
		return fmt.Errorf("%w: budget must be between %s and %s %s",
			ErrValidation, MinBudget, MaxBudget, t.Budget.Currency)
	}
	return nil
}

// Days is the number of dates covered by the trip.
func (t Trip) Days() int { return t.Dates.Len() }

func (t Trip) HasPreference(tag string) bool {
	_, ok := slices.BinarySearch(t.Preferences, normalizeTag(tag))
	return ok
}

// PreferenceMatches counts how many of tags the traveller asked for.
func (t Trip) PreferenceMatches(tags []string) int {
	n := 0
	for _, tag := range tags {
		if t.HasPreference(tag) {
			n++
		}
	}
	return n
}

// NormalizePreferences lower-cases, splits comma separated free text, de-duplicates
// and sorts preference tags. An empty result becomes DefaultPreference.
func NormalizePreferences(raw []string) []string {
	out := NormalizeTags(raw)
	if len(out) == 0 {
		return []string{DefaultPreference}
	}
	return out
}

// NormalizeTags is NormalizePreferences without the default fallback.
func NormalizeTags(raw []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			tag := normalizeTag(part)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
