package domain

import (
	"fmt"
	"strings"
	"time"
)

type CandidateKind string

const (
	KindLodging  CandidateKind = "LODGING"
	KindActivity CandidateKind = "ACTIVITY"
)

func ParseCandidateKind(s string) (CandidateKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindLodging):
		return KindLodging, nil
	case string(KindActivity):
		return KindActivity, nil
	}
	return "", fmt.Errorf("%w: unknown candidate kind %q", ErrValidation, s)
}

// Candidate is a lodging or activity option offered by a provider.
type Candidate struct {
	ID       string        `json:"id"`
	Kind     CandidateKind `json:"kind"`
	Name     string        `json:"name"`
	Address  string        `json:"address,omitempty"`
	Location Coordinates   `json:"location"`
	Cost     Money         `json:"cost"`
	Hours    WeeklyHours   `json:"hours,omitempty"`
	// VisitDuration is how long an activity takes on site. Unused for lodgings.
	VisitDuration time.Duration `json:"visit_duration,omitempty"`
	Rating        float64       `json:"rating"`
	Tags          []string      `json:"tags,omitempty"`
	ProviderID    string        `json:"provider_id"`
	BookingRef    string        `json:"booking_ref,omitempty"`
	Amenities     string        `json:"amenities,omitempty"`
	// Availability is the lodging's bookable date range.
	Availability DateRange `json:"availability"`
}

func (c Candidate) IsLodging() bool { return c.Kind == KindLodging }

func (c Candidate) IsActivity() bool { return c.Kind == KindActivity }

// OpenOn reports whether the candidate has any opening window on date.
func (c Candidate) OpenOn(date time.Time) bool {
	return c.Hours.OpenOn(date.Weekday())
}

func (c Candidate) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
