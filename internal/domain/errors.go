package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks input that fails a business rule (bad dates, budget out of range).
var ErrValidation = errors.New("validation error")

// ErrNotFound is returned when a stored itinerary does not exist.
var ErrNotFound = errors.New("not found")

// ErrRouteUnavailable means the routing provider cannot connect two points with a mode.
var ErrRouteUnavailable = errors.New("route unavailable")

// ErrNoCandidates means a provider returned nothing usable; planning aborts before assembly.
var ErrNoCandidates = errors.New("no candidates")

// ErrInfeasibleTrip is terminal: every relaxation level was exhausted.
var ErrInfeasibleTrip = errors.New("infeasible trip")

// ErrProviderTimeout is returned when a provider call timed out after its retry.
var ErrProviderTimeout = errors.New("provider timeout")

// ErrProviderAuth and ErrProviderQuota are upstream failures surfaced to the caller as-is.
var (
	ErrProviderAuth  = errors.New("provider rejected credentials")
	ErrProviderQuota = errors.New("provider quota exhausted")
)

// InfeasibleTripError carries the partial itinerary and every relaxation that was tried.
type InfeasibleTripError struct {
	Constraint string
	Partial    *Itinerary
	Attempts   []ConflictResolution
}

func (e *InfeasibleTripError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", ErrInfeasibleTrip, e.Constraint)
	if len(e.Attempts) > 0 {
		tried := make([]string, 0, len(e.Attempts))
		for _, a := range e.Attempts {
			tried = append(tried, a.Description)
		}
		fmt.Fprintf(&b, " (tried: %s)", strings.Join(tried, "; "))
	}
	return b.String()
}

func (e *InfeasibleTripError) Unwrap() error { return ErrInfeasibleTrip }
