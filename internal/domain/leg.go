package domain

import (
	"fmt"
	"strings"
	"time"
)

type TravelMode string

const (
	ModeWalk    TravelMode = "walk"
	ModeDrive   TravelMode = "drive"
	ModeTransit TravelMode = "transit"
)

func ParseTravelMode(s string) (TravelMode, error) {
	switch m := TravelMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeWalk, ModeDrive, ModeTransit:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown travel mode %q", ErrValidation, s)
}

func (m *TravelMode) UnmarshalText(b []byte) error {
	v, err := ParseTravelMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// TravelLeg is the precomputed trip between two candidates with one mode.
type TravelLeg struct {
	From           string        `json:"from"`
	To             string        `json:"to"`
	Duration       time.Duration `json:"duration"`
	DistanceMeters int           `json:"distance_meters"`
	Mode           TravelMode    `json:"mode"`
}
