package tz

import (
	"fmt"
	"sync"
	"tripsynth/internal/domain"
	"tripsynth/internal/ports"

	"github.com/ringsaturn/tzf"
)

// Resolver finds the IANA time zone for a coordinate using the embedded tzf
// polygon data. The finder is built on first use.
type Resolver struct {
	once   sync.Once
	finder tzf.F
	err    error
}

func NewResolver() *Resolver { return &Resolver{} }

func (r *Resolver) TimeZone(at domain.Coordinates) (string, error) {
	r.once.Do(func() {
		r.finder, r.err = tzf.NewDefaultFinder()
	})
	if r.err != nil {
		return "", fmt.Errorf("load time zone data: %w", r.err)
	}
	if !at.Valid() {
		return "", fmt.Errorf("%w: coordinates %s out of range", domain.ErrValidation, at.Key())
	}

	name := r.finder.GetTimezoneName(at.Lon, at.Lat)
	if name == "" {
		return "", fmt.Errorf("%w: no time zone at %s", domain.ErrNotFound, at.Key())
	}
	return name, nil
}

var _ ports.TimeZoneResolver = (*Resolver)(nil)
