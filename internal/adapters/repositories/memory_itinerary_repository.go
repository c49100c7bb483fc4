package repositories

import (
	"context"
	"fmt"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/ports"

	"github.com/patrickmn/go-cache"
)

// MemoryItineraryRepository keeps itineraries in process memory for a limited time.
// It is used when no database is configured.
type MemoryItineraryRepository struct {
	items *cache.Cache
}

func NewMemoryItineraryRepository(ttl time.Duration) *MemoryItineraryRepository {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryItineraryRepository{items: cache.New(ttl, 10*time.Minute)}
}

func (r *MemoryItineraryRepository) Save(_ context.Context, it *domain.Itinerary) error {
	if it == nil || it.ID == "" {
		return fmt.Errorf("%w: itinerary must be finalized before saving", domain.ErrValidation)
	}
	cp := *it
	r.items.SetDefault(it.ID, &cp)
	return nil
}

func (r *MemoryItineraryRepository) Get(_ context.Context, id string) (*domain.Itinerary, error) {
	v, ok := r.items.Get(id)
	if !ok {
		return nil, fmt.Errorf("itinerary %q: %w", id, domain.ErrNotFound)
	}
	cp := *v.(*domain.Itinerary)
	return &cp, nil
}

var _ ports.ItineraryStore = (*MemoryItineraryRepository)(nil)
