package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/db"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"
)

// SQLItineraryRepository keeps finalized itineraries as JSON documents. The same
// queries serve Postgres and SQLite; only the placeholder style differs.
type SQLItineraryRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLItineraryRepository(conn *sql.DB, dialect db.Dialect) *SQLItineraryRepository {
	return &SQLItineraryRepository{DB: conn, Dialect: dialect}
}

// Save stores it under its ID. Itineraries are content addressed, so saving the
// same ID twice is a no-op.
func (r *SQLItineraryRepository) Save(ctx context.Context, it *domain.Itinerary) (err error) {
	defer obs.Time(ctx, "itineraries.Save")(&err)

	if r.DB == nil {
		return errors.New("itinerary repository: DB is nil")
	}
	if it == nil || it.ID == "" {
		return fmt.Errorf("%w: itinerary must be finalized before saving", domain.ErrValidation)
	}

	body, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("save itinerary %s: encode: %w", it.ID, err)
	}

	query := r.rebind(`
	INSERT INTO itineraries (id, destination, body)
	VALUES (?, ?, ?)
	ON CONFLICT (id) DO NOTHING;
	`)
	if _, err := r.DB.ExecContext(ctx, query, it.ID, it.Trip.Destination, string(body)); err != nil {
		return fmt.Errorf("save itinerary %s: %w", it.ID, err)
	}
	return nil
}

func (r *SQLItineraryRepository) Get(ctx context.Context, id string) (_ *domain.Itinerary, err error) {
	defer obs.Time(ctx, "itineraries.Get")(&err)

	if r.DB == nil {
		return nil, errors.New("itinerary repository: DB is nil")
	}

	var body string
	query := r.rebind(`SELECT body FROM itineraries WHERE id = ?;`)
	err = r.DB.QueryRowContext(ctx, query, strings.TrimSpace(id)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("itinerary %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get itinerary %q: %w", id, err)
	}

	var it domain.Itinerary
	if err := json.Unmarshal([]byte(body), &it); err != nil {
		return nil, fmt.Errorf("get itinerary %q: decode: %w", id, err)
	}
	return &it, nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (r *SQLItineraryRepository) rebind(query string) string {
	if r.Dialect != db.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

var _ ports.ItineraryStore = (*SQLItineraryRepository)(nil)
