package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"
)

// SQLite backed cache for origin->destination route results per travel mode.
// Keys are expected to be consistent (Coordinates.Key()) by the caller.
type SqliteLegCache struct {
	DB *sql.DB
}

func NewSqliteLegCache(db *sql.DB) *SqliteLegCache {
	return &SqliteLegCache{DB: db}
}

// Fetch cached legs for one origin and multiple destinations.
func (s *SqliteLegCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
	mode domain.TravelMode,
) (_ map[string]ports.RouteResult, err error) {
	defer obs.Time(ctx, "leg.cache.sqlite.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("leg cache: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get leg cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.RouteResult{}, nil
	}

	args := make([]any, 0, 2+len(uniq))
	args = append(args, origin, string(mode))
	for _, d := range uniq {
		args = append(args, d)
	}

	// SQLite does not support binding slices directly in an IN (...) clause.
	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT
        destination,
        distance_meters,
        duration_seconds
    FROM leg_cache
    WHERE origin = ?
        AND mode = ?
        AND destination IN (%s);
	`, placeholders(len(uniq)))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get leg cache: query leg_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.RouteResult, len(uniq))
	for rows.Next() {
		var dest string
		var r ports.RouteResult
		if err := rows.Scan(&dest, &r.DistanceMeters, &r.DurationSeconds); err != nil {
			return nil, fmt.Errorf("get leg cache: scan rows: %w", err)
		}
		out[dest] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get leg cache: row iteration: %w", err)
	}

	return out, nil
}

// Store many cached legs for a single origin.
func (s *SqliteLegCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.RouteResult,
	mode domain.TravelMode,
) error {
	if s.DB == nil {
		return errors.New("leg cache: db is nil")
	}

	if origin == "" {
		return errors.New("insert leg cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert leg cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO leg_cache (
        origin,
        destination,
        mode,
        distance_meters,
        duration_seconds
    )
    VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert leg cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert leg cache: empty destination key")
		}

		if _, err := stmt.ExecContext(ctx, origin, dest, string(mode), r.DistanceMeters, r.DurationSeconds); err != nil {
			return fmt.Errorf("insert leg cache dest=%q: %w", dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert leg cache commit: %w", err)
	}

	return nil
}

var _ ports.LegCache = (*SqliteLegCache)(nil)
