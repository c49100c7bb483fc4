package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"
)

// SqliteCatalog serves lodging and activity searches from the local candidates
// table. It stands in for live marketplace and points-of-interest providers.
type SqliteCatalog struct{ DB *sql.DB }

func NewSqliteCatalog(db *sql.DB) *SqliteCatalog {
	return &SqliteCatalog{DB: db}
}

const candidateColumns = `
	id, kind, name, address, lon, lat, cost, currency, hours, visit_minutes,
	rating, tags, provider_id, booking_ref, amenities, available_from, available_to`

// Return lodgings in destination whose availability overlaps dates and whose price
// is within budgetCeiling.
func (s *SqliteCatalog) SearchLodging(
	ctx context.Context,
	destination string,
	dates domain.DateRange,
	budgetCeiling domain.Money,
) (_ []domain.Candidate, err error) {
	defer obs.Time(ctx, "catalog.SearchLodging")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite catalog: DB is nil")
	}

	query := `
	SELECT` + candidateColumns + `
	FROM candidates
	WHERE kind = 'LODGING'
		AND destination = ? COLLATE NOCASE
		AND available_from <= ?
		AND available_to >= ?
	ORDER BY id;
	`
	all, err := s.query(ctx, query,
		strings.TrimSpace(destination), dates.End.Format(domain.DateLayout), dates.Start.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("search lodging: %w", err)
	}

	out := make([]domain.Candidate, 0, len(all))
	for _, c := range all {
		if c.Cost.Currency == budgetCeiling.Currency && !c.Cost.LessOrEqual(budgetCeiling) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Return every activity in destination. Tags are not used as a filter.
func (s *SqliteCatalog) SearchActivities(ctx context.Context, destination string, _ []string) (_ []domain.Candidate, err error) {
	defer obs.Time(ctx, "catalog.SearchActivities")(&err)

	if s.DB == nil {
		return nil, errors.New("sqlite catalog: DB is nil")
	}

	query := `
	SELECT` + candidateColumns + `
	FROM candidates
	WHERE kind = 'ACTIVITY'
		AND destination = ? COLLATE NOCASE
	ORDER BY id;
	`
	out, err := s.query(ctx, query, strings.TrimSpace(destination))
	if err != nil {
		return nil, fmt.Errorf("search activities: %w", err)
	}
	return out, nil
}

// Return the distinct destinations in the catalog.
func (s *SqliteCatalog) Destinations(ctx context.Context) ([]string, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite catalog: DB is nil")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT destination FROM candidates ORDER BY destination;`)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("list destinations: scan row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SqliteCatalog) query(ctx context.Context, query string, args ...any) ([]domain.Candidate, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Candidate, 0, 32)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return out, nil
}

func scanCandidate(rows *sql.Rows) (domain.Candidate, error) {
	var (
		c                    domain.Candidate
		kind, cost, currency string
		hoursJSON, tags      string
		visitMinutes         int
		from, to             sql.NullString
	)
	err := rows.Scan(
		&c.ID, &kind, &c.Name, &c.Address, &c.Location.Lon, &c.Location.Lat, &cost, &currency, &hoursJSON,
		&visitMinutes, &c.Rating, &tags, &c.ProviderID, &c.BookingRef, &c.Amenities, &from, &to,
	)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("scan row: %w", err)
	}

	if c.Kind, err = domain.ParseCandidateKind(kind); err != nil {
		return domain.Candidate{}, fmt.Errorf("candidate %q: %w", c.ID, err)
	}
	if c.Cost, err = domain.ParseMoney(cost, currency); err != nil {
		return domain.Candidate{}, fmt.Errorf("candidate %q: %w", c.ID, err)
	}

	var raw map[string][]string
	if err := json.Unmarshal([]byte(hoursJSON), &raw); err != nil {
		return domain.Candidate{}, fmt.Errorf("candidate %q: decode hours: %w", c.ID, err)
	}
	if c.Hours, err = domain.ParseWeeklyHours(raw); err != nil {
		return domain.Candidate{}, fmt.Errorf("candidate %q: %w", c.ID, err)
	}

	c.VisitDuration = time.Duration(visitMinutes) * time.Minute
	if tags != "" {
		c.Tags = strings.Split(tags, ",")
	}
	if from.Valid || to.Valid {
		if c.Availability, err = parseAvailability(from, to); err != nil {
			return domain.Candidate{}, fmt.Errorf("candidate %q: %w", c.ID, err)
		}
	}
	return c, nil
}

func parseAvailability(from, to sql.NullString) (domain.DateRange, error) {
	if !from.Valid || !to.Valid {
		return domain.DateRange{}, errors.New("lodging needs available_from and available_to")
	}
	start, err := domain.ParseDate(from.String)
	if err != nil {
		return domain.DateRange{}, err
	}
	end, err := domain.ParseDate(to.String)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.NewDateRange(start, end)
}

var (
	_ ports.LodgingProvider  = (*SqliteCatalog)(nil)
	_ ports.ActivityProvider = (*SqliteCatalog)(nil)
)
