package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"tripsynth/internal/domain"
)

// CandidateSeed is the JSON shape of one catalog entry.
type CandidateSeed struct {
	ID            string              `json:"id"`
	Kind          string              `json:"kind"`
	Destination   string              `json:"destination"`
	Name          string              `json:"name"`
	Address       string              `json:"address"`
	Lon           float64             `json:"lon"`
	Lat           float64             `json:"lat"`
	Cost          string              `json:"cost"`
	Currency      string              `json:"currency"`
	Hours         map[string][]string `json:"hours"`
	VisitMinutes  int                 `json:"visit_minutes"`
	Rating        float64             `json:"rating"`
	Tags          []string            `json:"tags"`
	ProviderID    string              `json:"provider_id"`
	BookingRef    string              `json:"booking_ref"`
	Amenities     string              `json:"amenities"`
	AvailableFrom string              `json:"available_from"`
	AvailableTo   string              `json:"available_to"`
}

func (s CandidateSeed) validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("id cannot be empty")
	}
	if _, err := domain.ParseCandidateKind(s.Kind); err != nil {
		return err
	}
	if strings.TrimSpace(s.Destination) == "" {
		return errors.New("destination cannot be empty")
	}
	if _, err := domain.ParseMoney(s.Cost, s.Currency); err != nil {
		return err
	}
	if err := domain.ValidateCurrency(strings.ToUpper(s.Currency)); err != nil {
		return err
	}
	if _, err := domain.ParseWeeklyHours(s.Hours); err != nil {
		return err
	}
	if s.Kind == string(domain.KindLodging) {
		if _, err := parseAvailability(sql.NullString{String: s.AvailableFrom, Valid: s.AvailableFrom != ""},
			sql.NullString{String: s.AvailableTo, Valid: s.AvailableTo != ""}); err != nil {
			return err
		}
	}
	return nil
}

// Populate the catalog with candidate data from a JSON file. Existing ids are replaced.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed candidates: read %q: %w", jsonPath, err)
	}

	var data []CandidateSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed candidates: parse json: %w", err)
	}
	return Seed(ctx, db, data)
}

// Seed validates every entry before writing any of them.
func Seed(ctx context.Context, db *sql.DB, data []CandidateSeed) (int, error) {
	if db == nil {
		return 0, errors.New("seed candidates: DB is nil")
	}
	for i, item := range data {
		if err := item.validate(); err != nil {
			return 0, fmt.Errorf("seed candidates: item %d (%q): %w", i+1, item.ID, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed candidates: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO candidates (
		id, kind, destination, name, address, lon, lat, cost, currency, hours,
		visit_minutes, rating, tags, provider_id, booking_ref, amenities,
		available_from, available_to
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return 0, fmt.Errorf("seed candidates: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range data {
		hours, err := json.Marshal(c.Hours)
		if err != nil {
			return 0, fmt.Errorf("seed candidates: encode hours for %q: %w", c.ID, err)
		}
		if c.Hours == nil {
			hours = []byte("{}")
		}
		var from, to sql.NullString
		if c.AvailableFrom != "" {
			from = sql.NullString{String: c.AvailableFrom, Valid: true}
		}
		if c.AvailableTo != "" {
			to = sql.NullString{String: c.AvailableTo, Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			strings.TrimSpace(c.ID), strings.ToUpper(c.Kind), strings.TrimSpace(c.Destination), c.Name, c.Address,
			c.Lon, c.Lat, c.Cost, strings.ToUpper(c.Currency), string(hours),
			c.VisitMinutes, c.Rating, strings.Join(domain.NormalizeTags(c.Tags), ","), c.ProviderID, c.BookingRef, c.Amenities,
			from, to,
		)
		if err != nil {
			return 0, fmt.Errorf("seed candidates: insert id=%q: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed candidates: commit tx: %w", err)
	}

	return len(data), nil
}
