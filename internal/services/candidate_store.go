package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// CandidateStore is the normalized, deduplicated and immutable candidate set for one
// planning run. Lookups are safe for concurrent use.
type CandidateStore struct {
	lodgings   []domain.Candidate
	activities []domain.Candidate
	byID       map[string]domain.Candidate
}

// NewCandidateStore normalizes raw provider results. Candidates priced in another
// currency, without a usable location or with a duplicate id are dropped.
// Returns domain.ErrNoCandidates when either kind ends up empty.
func NewCandidateStore(
	trip domain.Trip,
	lodgings, activities []domain.Candidate,
	defaultVisit time.Duration,
	logger zerolog.Logger,
) (*CandidateStore, error) {
	s := &CandidateStore{byID: make(map[string]domain.Candidate, len(lodgings)+len(activities))}

	s.lodgings = s.admit(trip, lodgings, domain.KindLodging, defaultVisit, logger)
	s.activities = s.admit(trip, activities, domain.KindActivity, defaultVisit, logger)

	if len(s.lodgings) == 0 {
		return nil, fmt.Errorf("candidate store: lodging in %q: %w", trip.Destination, domain.ErrNoCandidates)
	}
	if len(s.activities) == 0 {
		return nil, fmt.Errorf("candidate store: activities in %q: %w", trip.Destination, domain.ErrNoCandidates)
	}
	return s, nil
}

func (s *CandidateStore) admit(
	trip domain.Trip,
	raw []domain.Candidate,
	kind domain.CandidateKind,
	defaultVisit time.Duration,
	logger zerolog.Logger,
) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(raw))
	for _, c := range raw {
		c.ID = strings.TrimSpace(c.ID)
		c.Kind = kind

		reason := ""
		switch {
		case c.ID == "":
			reason = "missing id"
		case !c.Location.Valid() || c.Location.IsZero():
			reason = "no usable location"
		case c.Cost.Currency != trip.Budget.Currency:
			reason = fmt.Sprintf("priced in %q, trip budget is in %q", c.Cost.Currency, trip.Budget.Currency)
		case c.Cost.IsNegative():
			reason = "negative cost"
		case kind == domain.KindLodging && c.Availability.IsZero():
			reason = "no availability range"
		}
		if reason == "" {
			if _, dup := s.byID[c.ID]; dup {
				reason = "duplicate id"
			}
		}
		if reason != "" {
			logger.Debug().Str("candidate", c.ID).Str("kind", string(kind)).Str("reason", reason).Msg("candidate dropped")
			continue
		}

		if kind == domain.KindActivity && c.VisitDuration <= 0 {
			c.VisitDuration = defaultVisit
		}
		c.Tags = domain.NormalizeTags(c.Tags)
		s.byID[c.ID] = c
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *CandidateStore) Lodgings() []domain.Candidate {
	return append([]domain.Candidate(nil), s.lodgings...)
}

func (s *CandidateStore) Activities() []domain.Candidate {
	return append([]domain.Candidate(nil), s.activities...)
}

func (s *CandidateStore) Get(id string) (domain.Candidate, bool) {
	c, ok := s.byID[id]
	return c, ok
}

func (s *CandidateStore) Len() int { return len(s.byID) }

// Fingerprint identifies the candidate set by id and location.
func (s *CandidateStore) Fingerprint() string {
	all := append(s.Lodgings(), s.activities...)
	return fingerprint(all)
}

func fingerprint(cands []domain.Candidate) string {
	keys := lo.Map(cands, func(c domain.Candidate, _ int) string {
		return c.ID + "@" + c.Location.Key()
	})
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:])
}
