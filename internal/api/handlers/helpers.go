package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"tripsynth/internal/api/dto"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog/hlog"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encode response failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: dto.ErrorBody{Code: code, Message: msg}})
}

// decodeJSON reads exactly one JSON object from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "body must contain only one JSON object")
		return false
	}
	return true
}

// writeDomainError maps planner and store errors onto HTTP responses. Infeasible
// trips carry the partial itinerary and every relaxation attempted.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := hlog.FromRequest(r)

	var infeasible *domain.InfeasibleTripError
	switch {
	case errors.As(err, &infeasible):
		res := dto.ErrorResponse{
			Error:    dto.ErrorBody{Code: "infeasible_trip", Message: infeasible.Error()},
			Attempts: dto.NewResolutionResponses(infeasible.Attempts),
		}
		if infeasible.Partial != nil {
			partial := dto.NewItineraryResponse(infeasible.Partial)
			res.Partial = &partial
		}
		logger.Info().Err(err).Msg("trip infeasible")
		writeJSON(w, r, http.StatusUnprocessableEntity, res)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusUnprocessableEntity, "validation_error", err.Error())
	case errors.Is(err, domain.ErrNoCandidates):
		writeError(w, r, http.StatusUnprocessableEntity, "no_candidates", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrProviderAuth),
		errors.Is(err, domain.ErrProviderQuota),
		errors.Is(err, domain.ErrProviderTimeout):
		logger.Error().Err(err).Msg("upstream provider failed")
		writeError(w, r, http.StatusBadGateway, "upstream_error", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Err(err).Msg("request cancelled")
		writeError(w, r, http.StatusServiceUnavailable, "cancelled", "request was cancelled before planning finished")
	default:
		logger.Error().Err(err).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal", "internal server error")
	}
}
