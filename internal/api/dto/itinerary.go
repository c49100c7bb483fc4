package dto

import (
	"fmt"
	"strings"
	"time"
	"tripsynth/internal/domain"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type CreateItineraryRequest struct {
	Destination   string          `json:"destination"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	Budget        decimal.Decimal `json:"budget"`
	Currency      string          `json:"currency"`
	Preferences   []string        `json:"preferences"`
	AllowRevisits bool            `json:"allow_revisits"`
	TimeZone      string          `json:"time_zone"`
}

// Trip converts the request into a validated domain.Trip.
func (r CreateItineraryRequest) Trip() (domain.Trip, error) {
	start, err := domain.ParseDate(strings.TrimSpace(r.StartDate))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := domain.ParseDate(strings.TrimSpace(r.EndDate))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("end_date: %w", err)
	}
	dates, err := domain.NewDateRange(start, end)
	if err != nil {
		return domain.Trip{}, err
	}
	if tz := strings.TrimSpace(r.TimeZone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return domain.Trip{}, fmt.Errorf("%w: unknown time zone %q", domain.ErrValidation, tz)
		}
	}

	trip, err := domain.NewTrip(r.Destination, dates, domain.NewMoney(r.Budget, r.Currency), r.Preferences)
	if err != nil {
		return domain.Trip{}, err
	}
	trip.AllowRevisits = r.AllowRevisits
	trip.TimeZone = strings.TrimSpace(r.TimeZone)
	return trip, nil
}

type EmailRequest struct {
	To []string `json:"to"`
}

type MoneyResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type CandidateResponse struct {
	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	Name       string        `json:"name"`
	Address    string        `json:"address,omitempty"`
	Lat        float64       `json:"lat"`
	Lon        float64       `json:"lon"`
	Cost       MoneyResponse `json:"cost"`
	Rating     float64       `json:"rating"`
	Tags       []string      `json:"tags,omitempty"`
	BookingRef string        `json:"booking_ref,omitempty"`
	Amenities  string        `json:"amenities,omitempty"`
}

type LegResponse struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Mode            string `json:"mode"`
	DurationMinutes int    `json:"duration_minutes"`
	DistanceMeters  int    `json:"distance_meters"`
}

type ItemResponse struct {
	Candidate CandidateResponse `json:"candidate"`
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	Leg       *LegResponse      `json:"leg,omitempty"`
}

type DayResponse struct {
	Date          string         `json:"date"`
	Items         []ItemResponse `json:"items"`
	Cost          MoneyResponse  `json:"cost"`
	TravelMinutes int            `json:"travel_minutes"`
	RestDay       bool           `json:"rest_day"`
	Advisory      string         `json:"advisory,omitempty"`
}

type ResolutionResponse struct {
	Level       string `json:"level"`
	Date        string `json:"date,omitempty"`
	ActivityID  string `json:"activity_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
}

type ItineraryResponse struct {
	ID          string               `json:"id"`
	Destination string               `json:"destination"`
	StartDate   string               `json:"start_date"`
	EndDate     string               `json:"end_date"`
	TimeZone    string               `json:"time_zone"`
	Preferences []string             `json:"preferences"`
	Budget      MoneyResponse        `json:"budget"`
	TotalCost   MoneyResponse        `json:"total_cost"`
	Lodging     CandidateResponse    `json:"lodging"`
	Days        []DayResponse        `json:"days"`
	Resolutions []ResolutionResponse `json:"resolutions"`
}

type DestinationsResponse struct {
	Destinations []string `json:"destinations"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error    ErrorBody            `json:"error"`
	Partial  *ItineraryResponse   `json:"partial,omitempty"`
	Attempts []ResolutionResponse `json:"attempts,omitempty"`
}

func NewMoneyResponse(m domain.Money) MoneyResponse {
	return MoneyResponse{Amount: m.Amount.StringFixed(2), Currency: m.Currency}
}

func NewCandidateResponse(c domain.Candidate) CandidateResponse {
	return CandidateResponse{
		ID:         c.ID,
		Kind:       string(c.Kind),
		Name:       c.Name,
		Address:    c.Address,
		Lat:        c.Location.Lat,
		Lon:        c.Location.Lon,
		Cost:       NewMoneyResponse(c.Cost),
		Rating:     c.Rating,
		Tags:       c.Tags,
		BookingRef: c.BookingRef,
		Amenities:  c.Amenities,
	}
}

func NewResolutionResponse(r domain.ConflictResolution) ResolutionResponse {
	res := ResolutionResponse{
		Level:       string(r.Level),
		ActivityID:  r.ActivityID,
		Reason:      string(r.Reason),
		Description: r.Description,
		Rationale:   r.Rationale,
	}
	if !r.Date.IsZero() {
		res.Date = r.Date.Format(domain.DateLayout)
	}
	return res
}

func NewResolutionResponses(rs []domain.ConflictResolution) []ResolutionResponse {
	return lo.Map(rs, func(r domain.ConflictResolution, _ int) ResolutionResponse {
		return NewResolutionResponse(r)
	})
}

func NewItineraryResponse(it *domain.Itinerary) ItineraryResponse {
	days := lo.Map(it.Days, func(d domain.DayPlan, _ int) DayResponse {
		items := lo.Map(d.Items, func(item domain.ScheduledItem, _ int) ItemResponse {
			out := ItemResponse{
				Candidate: NewCandidateResponse(item.Candidate),
				Start:     item.Start,
				End:       item.End,
			}
			if item.Leg != nil {
				out.Leg = &LegResponse{
					From:            item.Leg.From,
					To:              item.Leg.To,
					Mode:            string(item.Leg.Mode),
					DurationMinutes: int(item.Leg.Duration.Round(time.Minute) / time.Minute),
					DistanceMeters:  item.Leg.DistanceMeters,
				}
			}
			return out
		})
		return DayResponse{
			Date:          d.Date.Format(domain.DateLayout),
			Items:         items,
			Cost:          NewMoneyResponse(d.Cost),
			TravelMinutes: int(d.TravelTime.Round(time.Minute) / time.Minute),
			RestDay:       d.Degenerate,
			Advisory:      d.Advisory,
		}
	})

	return ItineraryResponse{
		ID:          it.ID,
		Destination: it.Trip.Destination,
		StartDate:   it.Trip.Dates.Start.Format(domain.DateLayout),
		EndDate:     it.Trip.Dates.End.Format(domain.DateLayout),
		TimeZone:    it.TimeZone,
		Preferences: it.Trip.Preferences,
		Budget:      NewMoneyResponse(it.Trip.Budget),
		TotalCost:   NewMoneyResponse(it.TotalCost),
		Lodging:     NewCandidateResponse(it.Lodging),
		Days:        days,
		Resolutions: NewResolutionResponses(it.Resolutions),
	}
}
