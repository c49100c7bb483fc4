package report

import (
	"fmt"
	"time"
	"tripsynth/internal/domain"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatMoney renders m as "USD 1,234.50". Unknown codes fall back to the raw code.
func formatMoney(m domain.Money) string {
	code := m.Currency
	if unit, err := currency.ParseISO(m.Currency); err == nil {
		code = unit.String()
	}
	return printer.Sprintf("%s %.2f", code, m.Float())
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%d min", m)
	case m == 0:
		return fmt.Sprintf("%d h", h)
	}
	return fmt.Sprintf("%d h %d min", h, m)
}

func formatDistance(meters int) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	return printer.Sprintf("%.1f km", float64(meters)/1000)
}

// location returns the zone the itinerary was planned in, or UTC.
func location(it *domain.Itinerary) *time.Location {
	if it.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(it.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func place(c domain.Candidate) string {
	if c.Address != "" {
		return c.Address
	}
	if !c.Location.IsZero() {
		return fmt.Sprintf("%.5f, %.5f", c.Location.Lat, c.Location.Lon)
	}
	return ""
}
