package report

import (
	"fmt"
	"strings"
	"tripsynth/internal/domain"
)

// Document renders it as a plain-text, day-by-day plan.
func Document(it *domain.Itinerary) string {
	loc := location(it)
	var b strings.Builder

	trip := it.Trip
	fmt.Fprintf(&b, "%s, %s to %s (%d days)\n", trip.Destination,
		trip.Dates.Start.Format(domain.DateLayout), trip.Dates.End.Format(domain.DateLayout), trip.Days())
	fmt.Fprintf(&b, "Budget: %s, planned total: %s\n", formatMoney(trip.Budget), formatMoney(it.TotalCost))
	if len(trip.Preferences) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(trip.Preferences, ", "))
	}

	l := it.Lodging
	fmt.Fprintf(&b, "Lodging: %s", l.Label())
	if p := place(l); p != "" {
		fmt.Fprintf(&b, ", %s", p)
	}
	fmt.Fprintf(&b, " (%s", formatMoney(l.Cost))
	if l.BookingRef != "" {
		fmt.Fprintf(&b, ", booking %s", l.BookingRef)
	}
	b.WriteString(")\n")

	names := map[string]string{l.ID: l.Label()}
	for _, d := range it.Days {
		for _, item := range d.Items {
			names[item.Candidate.ID] = item.Candidate.Label()
		}
	}

	for i, d := range it.Days {
		fmt.Fprintf(&b, "\nDay %d - %s\n", i+1, d.Date.Format("Monday 2 January 2006"))
		if d.Advisory != "" {
			fmt.Fprintf(&b, "  Weather: %s\n", d.Advisory)
		}
		if d.Degenerate || len(d.Items) == 0 {
			fmt.Fprintf(&b, "  Rest day at %s.\n", l.Label())
			continue
		}

		for _, item := range d.Items {
			c := item.Candidate
			fmt.Fprintf(&b, "  %s-%s  %s", item.Start.In(loc).Format("15:04"), item.End.In(loc).Format("15:04"), c.Label())
			if p := place(c); p != "" {
				fmt.Fprintf(&b, ", %s", p)
			}
			fmt.Fprintf(&b, "  %s\n", formatMoney(c.Cost))
			if item.Leg != nil && item.Leg.Duration > 0 {
				from := names[item.Leg.From]
				if from == "" {
					from = item.Leg.From
				}
				fmt.Fprintf(&b, "      %s %s, %s from %s\n",
					item.Leg.Mode, formatDuration(item.Leg.Duration), formatDistance(item.Leg.DistanceMeters), from)
			}
			if c.BookingRef != "" {
				fmt.Fprintf(&b, "      booking %s\n", c.BookingRef)
			}
		}
		fmt.Fprintf(&b, "  Day cost: %s, travel %s\n", formatMoney(d.Cost), formatDuration(d.TravelTime))
	}

	if len(it.Resolutions) > 0 {
		b.WriteString("\nAdjustments\n")
		for _, r := range it.Resolutions {
			when := "whole trip"
			if !r.Date.IsZero() {
				when = r.Date.Format(domain.DateLayout)
			}
			fmt.Fprintf(&b, "  - %s (%s): %s\n", r.Level, when, r.Description)
			if r.Rationale != "" {
				fmt.Fprintf(&b, "    %s\n", r.Rationale)
			}
		}
	}
	return b.String()
}
