package report

import (
	"fmt"
	"strings"
	"time"
	"tripsynth/internal/domain"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const ProductID = "-//TripSynth//Itinerary//EN"

// Event is one calendar entry. AllDay events span whole dates and ignore the clock.
type Event struct {
	UID      string
	Title    string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Location string
	Notes    string
}

var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tripsynth/itinerary-event"))

func eventUID(itineraryID string, parts ...string) string {
	name := itineraryID + "|" + strings.Join(parts, "|")
	return uuid.NewSHA1(eventNamespace, []byte(name)).String() + "@tripsynth"
}

// Events lists lodging check-in and check-out, every scheduled activity and an
// all-day entry for each rest day, in chronological order.
func Events(it *domain.Itinerary) []Event {
	l := it.Lodging
	dates := it.Trip.Dates
	lodgingNotes := lodgingNotes(l)

	events := []Event{{
		UID:      eventUID(it.ID, "check-in", l.ID),
		Title:    "Check in: " + l.Label(),
		Start:    dates.Start,
		End:      dates.Start.AddDate(0, 0, 1),
		AllDay:   true,
		Location: place(l),
		Notes:    lodgingNotes,
	}}

	for i, d := range it.Days {
		date := d.Date.Format(domain.DateLayout)
		if d.Degenerate || len(d.Items) == 0 {
			notes := "No activities fit this day."
			if d.Advisory != "" {
				notes += "\nWeather: " + d.Advisory
			}
			events = append(events, Event{
				UID:      eventUID(it.ID, "rest", date),
				Title:    fmt.Sprintf("Day %d: rest day", i+1),
				Start:    domain.DateOf(d.Date),
				End:      domain.DateOf(d.Date).AddDate(0, 0, 1),
				AllDay:   true,
				Location: place(l),
				Notes:    notes,
			})
			continue
		}
		for _, item := range d.Items {
			c := item.Candidate
			notes := []string{"Cost: " + formatMoney(c.Cost)}
			if c.BookingRef != "" {
				notes = append(notes, "Booking: "+c.BookingRef)
			}
			if item.Leg != nil && item.Leg.Duration > 0 {
				notes = append(notes, fmt.Sprintf("Travel: %s %s", item.Leg.Mode, formatDuration(item.Leg.Duration)))
			}
			if d.Advisory != "" {
				notes = append(notes, "Weather: "+d.Advisory)
			}
			events = append(events, Event{
				UID:      eventUID(it.ID, "activity", date, c.ID),
				Title:    c.Label(),
				Start:    item.Start,
				End:      item.End,
				Location: place(c),
				Notes:    strings.Join(notes, "\n"),
			})
		}
	}

	events = append(events, Event{
		UID:      eventUID(it.ID, "check-out", l.ID),
		Title:    "Check out: " + l.Label(),
		Start:    dates.End,
		End:      dates.End.AddDate(0, 0, 1),
		AllDay:   true,
		Location: place(l),
		Notes:    lodgingNotes,
	})
	return events
}

func lodgingNotes(l domain.Candidate) string {
	notes := []string{"Total stay: " + formatMoney(l.Cost)}
	if l.BookingRef != "" {
		notes = append(notes, "Booking: "+l.BookingRef)
	}
	if l.Amenities != "" {
		notes = append(notes, "Amenities: "+l.Amenities)
	}
	return strings.Join(notes, "\n")
}

// Calendar renders Events as an iCalendar document. The output depends only on
// the itinerary, so DTSTAMP is pinned to the trip's first date.
func Calendar(it *domain.Itinerary) ([]byte, error) {
	if it == nil || it.ID == "" {
		return nil, fmt.Errorf("%w: itinerary must be finalized before export", domain.ErrValidation)
	}

	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ics.MethodPublish)

	stamp := it.Trip.Dates.Start.UTC()
	for _, ev := range Events(it) {
		e := cal.AddEvent(ev.UID)
		e.SetDtStampTime(stamp)
		e.SetSummary(ev.Title)
		if ev.AllDay {
			e.SetAllDayStartAt(ev.Start)
			e.SetAllDayEndAt(ev.End)
		} else {
			e.SetStartAt(ev.Start)
			e.SetEndAt(ev.End)
		}
		if ev.Location != "" {
			e.SetLocation(ev.Location)
		}
		if ev.Notes != "" {
			e.SetDescription(ev.Notes)
		}
	}
	return []byte(cal.Serialize()), nil
}
