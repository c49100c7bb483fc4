package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// TimeWindow is a half-open opening interval [Open, Close) on a single day.
type TimeWindow struct {
	Open  TimeOfDay `json:"open"`
	Close TimeOfDay `json:"close"`
}

func (w TimeWindow) Contains(start, end TimeOfDay) bool {
	return start >= w.Open && end <= w.Close
}

// WeeklyHours maps weekdays to opening windows.
// An empty WeeklyHours means the place is always open; a weekday with no
// entry while other weekdays have entries means closed on that day.
type WeeklyHours map[time.Weekday][]TimeWindow

func (h WeeklyHours) AlwaysOpen() bool { return len(h) == 0 }

// Windows returns the windows for day sorted by opening time.
func (h WeeklyHours) Windows(day time.Weekday) []TimeWindow {
	if h.AlwaysOpen() {
		return []TimeWindow{{Open: Midnight, Close: EndOfDay}}
	}
	ws := slices.Clone(h[day])
	slices.SortFunc(ws, func(a, b TimeWindow) int { return int(a.Open) - int(b.Open) })
	return ws
}

func (h WeeklyHours) OpenOn(day time.Weekday) bool {
	return len(h.Windows(day)) > 0
}

// Covers reports whether a single window on day contains [start, end].
func (h WeeklyHours) Covers(day time.Weekday, start, end TimeOfDay) bool {
	for _, w := range h.Windows(day) {
		if w.Contains(start, end) {
			return true
		}
	}
	return false
}

// EarliestFit returns the earliest start >= notBefore at which a visit of length d
// fits entirely inside one window on day.
func (h WeeklyHours) EarliestFit(day time.Weekday, notBefore TimeOfDay, d time.Duration) (TimeOfDay, bool) {
	for _, w := range h.Windows(day) {
		start := max(w.Open, notBefore)
		if int(start)+int(d/time.Minute) <= int(w.Close) {
			return start, true
		}
	}
	return 0, false
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekday accepts English day names or their three-letter prefixes.
func ParseWeekday(s string) (time.Weekday, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	if len(k) >= 3 {
		if d, ok := weekdayNames[k[:3]]; ok {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrValidation, s)
}

// ParseWeeklyHours builds WeeklyHours from "mon" -> ["09:00-18:00", ...] style input.
// Keys may also be ranges such as "mon-fri" (wrapping past Saturday is allowed),
// and "daily" applies to every weekday.
func ParseWeeklyHours(raw map[string][]string) (WeeklyHours, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(WeeklyHours)
	for key, spans := range raw {
		days := []time.Weekday{}
		if strings.EqualFold(strings.TrimSpace(key), "daily") {
			for d := time.Sunday; d <= time.Saturday; d++ {
				days = append(days, d)
			}
		} else if from, to, isRange := strings.Cut(key, "-"); isRange {
			first, err := ParseWeekday(from)
			if err != nil {
				return nil, err
			}
			last, err := ParseWeekday(to)
			if err != nil {
				return nil, err
			}
			for d := first; ; d = (d + 1) % 7 {
				days = append(days, d)
				if d == last {
					break
				}
			}
		} else {
			d, err := ParseWeekday(key)
			if err != nil {
				return nil, err
			}
			days = append(days, d)
		}

		for _, span := range spans {
			o, c, ok := strings.Cut(span, "-")
			if !ok {
				return nil, fmt.Errorf("%w: opening span %q must be HH:MM-HH:MM", ErrValidation, span)
			}
			open, err := ParseTimeOfDay(o)
			if err != nil {
				return nil, err
			}
			closing, err := ParseTimeOfDay(c)
			if err != nil {
				return nil, err
			}
			if closing <= open {
				return nil, fmt.Errorf("%w: opening span %q closes before it opens", ErrValidation, span)
			}
			for _, d := range days {
				out[d] = append(out[d], TimeWindow{Open: open, Close: closing})
			}
		}
	}
	return out, nil
}
