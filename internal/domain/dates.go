package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date, represented as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: DateOf(start), End: DateOf(end)}
	if r.Start.IsZero() || r.End.IsZero() {
		return DateRange{}, fmt.Errorf("%w: date range needs both start and end", ErrValidation)
	}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: end date %s is before start date %s",
			ErrValidation, r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return r, nil
}

func (r DateRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

// Len returns the number of dates in the range.
func (r DateRange) Len() int {
	if r.IsZero() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Days lists every date in the range in order.
func (r DateRange) Days() []time.Time {
	n := r.Len()
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.Start.AddDate(0, 0, i))
	}
	return out
}

func (r DateRange) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Covers reports whether every date of other lies within r.
func (r DateRange) Covers(other DateRange) bool {
	if r.IsZero() || other.IsZero() {
		return false
	}
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
