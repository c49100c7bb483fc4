package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// 24:00 is allowed and denotes the end of the day.
type TimeOfDay int

const (
	Midnight  TimeOfDay = 0
	EndOfDay  TimeOfDay = 24 * 60
	minPerDay           = 24 * 60
)

func NewTimeOfDay(hour, minute int) TimeOfDay { return TimeOfDay(hour*60 + minute) }

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: time of day %q must be HH:MM", ErrValidation, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("%w: time of day %q: bad hour", ErrValidation, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%w: time of day %q: bad minute", ErrValidation, s)
	}
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: time of day %q out of range", ErrValidation, s)
	}
	return NewTimeOfDay(hour, minute), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add shifts the time by d, clamped to [00:00, 24:00].
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	v := int(t) + int(d/time.Minute)
	if v < 0 {
		v = 0
	}
	if v > minPerDay {
		v = minPerDay
	}
	return TimeOfDay(v)
}

// On returns the instant at this wall-clock time on date, in loc. 24:00 is
// midnight of the following day.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, loc)
}

// ClockOf returns the wall-clock time of instant within its own location,
// rounded up to the next whole minute. Instants on a later calendar day than
// date count as 24:00 or beyond.
func ClockOf(date time.Time, instant time.Time) TimeOfDay {
	y, m, d := date.Date()
	iy, im, id := instant.Date()
	days := int(time.Date(iy, im, id, 0, 0, 0, 0, time.UTC).Sub(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour))

	h, mi, sec := instant.Clock()
	mins := days*minPerDay + h*60 + mi
	if sec > 0 || instant.Nanosecond() > 0 {
		mins++
	}
	return TimeOfDay(mins)
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
