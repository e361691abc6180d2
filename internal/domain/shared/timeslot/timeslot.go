package timeslot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
	minutesDay  = 24 * 60
)

// EndOfDay is "24:00". It is only valid as the end of a slot.
const EndOfDay Clock = minutesDay

var (
	ErrInvalidDate  = errors.New("timeslot: date must use YYYY-MM-DD")
	ErrInvalidClock = errors.New("timeslot: time must use HH:mm")
	ErrInvalidSlot  = errors.New("timeslot: end time must be after start time")
)

// Date is a calendar date without a time zone.
type Date struct {
	year  int
	month time.Month
	day   int
}

func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// DateOf returns the calendar date of t as seen in t's location.
func DateOf(t time.Time) Date {
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool { return d.year == 0 && d.month == 0 && d.day == 0 }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// Time returns midnight of the date in UTC.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Compare(other Date) int {
	a, b := d.Time(), other.Time()
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != len(ClockLayout) || raw[2] != ':' {
		return 0, ErrInvalidClock
	}
	if raw == "24:00" {
		return EndOfDay, nil
	}
	h, err := strconv.Atoi(raw[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(raw[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidClock
	}
	return Clock(h*60 + m), nil
}

func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) String() string {
	if c < 0 || c > minutesDay {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Slot is the half-open interval [Start, End) within a single day.
type Slot struct {
	Start Clock
	End   Clock
}

func NewSlot(start, end Clock) (Slot, error) {
	s := Slot{Start: start, End: end}
	if err := s.Validate(); err != nil {
		return Slot{}, err
	}
	return s, nil
}

func ParseSlot(start, end string) (Slot, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Slot{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Slot{}, err
	}
	return NewSlot(s, e)
}

func (s Slot) Validate() error {
	if s.Start < 0 || s.Start >= minutesDay || s.End > minutesDay {
		return ErrInvalidClock
	}
	if s.End <= s.Start {
		return ErrInvalidSlot
	}
	return nil
}

func (s Slot) IsZero() bool { return s.Start == 0 && s.End == 0 }

// Overlaps reports whether the slots share an instant. Back-to-back slots do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start < other.End && other.Start < s.End
}

func (s Slot) Contains(other Slot) bool {
	return s.Start <= other.Start && other.End <= s.End
}

func (s Slot) Minutes() int { return int(s.End - s.Start) }

// Hours is the fractional length of the slot, e.g. 1.5 for 90 minutes.
func (s Slot) Hours() float64 {
	return float64(s.Minutes()) / 60
}

func (s Slot) String() string {
	return s.Start.String() + "-" + s.End.String()
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
