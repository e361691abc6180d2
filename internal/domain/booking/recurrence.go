package booking

import (
	"errors"
	"strings"

	"bookly/internal/domain/shared/timeslot"
)

var (
	ErrInvalidRecurrence = errors.New("booking: recurrence pattern must be daily, weekly or monthly")
	ErrRecurrenceEnd     = errors.New("booking: recurrence end date must not precede the booking date")
)

type Pattern string

const (
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
)

// Recurrence is stored with the booking. Occurrences are not expanded.
type Recurrence struct {
	Recurring bool
	Pattern   Pattern
	Until     timeslot.Date
}

func ParseRecurrence(recurring bool, pattern, until string, date timeslot.Date) (Recurrence, error) {
	if !recurring {
		return Recurrence{}, nil
	}
	p := Pattern(strings.ToLower(strings.TrimSpace(pattern)))
	switch p {
	case PatternDaily, PatternWeekly, PatternMonthly:
	default:
		return Recurrence{}, ErrInvalidRecurrence
	}
	r := Recurrence{Recurring: true, Pattern: p}
	if strings.TrimSpace(until) != "" {
		end, err := timeslot.ParseDate(until)
		if err != nil {
			return Recurrence{}, err
		}
		if end.Before(date) {
			return Recurrence{}, ErrRecurrenceEnd
		}
		r.Until = end
	}
	return r, nil
}
