package booking

import (
	"errors"
	"strings"

	domainbooking "bookly/internal/domain/booking"
	"bookly/internal/domain/shared/timeslot"
	"bookly/internal/domain/shared/validation"
)

func parseDateField(verr *validation.Error, raw string) timeslot.Date {
	if strings.TrimSpace(raw) == "" {
		verr.Add("date", "The date field is required.")
		return timeslot.Date{}
	}
	d, err := timeslot.ParseDate(raw)
	if err != nil {
		verr.Add("date", "The date does not match the format Y-m-d.")
	}
	return d
}

func parseClockField(verr *validation.Error, field, label, raw string) (timeslot.Clock, bool) {
	if strings.TrimSpace(raw) == "" {
		verr.Add(field, "The "+label+" field is required.")
		return 0, false
	}
	c, err := timeslot.ParseClock(raw)
	if err != nil {
		verr.Add(field, "The "+label+" does not match the format H:i.")
		return 0, false
	}
	return c, true
}

// parseWindow validates a date and an HH:mm interval.
func parseWindow(verr *validation.Error, date, start, end string) (timeslot.Date, timeslot.Slot) {
	d := parseDateField(verr, date)
	s, okStart := parseClockField(verr, "start_time", "start time", start)
	e, okEnd := parseClockField(verr, "end_time", "end time", end)
	if !okStart || !okEnd {
		return d, timeslot.Slot{}
	}
	slot, err := timeslot.NewSlot(s, e)
	if err != nil {
		verr.Add("end_time", "The end time must be a time after start time.")
	}
	return d, slot
}

func parseRecurrence(verr *validation.Error, recurring bool, frequency, until string, date timeslot.Date) domainbooking.Recurrence {
	r, err := domainbooking.ParseRecurrence(recurring, frequency, until, date)
	switch {
	case err == nil:
	case errors.Is(err, domainbooking.ErrInvalidRecurrence):
		verr.Add("recurring_frequency", "The selected recurring frequency is invalid.")
	case errors.Is(err, domainbooking.ErrRecurrenceEnd):
		verr.Add("recurring_until", "The recurring until must be a date after or equal to date.")
	default:
		verr.Add("recurring_until", "The recurring until does not match the format Y-m-d.")
	}
	return r
}
