package booking

import (
	"errors"
	"time"

	"bookly/internal/domain/shared/timeslot"
)

var ErrDateInPast = errors.New("booking: date is in the past")

// ValidateDate rejects dates before today in loc. Today itself is allowed.
func ValidateDate(date timeslot.Date, now time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	today := timeslot.DateOf(now.In(loc))
	if date.Before(today) {
		return ErrDateInPast
	}
	return nil
}
