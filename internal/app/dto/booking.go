package dto

import (
	"time"

	domainbooking "bookly/internal/domain/booking"
)

type Booking struct {
	ID                 string    `json:"id"`
	ResourceID         string    `json:"resource_id"`
	UserID             string    `json:"user_id"`
	Date               string    `json:"date"`
	StartTime          string    `json:"start_time"`
	EndTime            string    `json:"end_time"`
	Duration           float64   `json:"duration"`
	Status             string    `json:"status"`
	Notes              string    `json:"notes"`
	IsRecurring        bool      `json:"is_recurring"`
	RecurringFrequency string    `json:"recurring_frequency,omitempty"`
	RecurringUntil     string    `json:"recurring_until,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// BookingOutcome is the result of a transition. PromotedBooking is set when the
// freed interval went to a waiting-list entry.
type BookingOutcome struct {
	Booking
	PromotedBooking *Booking `json:"promoted_booking,omitempty"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	out := Booking{
		ID:          string(b.ID),
		ResourceID:  string(b.ResourceID),
		UserID:      b.UserID,
		Date:        b.Date.String(),
		StartTime:   b.Slot.Start.String(),
		EndTime:     b.Slot.End.String(),
		Duration:    b.Duration(),
		Status:      string(b.Status),
		Notes:       b.Notes,
		IsRecurring: b.Recurrence.Recurring,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if b.Recurrence.Recurring {
		out.RecurringFrequency = string(b.Recurrence.Pattern)
		out.RecurringUntil = b.Recurrence.Until.String()
	}
	return out
}

func MapBookingPtr(b *domainbooking.Booking) *Booking {
	if b == nil {
		return nil
	}
	out := MapBooking(b)
	return &out
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	out := make([]Booking, 0, len(items))
	for _, b := range items {
		out = append(out, MapBooking(b))
	}
	return BookingCollection{Items: out}
}
