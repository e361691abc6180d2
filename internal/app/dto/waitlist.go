package dto

import (
	"time"

	domainwaitlist "bookly/internal/domain/waitlist"
)

type WaitingListEntry struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Priority   int       `json:"priority"`
	Status     string    `json:"status"`
	BookingID  string    `json:"booking_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type WaitingListCollection struct {
	Items []WaitingListEntry `json:"items"`
}

func MapWaitingListEntry(e *domainwaitlist.Entry) WaitingListEntry {
	if e == nil {
		return WaitingListEntry{}
	}
	return WaitingListEntry{
		ID:         string(e.ID),
		ResourceID: string(e.ResourceID),
		UserID:     e.UserID,
		Date:       e.Date.String(),
		StartTime:  e.Slot.Start.String(),
		EndTime:    e.Slot.End.String(),
		Priority:   e.Priority,
		Status:     string(e.Status),
		BookingID:  string(e.BookingID),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}
