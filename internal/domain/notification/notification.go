package notification

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrRecipientRequired = errors.New("notification: recipient is required")

type Type string

const (
	TypeBookingPending       Type = "booking_pending"
	TypeBookingApproval      Type = "booking_approval"
	TypeBookingCancellation  Type = "booking_cancellation"
	TypeWaitingListPromotion Type = "waiting_list_promotion"
)

// Audience values distinguish the copies of a booking_pending notification.
const (
	AudienceRequester = "requester"
	AudienceStaff     = "staff"
)

type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (n Notification) Validate() error {
	if strings.TrimSpace(n.UserID) == "" {
		return ErrRecipientRequired
	}
	if n.Type == "" {
		return errors.New("notification: type is required")
	}
	return nil
}

// Repository persists in-app notifications.
type Repository interface {
	Save(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
}
