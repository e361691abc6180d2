package notices

import (
	"fmt"

	domainbooking "bookly/internal/domain/booking"
	"bookly/internal/domain/notification"
	domainwaitlist "bookly/internal/domain/waitlist"
)

func bookingPayload(b *domainbooking.Booking) map[string]any {
	return map[string]any{
		"booking_id":  string(b.ID),
		"resource_id": string(b.ResourceID),
		"date":        b.Date.String(),
		"start_time":  b.Slot.Start.String(),
		"end_time":    b.Slot.End.String(),
	}
}

func describe(b *domainbooking.Booking, resourceName string) string {
	if resourceName == "" {
		resourceName = string(b.ResourceID)
	}
	return fmt.Sprintf("%s on %s, %s", resourceName, b.Date, b.Slot)
}

// BookingPendingForRequester confirms receipt of a booking request.
func BookingPendingForRequester(b *domainbooking.Booking, resourceName string) notification.Notification {
	payload := bookingPayload(b)
	payload["audience"] = notification.AudienceRequester
	return notification.Notification{
		UserID:  b.UserID,
		Type:    notification.TypeBookingPending,
		Title:   "Booking request received",
		Message: "Your booking for " + describe(b, resourceName) + " is awaiting approval.",
		Payload: payload,
	}
}

// BookingPendingForStaff asks a manager or admin to review a request.
func BookingPendingForStaff(b *domainbooking.Booking, resourceName, staffID string) notification.Notification {
	payload := bookingPayload(b)
	payload["audience"] = notification.AudienceStaff
	payload["requester_id"] = b.UserID
	return notification.Notification{
		UserID:  staffID,
		Type:    notification.TypeBookingPending,
		Title:   "New booking awaiting approval",
		Message: "A booking for " + describe(b, resourceName) + " needs review.",
		Payload: payload,
	}
}

func BookingApproved(b *domainbooking.Booking, resourceName string) notification.Notification {
	return notification.Notification{
		UserID:  b.UserID,
		Type:    notification.TypeBookingApproval,
		Title:   "Booking approved",
		Message: "Your booking for " + describe(b, resourceName) + " was approved.",
		Payload: bookingPayload(b),
	}
}

// BookingCancelled covers both rejection and cancellation; status tells them apart.
func BookingCancelled(b *domainbooking.Booking, resourceName, reason string) notification.Notification {
	payload := bookingPayload(b)
	payload["status"] = string(b.Status)
	if reason != "" {
		payload["reason"] = reason
	}
	title, verb := "Booking cancelled", "was cancelled"
	if b.Status == domainbooking.StatusRejected {
		title, verb = "Booking rejected", "was rejected"
	}
	return notification.Notification{
		UserID:  b.UserID,
		Type:    notification.TypeBookingCancellation,
		Title:   title,
		Message: "Your booking for " + describe(b, resourceName) + " " + verb + ".",
		Payload: payload,
	}
}

func WaitingListPromoted(e *domainwaitlist.Entry, b *domainbooking.Booking, resourceName string) notification.Notification {
	payload := bookingPayload(b)
	payload["waiting_list_id"] = string(e.ID)
	return notification.Notification{
		UserID:  e.UserID,
		Type:    notification.TypeWaitingListPromotion,
		Title:   "A slot opened up",
		Message: "Your waiting list request for " + describe(b, resourceName) + " became an approved booking.",
		Payload: payload,
	}
}
