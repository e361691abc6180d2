package dto

import "bookly/internal/domain/notification"

type NotificationCollection struct {
	Items []notification.Notification `json:"items"`
}
