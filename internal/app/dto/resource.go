package dto

import (
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
)

type Window struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Resource struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Capacity     int     `json:"capacity"`
	Status       string  `json:"status"`
	OpeningHours *Window `json:"opening_hours,omitempty"`
}

type ResourceCollection struct {
	Items []Resource `json:"items"`
}

// Schedule is a day view of one resource.
type Schedule struct {
	Resource Resource  `json:"resource"`
	Date     string    `json:"date"`
	Bookings []Booking `json:"bookings"`
	Free     []Window  `json:"free"`
}

func MapWindow(s timeslot.Slot) Window {
	return Window{StartTime: s.Start.String(), EndTime: s.End.String()}
}

func MapResource(r *domainresource.Resource) Resource {
	if r == nil {
		return Resource{}
	}
	out := Resource{
		ID:       string(r.ID),
		Name:     r.Name,
		Category: string(r.Category),
		Capacity: r.Capacity,
		Status:   string(r.Status),
	}
	if r.OpeningHours != nil {
		w := MapWindow(*r.OpeningHours)
		out.OpeningHours = &w
	}
	return out
}
