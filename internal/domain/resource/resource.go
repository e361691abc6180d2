package resource

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookly/internal/domain/shared/timeslot"
)

var (
	ErrNotFound           = errors.New("resource: not found")
	ErrNameRequired       = errors.New("resource: name is required")
	ErrInvalidCategory    = errors.New("resource: invalid category")
	ErrInvalidStatus      = errors.New("resource: invalid status")
	ErrInvalidCapacity    = errors.New("resource: capacity must be non-negative")
	ErrUnderMaintenance   = errors.New("resource: under maintenance")
	ErrOutsideOpenedHours = errors.New("resource: slot is outside opening hours")
)

type ID string

type Category string

const (
	CategoryRoom      Category = "room"
	CategoryEquipment Category = "equipment"
	CategoryVehicle   Category = "vehicle"
	CategoryService   Category = "service"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusBusy        Status = "busy"
	StatusMaintenance Status = "maintenance"
)

// Resource is a bookable entity owned by the registry. The booking core only reads it.
type Resource struct {
	ID           ID
	Name         string
	Category     Category
	Capacity     int
	Status       Status
	OpeningHours *timeslot.Slot
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Resource, error)
	Save(ctx context.Context, r *Resource) error
	List(ctx context.Context) ([]*Resource, error)
}

type CreateParams struct {
	ID           ID
	Name         string
	Category     Category
	Capacity     int
	Status       Status
	OpeningHours *timeslot.Slot
	Now          time.Time
}

func New(params CreateParams) (*Resource, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("resource: id is required")
	}
	category := Category(strings.ToLower(strings.TrimSpace(string(params.Category))))
	switch category {
	case CategoryRoom, CategoryEquipment, CategoryVehicle, CategoryService:
	default:
		return nil, ErrInvalidCategory
	}
	status := params.Status
	if status == "" {
		status = StatusAvailable
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if params.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	if params.OpeningHours != nil {
		if err := params.OpeningHours.Validate(); err != nil {
			return nil, err
		}
	}
	now := params.Now.UTC()
	return &Resource{
		ID:           params.ID,
		Name:         name,
		Category:     category,
		Capacity:     params.Capacity,
		Status:       status,
		OpeningHours: params.OpeningHours,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusMaintenance:
		return true
	}
	return false
}

// Accepts checks the registry-side constraints for booking the slot.
// A busy resource is in use right now; that says nothing about future slots.
func (r *Resource) Accepts(slot timeslot.Slot) error {
	if r.Status == StatusMaintenance {
		return ErrUnderMaintenance
	}
	if r.OpeningHours != nil && !r.OpeningHours.Contains(slot) {
		return ErrOutsideOpenedHours
	}
	return nil
}

// Window returns the bookable part of a day, 00:00-24:00 without opening hours.
func (r *Resource) Window() timeslot.Slot {
	if r.OpeningHours != nil {
		return *r.OpeningHours
	}
	return timeslot.Slot{Start: 0, End: timeslot.EndOfDay}
}
