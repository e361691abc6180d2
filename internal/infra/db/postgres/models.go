package postgres

import (
	"time"

	"github.com/lib/pq"

	"bookly/internal/app/middleware"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
)

type resourceModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Category  string `gorm:"index"`
	Capacity  int
	Status    string
	OpensAt   string
	ClosesAt  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (resourceModel) TableName() string { return "resources" }

func newResourceModel(r *domainresource.Resource) resourceModel {
	m := resourceModel{
		ID:        string(r.ID),
		Name:      r.Name,
		Category:  string(r.Category),
		Capacity:  r.Capacity,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.OpeningHours != nil {
		m.OpensAt = r.OpeningHours.Start.String()
		m.ClosesAt = r.OpeningHours.End.String()
	}
	return m
}

func (m resourceModel) toAggregate() (*domainresource.Resource, error) {
	r := &domainresource.Resource{
		ID:        domainresource.ID(m.ID),
		Name:      m.Name,
		Category:  domainresource.Category(m.Category),
		Capacity:  m.Capacity,
		Status:    domainresource.Status(m.Status),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if m.OpensAt != "" && m.ClosesAt != "" {
		hours, err := timeslot.ParseSlot(m.OpensAt, m.ClosesAt)
		if err != nil {
			return nil, err
		}
		r.OpeningHours = &hours
	}
	return r, nil
}

type userModel struct {
	ID           string         `gorm:"primaryKey"`
	Email        string         `gorm:"uniqueIndex;not null"`
	Name         string         `gorm:"not null"`
	PasswordHash string         `gorm:"not null"`
	Roles        pq.StringArray `gorm:"type:text[]"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

func newUserModel(u *domainuser.User) userModel {
	roles := make(pq.StringArray, len(u.Roles))
	for i, role := range u.Roles {
		roles[i] = string(role)
	}
	return userModel{
		ID:           string(u.ID),
		Email:        domainuser.NormalizeEmail(u.Email),
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Roles:        roles,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m userModel) toAggregate() *domainuser.User {
	roles := make([]domainuser.Role, len(m.Roles))
	for i, role := range m.Roles {
		roles[i] = domainuser.Role(role)
	}
	return &domainuser.User{
		ID:           domainuser.ID(m.ID),
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		Roles:        roles,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

// Dates are stored as YYYY-MM-DD and times as HH:mm so string comparison follows time order.
type bookingModel struct {
	ID             string `gorm:"primaryKey"`
	ResourceID     string `gorm:"index:idx_booking_slot;not null"`
	UserID         string `gorm:"index;not null"`
	Date           string `gorm:"index:idx_booking_slot;size:10;not null"`
	StartTime      string `gorm:"size:5;not null"`
	EndTime        string `gorm:"size:5;not null"`
	Status         string `gorm:"index:idx_booking_slot;not null"`
	Notes          string
	Recurring      bool
	RecurringEvery string
	RecurringUntil string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
}

func (bookingModel) TableName() string { return "bookings" }

func newBookingModel(b *domainbooking.Booking) bookingModel {
	m := bookingModel{
		ID:         string(b.ID),
		ResourceID: string(b.ResourceID),
		UserID:     b.UserID,
		Date:       b.Date.String(),
		StartTime:  b.Slot.Start.String(),
		EndTime:    b.Slot.End.String(),
		Status:     string(b.Status),
		Notes:      b.Notes,
		Recurring:  b.Recurrence.Recurring,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
		Version:    b.Version,
	}
	if b.Recurrence.Recurring {
		m.RecurringEvery = string(b.Recurrence.Pattern)
		if !b.Recurrence.Until.IsZero() {
			m.RecurringUntil = b.Recurrence.Until.String()
		}
	}
	return m
}

func (m bookingModel) toAggregate() (*domainbooking.Booking, error) {
	date, err := timeslot.ParseDate(m.Date)
	if err != nil {
		return nil, err
	}
	slot, err := timeslot.ParseSlot(m.StartTime, m.EndTime)
	if err != nil {
		return nil, err
	}
	b := &domainbooking.Booking{
		ID:         domainbooking.BookingID(m.ID),
		ResourceID: domainresource.ID(m.ResourceID),
		UserID:     m.UserID,
		Date:       date,
		Slot:       slot,
		Status:     domainbooking.Status(m.Status),
		Notes:      m.Notes,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
		Version:    m.Version,
	}
	if m.Recurring {
		b.Recurrence = domainbooking.Recurrence{Recurring: true, Pattern: domainbooking.Pattern(m.RecurringEvery)}
		if m.RecurringUntil != "" {
			if b.Recurrence.Until, err = timeslot.ParseDate(m.RecurringUntil); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

type entryModel struct {
	ID         string `gorm:"primaryKey"`
	ResourceID string `gorm:"index:idx_entry_slot;not null"`
	UserID     string `gorm:"not null"`
	Date       string `gorm:"index:idx_entry_slot;size:10;not null"`
	StartTime  string `gorm:"size:5;not null"`
	EndTime    string `gorm:"size:5;not null"`
	Priority   int
	Status     string `gorm:"index:idx_entry_slot;not null"`
	BookingID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
}

func (entryModel) TableName() string { return "waiting_list_entries" }

func newEntryModel(e *domainwaitlist.Entry) entryModel {
	return entryModel{
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
		Version:    e.Version,
	}
}

func (m entryModel) toAggregate() (*domainwaitlist.Entry, error) {
	date, err := timeslot.ParseDate(m.Date)
	if err != nil {
		return nil, err
	}
	slot, err := timeslot.ParseSlot(m.StartTime, m.EndTime)
	if err != nil {
		return nil, err
	}
	return &domainwaitlist.Entry{
		ID:         domainwaitlist.EntryID(m.ID),
		ResourceID: domainresource.ID(m.ResourceID),
		UserID:     m.UserID,
		Date:       date,
		Slot:       slot,
		Priority:   m.Priority,
		Status:     domainwaitlist.Status(m.Status),
		BookingID:  domainbooking.BookingID(m.BookingID),
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
		Version:    m.Version,
	}, nil
}

type notificationModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index:idx_notification_user;not null"`
	Type      string `gorm:"not null"`
	Title     string
	Message   string
	Payload   []byte    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"index:idx_notification_user"`
}

func (notificationModel) TableName() string { return "notifications" }

type outboxModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Payload     []byte
	OccurredAt  time.Time
	Aggregate   string
	Headers     []byte `gorm:"type:jsonb"`
	State       string `gorm:"index:idx_outbox_state;not null"`
	Attempts    int
	NextAttempt time.Time `gorm:"index:idx_outbox_state"`
	ClaimedBy   string
	ClaimedAt   time.Time
	SentAt      time.Time
	LastError   string
	CreatedAt   time.Time
}

func (outboxModel) TableName() string { return "outbox_events" }

type idempotencyModel struct {
	Key         string `gorm:"primaryKey"`
	Command     string
	Fingerprint string
	Payload     []byte
	OccurredAt  time.Time
	ExpiresAt   *time.Time `gorm:"index"`
}

func newIdempotencyModel(rec middleware.IdempotencyRecord, ttl time.Duration) idempotencyModel {
	m := idempotencyModel{
		Key:         rec.Key,
		Command:     rec.Command,
		Fingerprint: rec.Fingerprint,
		Payload:     rec.Payload,
		OccurredAt:  rec.OccurredAt.UTC(),
	}
	if ttl > 0 {
		expires := m.OccurredAt.Add(ttl)
		m.ExpiresAt = &expires
	}
	return m
}

func (m idempotencyModel) toRecord() middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{
		Key:         m.Key,
		Command:     m.Command,
		Fingerprint: m.Fingerprint,
		Payload:     m.Payload,
		OccurredAt:  m.OccurredAt.UTC(),
	}
}

func (idempotencyModel) TableName() string { return "idempotency_keys" }
