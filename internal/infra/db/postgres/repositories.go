package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
)

type ResourceRepository struct{ db *gorm.DB }

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) ByID(ctx context.Context, id domainresource.ID) (*domainresource.Resource, error) {
	var m resourceModel
	if err := conn(ctx, r.db).First(&m, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainresource.ErrNotFound
		}
		return nil, err
	}
	return m.toAggregate()
}

func (r *ResourceRepository) Save(ctx context.Context, res *domainresource.Resource) error {
	m := newResourceModel(res)
	return conn(ctx, r.db).Save(&m).Error
}

func (r *ResourceRepository) List(ctx context.Context) ([]*domainresource.Resource, error) {
	var rows []resourceModel
	if err := conn(ctx, r.db).Order("name, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domainresource.Resource, 0, len(rows))
	for _, m := range rows {
		res, err := m.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

type BookingRepository struct{ db *gorm.DB }

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var m bookingModel
	if err := conn(ctx, r.db).First(&m, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return m.toAggregate()
}

// Save inserts new bookings and updates existing ones only at the version they were loaded with.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	m := newBookingModel(b)
	m.Version = b.Version + 1
	db := conn(ctx, r.db)
	if b.Version == 0 {
		if err := db.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
				return domainbooking.ErrConcurrentUpdate
			}
			return err
		}
		b.Version = m.Version
		return nil
	}
	res := db.Model(&bookingModel{}).
		Where("id = ? AND version = ?", m.ID, b.Version).
		Select("*").
		Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = m.Version
	return nil
}

// HasOverlap locks the colliding rows so a concurrent transaction cannot cancel them mid-check.
func (r *BookingRepository) HasOverlap(ctx context.Context, q domainbooking.OverlapQuery) (bool, error) {
	db := conn(ctx, r.db).Model(&bookingModel{}).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("resource_id = ? AND date = ? AND status IN ?", string(q.ResourceID), q.Date.String(), statusStrings(domainbooking.BlockingStatuses)).
		Where("start_time < ? AND end_time > ?", q.Slot.End.String(), q.Slot.Start.String())
	if q.Exclude != "" {
		db = db.Where("id <> ?", string(q.Exclude))
	}
	var existing bookingModel
	err := db.Take(&existing).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (r *BookingRepository) List(ctx context.Context, f domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	db := conn(ctx, r.db).Model(&bookingModel{})
	if f.ResourceID != "" {
		db = db.Where("resource_id = ?", string(f.ResourceID))
	}
	if f.UserID != "" {
		db = db.Where("user_id = ?", f.UserID)
	}
	if !f.Date.IsZero() {
		db = db.Where("date = ?", f.Date.String())
	}
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", statusStrings(f.Statuses))
	}
	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}
	var rows []bookingModel
	if err := db.Order("date, start_time, created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(rows))
	for _, m := range rows {
		b, err := m.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

type WaitingListRepository struct{ db *gorm.DB }

func NewWaitingListRepository(db *gorm.DB) *WaitingListRepository {
	return &WaitingListRepository{db: db}
}

func (r *WaitingListRepository) ByID(ctx context.Context, id domainwaitlist.EntryID) (*domainwaitlist.Entry, error) {
	var m entryModel
	if err := conn(ctx, r.db).First(&m, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainwaitlist.ErrNotFound
		}
		return nil, err
	}
	return m.toAggregate()
}

func (r *WaitingListRepository) Save(ctx context.Context, e *domainwaitlist.Entry) error {
	m := newEntryModel(e)
	m.Version = e.Version + 1
	db := conn(ctx, r.db)
	if e.Version == 0 {
		if err := db.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
				return domainwaitlist.ErrConcurrentUpdate
			}
			return err
		}
		e.Version = m.Version
		return nil
	}
	res := db.Model(&entryModel{}).
		Where("id = ? AND version = ?", m.ID, e.Version).
		Select("*").
		Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainwaitlist.ErrConcurrentUpdate
	}
	e.Version = m.Version
	return nil
}

func (r *WaitingListRepository) ListActive(ctx context.Context, resourceID domainresource.ID, date timeslot.Date) ([]*domainwaitlist.Entry, error) {
	var rows []entryModel
	err := conn(ctx, r.db).
		Where("resource_id = ? AND date = ? AND status = ?", string(resourceID), date.String(), string(domainwaitlist.StatusActive)).
		Order("priority DESC, created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domainwaitlist.Entry, 0, len(rows))
	for _, m := range rows {
		e, err := m.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	domainwaitlist.SortByRank(out)
	return out, nil
}

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.first(ctx, "id = ?", string(id))
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.first(ctx, "email = ?", domainuser.NormalizeEmail(email))
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*domainuser.User, error) {
	var m userModel
	if err := conn(ctx, r.db).First(&m, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return m.toAggregate(), nil
}

func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	m := newUserModel(u)
	if err := conn(ctx, r.db).Save(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return domainuser.ErrEmailAlreadyUsed
		}
		return err
	}
	return nil
}

func (r *UserRepository) ListByRoles(ctx context.Context, roles ...domainuser.Role) ([]*domainuser.User, error) {
	wanted := make([]string, len(roles))
	for i, role := range roles {
		wanted[i] = string(role)
	}
	var rows []userModel
	if err := conn(ctx, r.db).Where("roles && ?", pq.StringArray(wanted)).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domainuser.User, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toAggregate())
	}
	return out, nil
}

func statusStrings(statuses []domainbooking.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// isUniqueViolation recognises SQLSTATE 23505 from lib/pq errors.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "SQLSTATE 23505")
}

var (
	_ domainresource.Repository = (*ResourceRepository)(nil)
	_ domainbooking.Repository  = (*BookingRepository)(nil)
	_ domainwaitlist.Repository = (*WaitingListRepository)(nil)
	_ domainuser.Repository     = (*UserRepository)(nil)
)
