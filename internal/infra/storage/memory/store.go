package memory

import (
	"sync"
	"time"

	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
	infraoutbox "bookly/internal/infra/outbox"
)

// Store holds committed state for the in-memory driver. Units of work stage their writes
// and apply them under the store mutex on commit.
type Store struct {
	mu        sync.RWMutex
	resources map[domainresource.ID]*domainresource.Resource
	bookings  map[domainbooking.BookingID]*domainbooking.Booking
	entries   map[domainwaitlist.EntryID]*domainwaitlist.Entry
	users     map[domainuser.ID]*domainuser.User
	emails    map[string]domainuser.ID
	events    []*infraoutbox.EventDocument
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		resources: make(map[domainresource.ID]*domainresource.Resource),
		bookings:  make(map[domainbooking.BookingID]*domainbooking.Booking),
		entries:   make(map[domainwaitlist.EntryID]*domainwaitlist.Entry),
		users:     make(map[domainuser.ID]*domainuser.User),
		emails:    make(map[string]domainuser.ID),
		now:       time.Now,
	}
}

// BookingCount is used by tests and readiness checks.
func (s *Store) BookingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

func cloneResource(r *domainresource.Resource) *domainresource.Resource {
	if r == nil {
		return nil
	}
	c := *r
	if r.OpeningHours != nil {
		hours := *r.OpeningHours
		c.OpeningHours = &hours
	}
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.ClearEvents()
	return &c
}

func cloneEntry(e *domainwaitlist.Entry) *domainwaitlist.Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.ClearEvents()
	return &c
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &c
}
