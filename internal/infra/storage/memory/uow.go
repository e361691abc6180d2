package memory

import (
	"context"
	"errors"
	"sync"

	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
	infraoutbox "bookly/internal/infra/outbox"
)

var (
	// ErrFactoryMisconfigured indicates a factory without a store.
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already finished")
	ErrReadOnly             = errors.New("memory: unit of work is read-only")
)

// Factory wires the in-memory store into a unit-of-work boundary.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:     f.Store,
		readOnly:  opts.ReadOnly,
		resources: make(map[domainresource.ID]staged[*domainresource.Resource]),
		bookings:  make(map[domainbooking.BookingID]staged[*domainbooking.Booking]),
		entries:   make(map[domainwaitlist.EntryID]staged[*domainwaitlist.Entry]),
		users:     make(map[domainuser.ID]staged[*domainuser.User]),
	}, nil
}

type staged[T any] struct {
	value T
	// base is the committed version the first write in this unit was made against.
	base int64
}

// Unit reads through to committed state and keeps its own writes private until Commit.
// Commit fails with a concurrent-update error when another unit committed a newer version
// of a staged aggregate in the meantime.
type Unit struct {
	mu       sync.Mutex
	store    *Store
	readOnly bool
	done     bool

	resources map[domainresource.ID]staged[*domainresource.Resource]
	bookings  map[domainbooking.BookingID]staged[*domainbooking.Booking]
	entries   map[domainwaitlist.EntryID]staged[*domainwaitlist.Entry]
	users     map[domainuser.ID]staged[*domainuser.User]
	events    []*infraoutbox.EventDocument
}

func (u *Unit) Resources() domainresource.Repository {
	return resourceView{u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return bookingView{u}
}

func (u *Unit) WaitingList() domainwaitlist.Repository {
	return waitlistView{u}
}

func (u *Unit) Users() domainuser.Repository {
	return userView{u}
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		return nil
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range u.bookings {
		if current, ok := s.bookings[id]; ok && current.Version != st.base || !ok && st.base != 0 {
			return domainbooking.ErrConcurrentUpdate
		}
	}
	for id, st := range u.entries {
		if current, ok := s.entries[id]; ok && current.Version != st.base || !ok && st.base != 0 {
			return domainwaitlist.ErrConcurrentUpdate
		}
	}
	for id, st := range u.users {
		if owner, ok := s.emails[st.value.Email]; ok && owner != id {
			return domainuser.ErrEmailAlreadyUsed
		}
	}

	for id, st := range u.resources {
		s.resources[id] = st.value
	}
	for id, st := range u.bookings {
		s.bookings[id] = st.value
	}
	for id, st := range u.entries {
		s.entries[id] = st.value
	}
	for id, st := range u.users {
		if prev, ok := s.users[id]; ok && prev.Email != st.value.Email {
			delete(s.emails, prev.Email)
		}
		s.users[id] = st.value
		s.emails[st.value.Email] = id
	}
	s.events = append(s.events, u.events...)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done = true
	u.resources = nil
	u.bookings = nil
	u.entries = nil
	u.users = nil
	u.events = nil
	return nil
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (u *Unit) stageEvent(doc infraoutbox.EventDocument) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	u.events = append(u.events, &doc)
	return nil
}

var _ uow.UnitOfWork = (*Unit)(nil)
