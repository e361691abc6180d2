package memory

import (
	"context"
	"sort"

	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	"bookly/internal/domain/shared/timeslot"
	domainwaitlist "bookly/internal/domain/waitlist"
)

type resourceView struct{ u *Unit }

func (v resourceView) ByID(ctx context.Context, id domainresource.ID) (*domainresource.Resource, error) {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if st, ok := v.u.resources[id]; ok {
		return cloneResource(st.value), nil
	}
	v.u.store.mu.RLock()
	defer v.u.store.mu.RUnlock()
	r, ok := v.u.store.resources[id]
	if !ok {
		return nil, domainresource.ErrNotFound
	}
	return cloneResource(r), nil
}

func (v resourceView) Save(ctx context.Context, r *domainresource.Resource) error {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if err := v.u.writable(); err != nil {
		return err
	}
	v.u.resources[r.ID] = staged[*domainresource.Resource]{value: cloneResource(r)}
	return nil
}

func (v resourceView) List(ctx context.Context) ([]*domainresource.Resource, error) {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	v.u.store.mu.RLock()
	merged := make(map[domainresource.ID]*domainresource.Resource, len(v.u.store.resources))
	for id, r := range v.u.store.resources {
		merged[id] = r
	}
	v.u.store.mu.RUnlock()
	for id, st := range v.u.resources {
		merged[id] = st.value
	}
	out := make([]*domainresource.Resource, 0, len(merged))
	for _, r := range merged {
		out = append(out, cloneResource(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type bookingView struct{ u *Unit }

func (v bookingView) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if st, ok := v.u.bookings[id]; ok {
		return cloneBooking(st.value), nil
	}
	v.u.store.mu.RLock()
	defer v.u.store.mu.RUnlock()
	b, ok := v.u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (v bookingView) Save(ctx context.Context, b *domainbooking.Booking) error {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if err := v.u.writable(); err != nil {
		return err
	}
	base := b.Version
	if prev, ok := v.u.bookings[b.ID]; ok {
		if prev.value.Version != b.Version {
			return domainbooking.ErrConcurrentUpdate
		}
		base = prev.base
	}
	stored := cloneBooking(b)
	stored.Version = b.Version + 1
	v.u.bookings[b.ID] = staged[*domainbooking.Booking]{value: stored, base: base}
	b.Version = stored.Version
	return nil
}

func (v bookingView) HasOverlap(ctx context.Context, q domainbooking.OverlapQuery) (bool, error) {
	items := v.snapshot(domainbooking.ListFilter{ResourceID: q.ResourceID, Date: q.Date, Statuses: domainbooking.BlockingStatuses})
	return domainbooking.AnyOverlap(q, items), nil
}

func (v bookingView) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	items := v.snapshot(filter)
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Slot.Start != b.Slot.Start {
			return a.Slot.Start < b.Slot.Start
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	out := make([]*domainbooking.Booking, len(items))
	for i, b := range items {
		out[i] = cloneBooking(b)
	}
	return out, nil
}

// snapshot merges committed and staged bookings matching filter. The returned
// pointers are shared and must not escape without cloning.
func (v bookingView) snapshot(filter domainbooking.ListFilter) []*domainbooking.Booking {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	v.u.store.mu.RLock()
	out := make([]*domainbooking.Booking, 0)
	for id, b := range v.u.store.bookings {
		if _, overridden := v.u.bookings[id]; overridden {
			continue
		}
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	v.u.store.mu.RUnlock()
	for _, st := range v.u.bookings {
		if filter.Matches(st.value) {
			out = append(out, st.value)
		}
	}
	return out
}

type waitlistView struct{ u *Unit }

func (v waitlistView) ByID(ctx context.Context, id domainwaitlist.EntryID) (*domainwaitlist.Entry, error) {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if st, ok := v.u.entries[id]; ok {
		return cloneEntry(st.value), nil
	}
	v.u.store.mu.RLock()
	defer v.u.store.mu.RUnlock()
	e, ok := v.u.store.entries[id]
	if !ok {
		return nil, domainwaitlist.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (v waitlistView) Save(ctx context.Context, e *domainwaitlist.Entry) error {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if err := v.u.writable(); err != nil {
		return err
	}
	base := e.Version
	if prev, ok := v.u.entries[e.ID]; ok {
		if prev.value.Version != e.Version {
			return domainwaitlist.ErrConcurrentUpdate
		}
		base = prev.base
	}
	stored := cloneEntry(e)
	stored.Version = e.Version + 1
	v.u.entries[e.ID] = staged[*domainwaitlist.Entry]{value: stored, base: base}
	e.Version = stored.Version
	return nil
}

func (v waitlistView) ListActive(ctx context.Context, resourceID domainresource.ID, date timeslot.Date) ([]*domainwaitlist.Entry, error) {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	match := func(e *domainwaitlist.Entry) bool {
		return e.Status == domainwaitlist.StatusActive && e.ResourceID == resourceID && e.Date == date
	}
	out := make([]*domainwaitlist.Entry, 0)
	v.u.store.mu.RLock()
	for id, e := range v.u.store.entries {
		if _, overridden := v.u.entries[id]; overridden {
			continue
		}
		if match(e) {
			out = append(out, cloneEntry(e))
		}
	}
	v.u.store.mu.RUnlock()
	for _, st := range v.u.entries {
		if match(st.value) {
			out = append(out, cloneEntry(st.value))
		}
	}
	domainwaitlist.SortByRank(out)
	return out, nil
}
