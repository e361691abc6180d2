package memory

import (
	"context"
	"sort"
	"strings"

	domainuser "bookly/internal/domain/user"
)

type userView struct{ u *Unit }

func (v userView) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if st, ok := v.u.users[id]; ok {
		return cloneUser(st.value), nil
	}
	v.u.store.mu.RLock()
	defer v.u.store.mu.RUnlock()
	if user, ok := v.u.store.users[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (v userView) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	key := domainuser.NormalizeEmail(email)
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	for _, st := range v.u.users {
		if st.value.Email == key {
			return cloneUser(st.value), nil
		}
	}
	v.u.store.mu.RLock()
	defer v.u.store.mu.RUnlock()
	id, ok := v.u.store.emails[key]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	if _, overridden := v.u.users[id]; overridden {
		return nil, domainuser.ErrNotFound
	}
	if user, ok := v.u.store.users[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (v userView) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil {
		return domainuser.ErrIDRequired
	}
	if strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	stored := cloneUser(user)
	stored.Email = domainuser.NormalizeEmail(user.Email)
	if stored.Email == "" {
		return domainuser.ErrEmailRequired
	}

	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	if err := v.u.writable(); err != nil {
		return err
	}
	for id, st := range v.u.users {
		if id != user.ID && st.value.Email == stored.Email {
			return domainuser.ErrEmailAlreadyUsed
		}
	}
	v.u.store.mu.RLock()
	owner, taken := v.u.store.emails[stored.Email]
	v.u.store.mu.RUnlock()
	if taken && owner != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	v.u.users[user.ID] = staged[*domainuser.User]{value: stored}
	return nil
}

func (v userView) ListByRoles(ctx context.Context, roles ...domainuser.Role) ([]*domainuser.User, error) {
	v.u.mu.Lock()
	defer v.u.mu.Unlock()
	merged := make(map[domainuser.ID]*domainuser.User)
	v.u.store.mu.RLock()
	for id, user := range v.u.store.users {
		merged[id] = user
	}
	v.u.store.mu.RUnlock()
	for id, st := range v.u.users {
		merged[id] = st.value
	}
	out := make([]*domainuser.User, 0)
	for _, user := range merged {
		if domainuser.HasAnyRole(user.Roles, roles...) {
			out = append(out, cloneUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UserRepository reads and writes committed users directly, outside any unit of work.
type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if user, ok := r.store.users[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.emails[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	if user, ok := r.store.users[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	stored := cloneUser(user)
	stored.Email = domainuser.NormalizeEmail(user.Email)
	if stored.Email == "" {
		return domainuser.ErrEmailRequired
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if owner, taken := r.store.emails[stored.Email]; taken && owner != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if prev, ok := r.store.users[user.ID]; ok && prev.Email != stored.Email {
		delete(r.store.emails, prev.Email)
	}
	r.store.users[user.ID] = stored
	r.store.emails[stored.Email] = user.ID
	return nil
}

func (r *UserRepository) ListByRoles(ctx context.Context, roles ...domainuser.Role) ([]*domainuser.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domainuser.User, 0)
	for _, user := range r.store.users {
		if domainuser.HasAnyRole(user.Roles, roles...) {
			out = append(out, cloneUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
