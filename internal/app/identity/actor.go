package identity

import (
	"context"
	"errors"
	"strings"

	domainuser "bookly/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("identity: authentication required")
	ErrForbidden       = errors.New("identity: action not permitted")
)

// Actor is the caller on whose behalf a command or query runs.
type Actor struct {
	UserID string
	Roles  []domainuser.Role
}

func FromUser(u *domainuser.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: string(u.ID), Roles: append([]domainuser.Role(nil), u.Roles...)}
}

func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.UserID) != ""
}

func (a Actor) IsStaff() bool {
	return domainuser.HasAnyRole(a.Roles, domainuser.StaffRoles...)
}

func (a Actor) Require() error {
	if !a.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func (a Actor) RequireStaff() error {
	if err := a.Require(); err != nil {
		return err
	}
	if !a.IsStaff() {
		return ErrForbidden
	}
	return nil
}

// RequireOwnerOrStaff allows the owner of a record or any staff member.
func (a Actor) RequireOwnerOrStaff(ownerID string) error {
	if err := a.Require(); err != nil {
		return err
	}
	if a.UserID == ownerID || a.IsStaff() {
		return nil
	}
	return ErrForbidden
}

// Principal is implemented by commands and queries that run on behalf of an actor.
type Principal interface {
	ActorIdentity() Actor
}

// RequireAuthenticated rejects principal messages without an authenticated actor.
type RequireAuthenticated struct{}

func (RequireAuthenticated) Authorize(_ context.Context, message any) error {
	if p, ok := message.(Principal); ok {
		return p.ActorIdentity().Require()
	}
	return nil
}
