package identity

import (
	"errors"
	"testing"

	domainuser "bookly/internal/domain/user"
)

func TestActorChecks(t *testing.T) {
	anonymous := Actor{}
	if err := anonymous.Require(); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	member := Actor{UserID: "u1", Roles: []domainuser.Role{domainuser.RoleUser}}
	if err := member.RequireStaff(); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := member.RequireOwnerOrStaff("u1"); err != nil {
		t.Fatalf("owner must pass: %v", err)
	}
	if err := member.RequireOwnerOrStaff("u2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign record, got %v", err)
	}

	manager := Actor{UserID: "m1", Roles: []domainuser.Role{"Manager"}}
	if err := manager.RequireStaff(); err != nil {
		t.Fatalf("manager is staff: %v", err)
	}
	if err := manager.RequireOwnerOrStaff("u2"); err != nil {
		t.Fatalf("staff may act on any record: %v", err)
	}
}
