package uow

import (
	"context"

	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Resources() domainresource.Repository
	Bookings() domainbooking.Repository
	WaitingList() domainwaitlist.Repository
	Users() domainuser.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
