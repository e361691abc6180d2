package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing database")

// Factory opens one database transaction per unit of work.
type Factory struct {
	DB *gorm.DB
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	tx := f.DB.WithContext(ctx).Begin(&sql.TxOptions{ReadOnly: opts.ReadOnly})
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{
		tx:          tx,
		resources:   NewResourceRepository(tx),
		bookings:    NewBookingRepository(tx),
		waitingList: NewWaitingListRepository(tx),
		users:       NewUserRepository(tx),
	}, nil
}

type Unit struct {
	tx *gorm.DB

	resources   *ResourceRepository
	bookings    *BookingRepository
	waitingList *WaitingListRepository
	users       *UserRepository
}

func (u *Unit) Resources() domainresource.Repository {
	return u.resources
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) WaitingList() domainwaitlist.Repository {
	return u.waitingList
}

func (u *Unit) Users() domainuser.Repository {
	return u.users
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit().Error
}

func (u *Unit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback().Error
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// InjectContext makes the transaction available to stores outside the unit, such as the outbox.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return withTx(ctx, u.tx)
}

var _ uow.UnitOfWork = (*Unit)(nil)
