package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookly/internal/app/uow"
	domainbooking "bookly/internal/domain/booking"
	domainresource "bookly/internal/domain/resource"
	domainuser "bookly/internal/domain/user"
	domainwaitlist "bookly/internal/domain/waitlist"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Transactions need a replica set; read-only units use a plain session.
type Factory struct {
	DB *mongo.Database

	ResourcesRepo   domainresource.Repository
	BookingsRepo    domainbooking.Repository
	WaitingListRepo domainwaitlist.Repository
	UsersRepo       domainuser.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// NewFactory builds a factory with the default repositories for db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:              db,
		ResourcesRepo:   NewResourceRepository(db),
		BookingsRepo:    NewBookingRepository(db),
		WaitingListRepo: NewWaitingListRepository(db),
		UsersRepo:       NewUserRepository(db),
	}
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	unit := &Unit{
		session:     session,
		resources:   f.ResourcesRepo,
		bookings:    f.BookingsRepo,
		waitingList: f.WaitingListRepo,
		users:       f.UsersRepo,
	}
	if opts.ReadOnly {
		return unit, nil
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	unit.inTxn = true
	return unit, nil
}

type Unit struct {
	session mongo.Session
	inTxn   bool

	resources   domainresource.Repository
	bookings    domainbooking.Repository
	waitingList domainwaitlist.Repository
	users       domainuser.Repository
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
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	if err := u.session.CommitTransaction(ctx); err != nil {
		if isWriteConflict(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

func isWriteConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") || cmdErr.Code == 112
	}
	return false
}
