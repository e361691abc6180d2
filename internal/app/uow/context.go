package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type unitKey struct{}

// ContextInjector is implemented by units that carry driver state (sessions, transactions) in context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

// Attach returns ctx carrying the unit and any driver state it injects.
// Repositories of a Mongo or Postgres unit only see the transaction through that state.
func Attach(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return context.WithValue(ctx, unitKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}
