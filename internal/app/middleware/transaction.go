package middleware

import (
	"context"
	"fmt"

	"bookly/internal/app/commands"
	"bookly/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction runs the rest of the chain inside one unit of work. The unit is rolled back on
// error or panic and committed otherwise.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			var opts uow.TxOptions
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, fmt.Errorf("begin %s: %w", cmd.Key(), err)
			}
			execCtx := uow.Attach(ctx, unit)
			done := false
			defer func() {
				if !done {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err = nextFn(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			done = true
			if err := unit.Commit(execCtx); err != nil {
				_ = unit.Rollback(execCtx)
				return nil, fmt.Errorf("commit %s: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
