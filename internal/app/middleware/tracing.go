package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bookly/internal/app/commands"
	"bookly/internal/app/queries"
)

func Tracing(tracer trace.Tracer) CommandMiddleware {
	if tracer == nil {
		panic("middleware: tracer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx, span := tracer.Start(ctx, "command "+cmd.Key(), trace.WithAttributes(attribute.String("app.command", cmd.Key())))
			defer span.End()
			res, err := nextFn(ctx, cmd)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return res, err
		})
	}
}

func QueryTracing(tracer trace.Tracer) QueryMiddleware {
	if tracer == nil {
		panic("middleware: tracer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			ctx, span := tracer.Start(ctx, "query "+q.Key(), trace.WithAttributes(attribute.String("app.query", q.Key())))
			defer span.End()
			res, err := nextFn(ctx, q)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return res, err
		})
	}
}
