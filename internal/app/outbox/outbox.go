package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"bookly/internal/domain/shared/events"
)

// EventRecord is a domain event serialized for the outbox. Headers travel with the relayed
// message; the relay reads "traceparent" from them.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox stages records in the unit of work carried by ctx.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
}

// Waker is notified after a unit of work carrying outbox records committed.
type Waker interface {
	Wake()
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	id := uuid.NewString()
	if e.IDGenerator != nil {
		id = e.IDGenerator()
	}
	return EventRecord{
		ID:         id,
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{"aggregate-id": ev.AggregateID()},
	}, nil
}

// RecordDomainEvents encodes evs and stages them in box, stamping each record with the
// trace context of ctx.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	propagator := otel.GetTextMapPropagator()
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if rec.Headers == nil {
			rec.Headers = map[string]string{}
		}
		propagator.Inject(ctx, propagation.MapCarrier(rec.Headers))
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
