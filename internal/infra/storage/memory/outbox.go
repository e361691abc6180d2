package memory

import (
	"context"
	"time"

	appoutbox "bookly/internal/app/outbox"
	"bookly/internal/app/uow"
	infraoutbox "bookly/internal/infra/outbox"
)

// Outbox stages records in the unit of work found in ctx so they are committed together
// with the aggregates that produced them. It also serves the relay side for the outbox worker.
type Outbox struct {
	store *Store
}

func NewOutbox(store *Store) *Outbox {
	return &Outbox{store: store}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	doc := infraoutbox.NewEventDocument(record, o.store.now().UTC())
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			return mu.stageEvent(doc)
		}
	}
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	o.store.events = append(o.store.events, &doc)
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	now := o.store.now().UTC()
	for _, doc := range o.store.events {
		if !doc.Claimable(now) {
			continue
		}
		doc.State = infraoutbox.StateClaimed
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now
		cp := *doc
		return &cp, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	kept := o.store.events[:0]
	for _, doc := range o.store.events {
		if doc.ID != id {
			kept = append(kept, doc)
		}
	}
	o.store.events = kept
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	for _, doc := range o.store.events {
		if doc.ID == id {
			doc.State = infraoutbox.StateFailed
			doc.NextAttempt = next
			doc.LastError = errMsg
			doc.Attempts++
		}
	}
	return nil
}

// Pending returns the names of events not yet relayed, oldest first.
func (o *Outbox) Pending() []string {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	names := make([]string, 0, len(o.store.events))
	for _, doc := range o.store.events {
		names = append(names, doc.Name)
	}
	return names
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
