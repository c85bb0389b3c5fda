package services

import (
	"context"

	"github.com/nimasrn/academy-ledger/internal/model"
)

// Transactor is satisfied by every repository through the embedded *pg.DB.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Replicator is satisfied by *outbox.Outbox.
type Replicator interface {
	Record(ctx context.Context, events ...*model.OutboxEvent) error
	Flush(ctx context.Context, events []*model.OutboxEvent)
}

type eventBuffer struct {
	events []*model.OutboxEvent
}

func (b *eventBuffer) add(events ...*model.OutboxEvent) {
	b.events = append(b.events, events...)
}

// runAndReplicate runs fn in one database transaction, appends the events fn
// buffered to the outbox in that same transaction and publishes them once it
// has committed. Operations called from inside fn must use the buffer, never
// runAndReplicate, or they would publish before the outer commit.
func runAndReplicate(ctx context.Context, tx Transactor, rep Replicator, fn func(ctx context.Context, buf *eventBuffer) error) error {
	buf := &eventBuffer{}
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx, buf); err != nil {
			return err
		}
		if rep == nil || len(buf.events) == 0 {
			return nil
		}
		return rep.Record(ctx, buf.events...)
	})
	if err != nil {
		return err
	}
	if rep != nil && len(buf.events) > 0 {
		rep.Flush(ctx, buf.events)
	}
	return nil
}
