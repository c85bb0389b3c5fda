// Package outbox carries replica events from the relational store to the
// replica stream. Events are appended inside the business transaction and
// published after it commits; a cron relay picks up whatever the API failed
// to publish.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/nimasrn/academy-ledger/pkg/prom"
)

type Store interface {
	Append(ctx context.Context, events []*model.OutboxEvent) error
	Pending(ctx context.Context, olderThan time.Time, limit int) ([]*model.OutboxEvent, error)
	CountPending(ctx context.Context) (int64, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, ids []uuid.UUID, cause string) error
}

// Publisher is satisfied by *queue.Queue.
type Publisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

const (
	SourceAPI   = "api"
	SourceRelay = "relay"
)

type Outbox struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

// New returns an outbox. A nil publisher keeps events pending in the store
// for the relay.
func New(store Store, publisher Publisher) *Outbox {
	return &Outbox{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Record appends events using the transaction carried by ctx.
func (o *Outbox) Record(ctx context.Context, events ...*model.OutboxEvent) error {
	return o.store.Append(ctx, events)
}

// Flush publishes events that were recorded by a committed transaction.
// It never returns an error: failures are logged as ExternalSyncError and
// the events stay pending.
func (o *Outbox) Flush(ctx context.Context, events []*model.OutboxEvent) {
	if len(events) == 0 || o.publisher == nil {
		return
	}
	o.publish(ctx, events, SourceAPI)
}

// Relay publishes pending events older than minAge, at most limit of them,
// and returns how many went out.
func (o *Outbox) Relay(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	if o.publisher == nil {
		return 0, nil
	}
	events, err := o.store.Pending(ctx, o.now().UTC().Add(-minAge), limit)
	if err != nil {
		return 0, err
	}
	published := o.publish(ctx, events, SourceRelay)

	if n, err := o.store.CountPending(ctx); err == nil {
		prom.SetOutboxPending(n)
	}
	return published, nil
}

func (o *Outbox) publish(ctx context.Context, events []*model.OutboxEvent, source string) int {
	var ok, failed []uuid.UUID
	var lastErr error

	for _, e := range events {
		_, err := o.publisher.PublishJSON(ctx, e.ReplicaEvent, map[string]string{
			"collection": e.Collection,
			"operation":  string(e.Operation),
		})
		if err != nil {
			failed = append(failed, e.ID)
			lastErr = err
			continue
		}
		ok = append(ok, e.ID)
		prom.AddOutboxPublished(e.Collection, source)
	}

	if err := o.store.MarkPublished(ctx, ok, o.now().UTC()); err != nil {
		logger.Error("outbox: mark published failed", "count", len(ok), "error", err)
	}
	if len(failed) > 0 {
		syncErr := apperr.ExternalSync("replica stream", lastErr)
		logger.Warn("outbox: publish failed", "source", source, "failed", len(failed), "error", syncErr)
		if err := o.store.MarkFailed(ctx, failed, lastErr.Error()); err != nil {
			logger.Error("outbox: mark failed failed", "count", len(failed), "error", err)
		}
	}
	return len(ok)
}
