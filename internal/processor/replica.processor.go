package processor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/queue"
	"github.com/nimasrn/academy-ledger/internal/replica"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/nimasrn/academy-ledger/pkg/prom"
)

// ReplicaProcessor applies replica events from the stream to a sink.
type ReplicaProcessor struct {
	sink        replica.Sink
	idempotency *IdempotencyService
}

func NewReplicaProcessor(sink replica.Sink, idempotency *IdempotencyService) *ReplicaProcessor {
	return &ReplicaProcessor{
		sink:        sink,
		idempotency: idempotency,
	}
}

func (p *ReplicaProcessor) GetType() string {
	return "replica:" + p.sink.Name()
}

// Process returns nil to ack and an error to leave the entry pending for
// another delivery. Undecodable entries are acked and dropped.
func (p *ReplicaProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var event model.ReplicaEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("replica: undecodable stream entry dropped", "stream_id", msg.ID, "error", err)
		return nil
	}
	eventID := event.ID.String()

	pc, err := p.idempotency.AcquireProcessingLock(ctx, eventID)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		prom.AddDuplicateSkipped()
		logger.Debug("replica: event already applied", "event_id", eventID)
		return nil
	case errors.Is(err, ErrMaxRetriesExceeded):
		// the queue dead-letters the entry once its own delivery count runs out
		logger.Error("replica: retry budget exhausted", "event_id", eventID, "collection", event.Collection)
		return err
	case err != nil:
		return err
	}
	defer func() {
		_ = p.idempotency.ReleaseLock(ctx, pc)
	}()

	// a retried or late-relayed event must not undo a newer write
	document := event.Collection + "/" + event.DocumentID
	stale, err := p.idempotency.IsStale(ctx, document, event.OccurredAt)
	if err != nil {
		return err
	}
	if stale {
		prom.AddDuplicateSkipped()
		logger.Info("replica: stale event skipped", "event_id", eventID, "document", document, "occurred_at", event.OccurredAt)
		if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
			logger.Error("replica: mark success failed", "event_id", eventID, "error", err)
		}
		return nil
	}

	start := time.Now()
	err = replica.Apply(ctx, p.sink, &event)
	prom.AddSinkWrite(p.sink.Name(), event.Collection, time.Since(start).Seconds(), err != nil)
	if err != nil {
		if markErr := p.idempotency.MarkFailure(ctx, pc, err); markErr != nil {
			logger.Error("replica: mark failure failed", "event_id", eventID, "error", markErr)
		}
		return err
	}

	if err := p.idempotency.AdvanceDocument(ctx, document, event.OccurredAt); err != nil {
		logger.Error("replica: document mark failed", "event_id", eventID, "document", document, "error", err)
	}
	if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
		logger.Error("replica: mark success failed", "event_id", eventID, "error", err)
	}
	logger.Debug("replica: event applied",
		"event_id", eventID,
		"collection", event.Collection,
		"document", event.DocumentID,
		"operation", event.Operation,
		"retry_count", pc.RetryCount)
	return nil
}
