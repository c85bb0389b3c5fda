// Package replica writes outbox events to the read-only document replica.
// The relational store stays the source of truth; a sink only mirrors it.
package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nimasrn/academy-ledger/internal/model"
)

const (
	SinkFirestore = "firestore"
	SinkHTTP      = "http"
	SinkNone      = "none"
)

// Sink stores denormalized documents keyed by collection and document id.
// Upsert merges into an existing document.
type Sink interface {
	Name() string
	Upsert(ctx context.Context, collection, docID string, doc map[string]any) error
	Delete(ctx context.Context, collection, docID string) error
	Close() error
}

// Apply writes one event to the sink.
func Apply(ctx context.Context, s Sink, e *model.ReplicaEvent) error {
	if e.Collection == "" || e.DocumentID == "" {
		return fmt.Errorf("replica event %s has no target document", e.ID)
	}

	switch e.Operation {
	case model.ReplicaUpsert:
		doc := map[string]any{}
		if len(e.Payload) > 0 {
			if err := json.Unmarshal(e.Payload, &doc); err != nil {
				return fmt.Errorf("decode payload of %s: %w", e.ID, err)
			}
		}
		doc["updated_at"] = e.OccurredAt.UTC().Format(time.RFC3339)
		return s.Upsert(ctx, e.Collection, e.DocumentID, doc)
	case model.ReplicaDelete:
		return s.Delete(ctx, e.Collection, e.DocumentID)
	default:
		return fmt.Errorf("unknown replica operation %q", e.Operation)
	}
}

// Open builds the sink named by kind. SinkNone yields a nil sink.
func Open(ctx context.Context, kind string, fs FirestoreConfig, hc *HTTPConfig) (Sink, error) {
	switch kind {
	case SinkFirestore:
		return NewFirestoreSink(ctx, fs)
	case SinkHTTP:
		return NewHTTPSink(hc)
	case SinkNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown replica sink %q", kind)
	}
}
