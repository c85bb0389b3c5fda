package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink keeps documents in memory and fails the first failN writes.
type recordingSink struct {
	mu     sync.Mutex
	docs   map[string]map[string]any
	writes int
	failN  int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{docs: map[string]map[string]any{}}
}

func (s *recordingSink) Name() string { return "memory" }

func (s *recordingSink) Upsert(_ context.Context, collection, docID string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failN > 0 {
		s.failN--
		return errors.New("sink unavailable")
	}
	s.docs[collection+"/"+docID] = doc
	return nil
}

func (s *recordingSink) Delete(_ context.Context, collection, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	delete(s.docs, collection+"/"+docID)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) doc(key string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[key]
	return d, ok
}

func (s *recordingSink) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func studentEvent(t *testing.T, code string) (model.ReplicaEvent, []byte) {
	t.Helper()
	e := model.ReplicaEvent{
		ID:         uuid.New(),
		Collection: model.CollectionStudents,
		DocumentID: code,
		Operation:  model.ReplicaUpsert,
		Payload:    json.RawMessage(`{"student_id":"` + code + `","first_name":"Rahim"}`),
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	return e, data
}

func TestReplicaProcessor_Process(t *testing.T) {
	_, adapter := setupRedis(t)
	sink := newRecordingSink()
	p := NewReplicaProcessor(sink, NewIdempotencyService(adapter, testIdempotencyConfig()))
	ctx := context.Background()
	assert.Equal(t, "replica:memory", p.GetType())

	_, data := studentEvent(t, "STU-2025-0001")
	msg := &queue.Message{ID: "1-0", Data: data}

	require.NoError(t, p.Process(ctx, msg))
	doc, ok := sink.doc("students/STU-2025-0001")
	require.True(t, ok)
	assert.Equal(t, "Rahim", doc["first_name"])

	// redelivery of the same event is skipped
	require.NoError(t, p.Process(ctx, msg))
	assert.Equal(t, 1, sink.writeCount())
}

func TestReplicaProcessor_RetriesThenGivesUp(t *testing.T) {
	_, adapter := setupRedis(t)
	sink := newRecordingSink()
	sink.failN = 10
	p := NewReplicaProcessor(sink, NewIdempotencyService(adapter, testIdempotencyConfig()))
	ctx := context.Background()

	_, data := studentEvent(t, "STU-2025-0002")
	msg := &queue.Message{ID: "2-0", Data: data}

	for i := 0; i < 3; i++ {
		assert.Error(t, p.Process(ctx, msg))
	}
	assert.ErrorIs(t, p.Process(ctx, msg), ErrMaxRetriesExceeded)
	assert.Equal(t, 3, sink.writeCount())
}

func TestReplicaProcessor_SkipsOlderEventForDocument(t *testing.T) {
	_, adapter := setupRedis(t)
	sink := newRecordingSink()
	p := NewReplicaProcessor(sink, NewIdempotencyService(adapter, testIdempotencyConfig()))
	ctx := context.Background()

	upsert, _ := studentEvent(t, "STU-2025-0003")
	upsert.OccurredAt = time.Now().UTC().Add(-time.Minute)
	upsertData, err := json.Marshal(upsert)
	require.NoError(t, err)

	del := model.ReplicaEvent{
		ID:         uuid.New(),
		Collection: model.CollectionStudents,
		DocumentID: "STU-2025-0003",
		Operation:  model.ReplicaDelete,
		OccurredAt: time.Now().UTC(),
	}
	delData, err := json.Marshal(del)
	require.NoError(t, err)

	// the delete lands first, the earlier upsert arrives on redelivery
	require.NoError(t, p.Process(ctx, &queue.Message{ID: "4-0", Data: delData}))
	require.NoError(t, p.Process(ctx, &queue.Message{ID: "4-1", Data: upsertData}))

	_, ok := sink.doc("students/STU-2025-0003")
	assert.False(t, ok)
	assert.Equal(t, 1, sink.writeCount())
}

func TestReplicaProcessor_DropsGarbage(t *testing.T) {
	_, adapter := setupRedis(t)
	sink := newRecordingSink()
	p := NewReplicaProcessor(sink, NewIdempotencyService(adapter, testIdempotencyConfig()))

	require.NoError(t, p.Process(context.Background(), &queue.Message{ID: "3-0", Data: []byte("{not json")}))
	assert.Equal(t, 0, sink.writeCount())
}

func TestProcessorService_EndToEnd(t *testing.T) {
	_, adapter := setupRedis(t)
	sink := newRecordingSink()
	sink.failN = 1

	qc := queue.QueueConfig{
		Name:              "replica",
		ConsumerGroup:     "replica-writers",
		ConsumerName:      "test",
		MaxRetries:        5,
		VisibilityTimeout: 50 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
		BatchSize:         10,
		EnableDLQ:         true,
	}
	svc := NewProcessorService(adapter, Config{Queue: qc, Consumers: 2, Workers: 2})
	svc.RegisterProcessor(NewReplicaProcessor(sink, NewIdempotencyService(adapter, testIdempotencyConfig())))
	require.NoError(t, svc.Start())
	defer svc.Stop()

	publisher, err := queue.NewQueue(adapter, qc)
	require.NoError(t, err)

	event, _ := studentEvent(t, "STU-2025-0003")
	_, err = publisher.PublishJSON(context.Background(), event, map[string]string{"collection": event.Collection})
	require.NoError(t, err)

	// the first write fails and the entry is reclaimed after the visibility timeout
	assert.Eventually(t, func() bool {
		_, ok := sink.doc("students/STU-2025-0003")
		return ok
	}, 3*time.Second, 20*time.Millisecond)
}
