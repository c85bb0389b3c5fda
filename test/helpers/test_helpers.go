package helpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/repository"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/nimasrn/academy-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, _ := repository.OpenTestDB(t)
	return db
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	// adapters are cached by name
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestCurrency(t *testing.T, db *pg.DB, code string) *model.Currency {
	c, err := repository.NewCatalogueRepository(db).CreateCurrency(context.Background(), &model.Currency{
		Code:         code,
		Name:         code,
		Symbol:       code[:1],
		ExchangeRate: decimal.NewFromInt(1),
		IsDefault:    true,
		IsActive:     true,
	})
	require.NoError(t, err)
	return c
}

func CreateTestBatch(t *testing.T, db *pg.DB, name, code string) *model.Batch {
	b, err := repository.NewBatchRepository(db).Create(context.Background(), &model.Batch{
		Name:     name,
		Code:     code,
		Status:   model.BatchActive,
		IsActive: true,
	})
	require.NoError(t, err)
	return b
}

// MemorySink is an in-memory replica.Sink.
type MemorySink struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func NewMemorySink() *MemorySink {
	return &MemorySink{docs: map[string]map[string]any{}}
}

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) Upsert(_ context.Context, collection, docID string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collection + "/" + docID
	merged, ok := s.docs[key]
	if !ok {
		merged = map[string]any{}
		s.docs[key] = merged
	}
	for k, v := range doc {
		merged[k] = v
	}
	return nil
}

func (s *MemorySink) Delete(_ context.Context, collection, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, collection+"/"+docID)
	return nil
}

func (s *MemorySink) Close() error { return nil }

func (s *MemorySink) Doc(collection, docID string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[collection+"/"+docID]
	return d, ok
}

func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
