package replica

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func TestEndpointMetrics_RecordSuccess(t *testing.T) {
	metrics := NewEndpointMetrics()

	metrics.RecordSuccess(100)
	metrics.RecordSuccess(200)

	assert.Equal(t, int64(2), metrics.TotalRequests.Load())
	assert.Equal(t, int64(2), metrics.SuccessfulReqs.Load())
	assert.Equal(t, int64(0), metrics.FailedReqs.Load())
	assert.Equal(t, float64(1.0), metrics.SuccessRate())
	assert.Equal(t, int64(150), metrics.AvgLatencyMs())
}

func TestEndpointMetrics_RecordFailure(t *testing.T) {
	metrics := NewEndpointMetrics()

	metrics.RecordSuccess(100)
	metrics.RecordFailure()
	metrics.RecordFailure()

	assert.Equal(t, int64(3), metrics.TotalRequests.Load())
	assert.Equal(t, int64(2), metrics.FailedReqs.Load())
	assert.InDelta(t, 0.333, metrics.SuccessRate(), 0.01)
	assert.Equal(t, int32(2), metrics.ConsecutiveFails.Load())
}

func TestEndpointMetrics_P95Latency(t *testing.T) {
	metrics := NewEndpointMetrics()
	for i := int64(0); i < 100; i++ {
		metrics.RecordSuccess(i * 10)
	}

	p95 := metrics.P95LatencyMs()
	assert.GreaterOrEqual(t, p95, int64(900))
	assert.LessOrEqual(t, p95, int64(990))
}

func TestEndpoint_IsAvailable(t *testing.T) {
	e := NewEndpoint("test", "http://localhost:8090", 100, &fasthttp.Client{})

	e.SetState(StateDegraded)
	assert.True(t, e.IsAvailable())

	e.SetState(StateUnhealthy)
	assert.False(t, e.IsAvailable())

	t.Run("open circuit stays closed to traffic before timeout", func(t *testing.T) {
		e.SetState(StateCircuitOpen)
		e.circuitOpenUntil.Store(time.Now().Add(10 * time.Second).Unix())
		assert.False(t, e.IsAvailable())
		assert.Equal(t, 0.0, e.CalculateScore())
	})

	t.Run("open circuit half-opens after timeout", func(t *testing.T) {
		e.SetState(StateCircuitOpen)
		e.circuitOpenUntil.Store(time.Now().Add(-1 * time.Second).Unix())
		assert.True(t, e.IsAvailable())
		assert.Equal(t, StateDegraded, e.GetState())
	})
}

func TestEndpoint_CalculateScore(t *testing.T) {
	e := NewEndpoint("test", "http://localhost:8090", 100, &fasthttp.Client{})
	for i := 0; i < 10; i++ {
		e.metrics.RecordSuccess(100)
	}

	healthy := e.CalculateScore()
	assert.Greater(t, healthy, 0.0)

	e.SetState(StateDegraded)
	assert.InDelta(t, healthy/2, e.CalculateScore(), 0.001)

	e.SetState(StateHealthy)
	e.metrics.ConsecutiveFails.Store(3)
	assert.InDelta(t, healthy*0.7, e.CalculateScore(), 0.001)
}

func TestNewHTTPSink_Validation(t *testing.T) {
	_, err := NewHTTPSink(nil)
	assert.ErrorContains(t, err, "config is required")

	_, err = NewHTTPSink(&HTTPConfig{})
	assert.ErrorContains(t, err, "at least one endpoint is required")
}

func TestHTTPSink_SelectBestEndpoint(t *testing.T) {
	sink, err := NewHTTPSink(&HTTPConfig{
		Endpoints: []EndpointConfig{
			{Name: "primary", URL: "http://localhost:8091", Weight: 100},
			{Name: "secondary", URL: "http://localhost:8092", Weight: 50},
		},
	})
	require.NoError(t, err)
	defer sink.Close()

	best, err := sink.SelectBestEndpoint()
	require.NoError(t, err)
	assert.Equal(t, "primary", best.name)

	sink.endpoints[0].SetState(StateUnhealthy)
	best, err = sink.SelectBestEndpoint()
	require.NoError(t, err)
	assert.Equal(t, "secondary", best.name)

	sink.endpoints[1].SetState(StateUnhealthy)
	_, err = sink.SelectBestEndpoint()
	assert.Equal(t, ErrNoAvailableEndpoints, err)

	stats := sink.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "UNHEALTHY", stats[0].State)
}

func TestHTTPSink_CircuitBreaker(t *testing.T) {
	sink, err := NewHTTPSink(&HTTPConfig{
		Endpoints:               []EndpointConfig{{Name: "only", URL: "http://localhost:8091", Weight: 100}},
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   10 * time.Second,
	})
	require.NoError(t, err)
	defer sink.Close()

	e := sink.endpoints[0]
	e.metrics.ConsecutiveFails.Store(2)
	sink.checkCircuitBreaker(e)
	assert.Equal(t, StateHealthy, e.GetState())

	e.metrics.ConsecutiveFails.Store(3)
	sink.checkCircuitBreaker(e)
	assert.Equal(t, StateCircuitOpen, e.GetState())
	assert.Greater(t, e.circuitOpenUntil.Load(), time.Now().Unix())
}

// memoryStore is a minimal document store served over an in-memory listener.
type memoryStore struct {
	mu       sync.Mutex
	docs     map[string]map[string]any
	failures int
}

func (m *memoryStore) handle(ctx *fasthttp.RequestCtx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		return
	}
	key := string(ctx.Path())
	switch string(ctx.Method()) {
	case fasthttp.MethodPut:
		var doc map[string]any
		if err := json.Unmarshal(ctx.PostBody(), &doc); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		m.docs[key] = doc
	case fasthttp.MethodDelete:
		if _, ok := m.docs[key]; !ok {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		delete(m.docs, key)
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
}

func newMemorySink(t *testing.T, store *memoryStore) *HTTPSink {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, store.handle) }()
	t.Cleanup(func() { _ = ln.Close() })

	sink, err := NewHTTPSink(&HTTPConfig{
		Endpoints:  []EndpointConfig{{Name: "mem", URL: "http://docstore", Weight: 100}},
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Dial:       DialerFor(func() (net.Conn, error) { return ln.Dial() }),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestHTTPSink_UpsertAndDelete(t *testing.T) {
	store := &memoryStore{docs: map[string]map[string]any{}, failures: 1}
	sink := newMemorySink(t, store)
	ctx := context.Background()

	// the first attempt hits a 503 and is retried
	require.NoError(t, sink.Upsert(ctx, "students", "STU-2025-0001", map[string]any{"first_name": "Rahim"}))
	assert.Equal(t, "Rahim", store.docs["/v1/collections/students/documents/STU-2025-0001"]["first_name"])
	assert.Equal(t, int64(1), sink.endpoints[0].metrics.FailedReqs.Load())

	require.NoError(t, sink.Delete(ctx, "students", "STU-2025-0001"))
	assert.Empty(t, store.docs)

	// deleting twice is not an error
	require.NoError(t, sink.Delete(ctx, "students", "STU-2025-0001"))

	store.failures = 10
	err := sink.Upsert(ctx, "students", "STU-2025-0002", map[string]any{})
	assert.ErrorContains(t, err, "failed after 3 attempts")
}
