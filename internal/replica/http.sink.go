package replica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/valyala/fasthttp"
)

var (
	ErrNoAvailableEndpoints = errors.New("no available document store endpoints")
)

type EndpointMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	LastLatencyMs    atomic.Int64
	ConsecutiveFails atomic.Int32
	LastErrorTime    atomic.Int64
	LastSuccessTime  atomic.Int64

	mu             sync.RWMutex
	latencyHistory []int64
	maxHistorySize int
}

func NewEndpointMetrics() *EndpointMetrics {
	return &EndpointMetrics{
		latencyHistory: make([]int64, 0, 100),
		maxHistorySize: 100,
	}
}

func (m *EndpointMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.LastLatencyMs.Store(latencyMs)
	m.ConsecutiveFails.Store(0)
	m.LastSuccessTime.Store(time.Now().Unix())

	m.mu.Lock()
	if len(m.latencyHistory) >= m.maxHistorySize {
		m.latencyHistory = m.latencyHistory[1:]
	}
	m.latencyHistory = append(m.latencyHistory, latencyMs)
	m.mu.Unlock()
}

func (m *EndpointMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
	m.LastErrorTime.Store(time.Now().Unix())
}

func (m *EndpointMetrics) AvgLatencyMs() int64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / total
}

func (m *EndpointMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

func (m *EndpointMetrics) P95LatencyMs() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencyHistory) == 0 {
		return 0
	}

	sorted := make([]int64, len(m.latencyHistory))
	copy(sorted, m.latencyHistory)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type EndpointState int

const (
	StateHealthy EndpointState = iota
	StateDegraded
	StateUnhealthy
	StateCircuitOpen
)

func (s EndpointState) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateUnhealthy:
		return "UNHEALTHY"
	case StateCircuitOpen:
		return "CIRCUIT_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Endpoint is one document store base URL.
type Endpoint struct {
	name             string
	url              string
	client           *fasthttp.Client
	metrics          *EndpointMetrics
	state            atomic.Int32
	weight           atomic.Int32
	lastHealthCheck  atomic.Int64
	circuitOpenUntil atomic.Int64
}

func NewEndpoint(name, url string, weight int, client *fasthttp.Client) *Endpoint {
	e := &Endpoint{
		name:    name,
		url:     url,
		client:  client,
		metrics: NewEndpointMetrics(),
	}
	e.state.Store(int32(StateHealthy))
	e.weight.Store(int32(weight))
	return e
}

func (e *Endpoint) GetState() EndpointState {
	return EndpointState(e.state.Load())
}

func (e *Endpoint) SetState(state EndpointState) {
	e.state.Store(int32(state))
}

// IsAvailable reports whether requests may go to e. An open circuit whose
// timeout has passed moves to degraded and lets one request through.
func (e *Endpoint) IsAvailable() bool {
	state := e.GetState()
	if state == StateCircuitOpen {
		if time.Now().Unix() > e.circuitOpenUntil.Load() {
			e.SetState(StateDegraded)
			return true
		}
		return false
	}
	return state != StateUnhealthy
}

// CalculateScore ranks endpoints; higher is better, 0 means unusable.
func (e *Endpoint) CalculateScore() float64 {
	if !e.IsAvailable() {
		return 0.0
	}

	baseWeight := float64(e.weight.Load())
	successScore := e.metrics.SuccessRate() * 100

	// 0ms = 100 points, 5000ms+ = 0
	latencyScore := 100.0
	if avg := e.metrics.AvgLatencyMs(); avg > 0 {
		latencyScore = 100.0 * (1.0 - (float64(avg) / 5000.0))
		if latencyScore < 0 {
			latencyScore = 0
		}
	}

	recentPenalty := 1.0 - (float64(e.metrics.ConsecutiveFails.Load()) * 0.1)
	if recentPenalty < 0.1 {
		recentPenalty = 0.1
	}

	statePenalty := 1.0
	switch e.GetState() {
	case StateDegraded:
		statePenalty = 0.5
	case StateUnhealthy, StateCircuitOpen:
		statePenalty = 0.0
	}

	return (successScore*0.4 + latencyScore*0.4 + baseWeight*0.2) * recentPenalty * statePenalty
}

type HTTPConfig struct {
	Endpoints               []EndpointConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	HealthCheckInterval     time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	// Dial overrides the network dialer of every endpoint client.
	Dial fasthttp.DialFunc
}

type EndpointConfig struct {
	Name   string
	URL    string
	Weight int
}

// HTTPSink replicates into a document store speaking
// PUT/DELETE /v1/collections/{collection}/documents/{id}.
type HTTPSink struct {
	config    *HTTPConfig
	endpoints []*Endpoint
	mu        sync.RWMutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewHTTPSink(config *HTTPConfig) (*HTTPSink, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Endpoints) == 0 {
		return nil, errors.New("at least one endpoint is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.HealthCheckInterval == 0 {
		config.HealthCheckInterval = 30 * time.Second
	}
	if config.CircuitBreakerThreshold == 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout == 0 {
		config.CircuitBreakerTimeout = 30 * time.Second
	}

	s := &HTTPSink{
		config:    config,
		endpoints: make([]*Endpoint, 0, len(config.Endpoints)),
		stopCh:    make(chan struct{}),
	}
	for _, ec := range config.Endpoints {
		client := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			Dial:                config.Dial,
		}
		s.endpoints = append(s.endpoints, NewEndpoint(ec.Name, ec.URL, ec.Weight, client))
		logger.Info("docstore endpoint initialized", "name", ec.Name, "url", ec.URL, "weight", ec.Weight)
	}

	s.wg.Add(2)
	go s.healthChecker()
	go s.metricsCollector()

	return s, nil
}

func (s *HTTPSink) Name() string {
	return SinkHTTP
}

func (s *HTTPSink) Upsert(ctx context.Context, collection, docID string, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return s.send(ctx, fasthttp.MethodPut, documentPath(collection, docID), body)
}

func (s *HTTPSink) Delete(ctx context.Context, collection, docID string) error {
	return s.send(ctx, fasthttp.MethodDelete, documentPath(collection, docID), nil)
}

func documentPath(collection, docID string) string {
	return fmt.Sprintf("/v1/collections/%s/documents/%s", url.PathEscape(collection), url.PathEscape(docID))
}

// SelectBestEndpoint returns the available endpoint with the highest score.
func (s *HTTPSink) SelectBestEndpoint() (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Endpoint
	var bestScore float64
	for _, e := range s.endpoints {
		if !e.IsAvailable() {
			continue
		}
		if score := e.CalculateScore(); score > bestScore {
			bestScore = score
			best = e
		}
	}
	if best == nil {
		return nil, ErrNoAvailableEndpoints
	}
	return best, nil
}

func (s *HTTPSink) send(ctx context.Context, method, path string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}

		endpoint, err := s.SelectBestEndpoint()
		if err != nil {
			lastErr = err
			continue
		}

		start := time.Now()
		_, err = s.doRequest(ctx, endpoint, method, path, body)
		latency := time.Since(start).Milliseconds()
		if err != nil {
			endpoint.metrics.RecordFailure()
			s.checkCircuitBreaker(endpoint)
			logger.Warn("docstore request failed", "endpoint", endpoint.name, "path", path, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		endpoint.metrics.RecordSuccess(latency)
		logger.Debug("docstore request done", "endpoint", endpoint.name, "method", method, "path", path, "latency_ms", latency)
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", s.config.MaxRetries+1, lastErr)
}

func (s *HTTPSink) doRequest(ctx context.Context, e *Endpoint, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(e.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.config.Timeout)
	}
	if err := e.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	code := resp.StatusCode()
	// deleting a document that never reached the replica is fine
	if method == fasthttp.MethodDelete && code == fasthttp.StatusNotFound {
		return nil, nil
	}
	if code < 200 || code > 299 {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", code, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

func (s *HTTPSink) checkCircuitBreaker(e *Endpoint) {
	fails := e.metrics.ConsecutiveFails.Load()
	if fails >= int32(s.config.CircuitBreakerThreshold) {
		e.SetState(StateCircuitOpen)
		e.circuitOpenUntil.Store(time.Now().Add(s.config.CircuitBreakerTimeout).Unix())
		logger.Warn("docstore circuit opened", "endpoint", e.name, "consecutive_fails", fails, "timeout", s.config.CircuitBreakerTimeout)
	}
}

func (s *HTTPSink) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthChecks()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HTTPSink) performHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	s.mu.RLock()
	endpoints := make([]*Endpoint, len(s.endpoints))
	copy(endpoints, s.endpoints)
	s.mu.RUnlock()

	for _, e := range endpoints {
		healthy := s.checkHealth(ctx, e)
		e.lastHealthCheck.Store(time.Now().Unix())

		oldState := e.GetState()
		newState := oldState
		if healthy {
			if oldState == StateUnhealthy || oldState == StateDegraded {
				newState = StateHealthy
			}
		} else {
			newState = StateUnhealthy
		}

		if newState != oldState {
			e.SetState(newState)
			logger.Info("docstore endpoint state changed", "endpoint", e.name, "old_state", oldState.String(), "new_state", newState.String())
		}
	}
}

func (s *HTTPSink) checkHealth(ctx context.Context, e *Endpoint) bool {
	body, err := s.doRequest(ctx, e, fasthttp.MethodGet, "/health", nil)
	if err != nil {
		return false
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return false
	}
	return health.Status == "healthy"
}

func (s *HTTPSink) metricsCollector() {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evaluateEndpoints()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HTTPSink) evaluateEndpoints() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.endpoints {
		if e.GetState() == StateCircuitOpen {
			continue
		}

		rate := e.metrics.SuccessRate()
		avg := e.metrics.AvgLatencyMs()
		if rate < 0.8 || avg > 5000 {
			if e.GetState() != StateDegraded {
				e.SetState(StateDegraded)
				logger.Warn("docstore endpoint degraded", "endpoint", e.name, "success_rate", rate, "avg_latency_ms", avg)
			}
		} else if rate > 0.95 && avg < 2000 {
			if e.GetState() != StateHealthy {
				e.SetState(StateHealthy)
				logger.Info("docstore endpoint recovered", "endpoint", e.name)
			}
		}
	}
}

type EndpointStats struct {
	Name             string
	URL              string
	State            string
	Score            float64
	TotalRequests    int64
	SuccessRate      float64
	AvgLatencyMs     int64
	P95LatencyMs     int64
	ConsecutiveFails int32
}

// Stats returns per-endpoint statistics, best score first.
func (s *HTTPSink) Stats() []EndpointStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(s.endpoints))
	for _, e := range s.endpoints {
		stats = append(stats, EndpointStats{
			Name:             e.name,
			URL:              e.url,
			State:            e.GetState().String(),
			Score:            e.CalculateScore(),
			TotalRequests:    e.metrics.TotalRequests.Load(),
			SuccessRate:      e.metrics.SuccessRate(),
			AvgLatencyMs:     e.metrics.AvgLatencyMs(),
			P95LatencyMs:     e.metrics.P95LatencyMs(),
			ConsecutiveFails: e.metrics.ConsecutiveFails.Load(),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Score > stats[j].Score
	})
	return stats
}

func (s *HTTPSink) Close() error {
	close(s.stopCh)
	s.wg.Wait()
	logger.Info("docstore sink closed")
	return nil
}

// DialerFor returns a fasthttp dial function that always connects through
// dial, whatever address the request names.
func DialerFor(dial func() (net.Conn, error)) fasthttp.DialFunc {
	return func(string) (net.Conn, error) {
		return dial()
	}
}
