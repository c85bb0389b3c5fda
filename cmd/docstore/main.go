package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Document is a replicated record as stored by the mock.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	StoreID     string    `json:"store_id"`
	Timestamp   time.Time `json:"timestamp"`
	Documents   int       `json:"documents"`
	FailureRate float64   `json:"failure_rate"`
}

// MockStore is an in-memory document store that speaks the replica HTTP
// protocol and fails a configurable share of writes.
type MockStore struct {
	mu          sync.RWMutex
	docs        map[string]map[string]*Document
	failureRate float64
	storeID     string
	rng         *rand.Rand
	rngMu       sync.Mutex
}

func NewMockStore(failureRate float64) *MockStore {
	return &MockStore{
		docs:        make(map[string]map[string]*Document),
		failureRate: failureRate,
		storeID:     "MOCK_DOCSTORE_" + uuid.New().String()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockStore) shouldFail() bool {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Float64() < m.failureRate
}

func (m *MockStore) put(collection, id string, data json.RawMessage) *Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[collection]
	if !ok {
		c = make(map[string]*Document)
		m.docs[collection] = c
	}
	doc := &Document{Collection: collection, ID: id, Data: data, UpdatedAt: time.Now()}
	c[id] = doc
	return doc
}

func (m *MockStore) get(collection, id string) (*Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[collection][id]
	return doc, ok
}

func (m *MockStore) delete(collection, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[collection][id]; !ok {
		return false
	}
	delete(m.docs[collection], id)
	return true
}

func (m *MockStore) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.docs {
		n += len(c)
	}
	return n
}

type Handler struct {
	store *MockStore
}

func NewHandler(store *MockStore) *Handler {
	return &Handler{store: store}
}

// PutDocument upserts a document.
func (h *Handler) PutDocument(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")

	var data json.RawMessage
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid document",
			"details": err.Error(),
		})
		return
	}

	if h.store.shouldFail() {
		log.Warn().Str("collection", collection).Str("id", id).Msg("Simulated write failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store temporarily unavailable"})
		return
	}

	doc := h.store.put(collection, id, data)
	log.Info().Str("collection", collection).Str("id", id).Int("bytes", len(data)).Msg("Document stored")
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) GetDocument(c *gin.Context) {
	doc, ok := h.store.get(c.Param("collection"), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument answers 404 for unknown documents; the sink treats that as done.
func (h *Handler) DeleteDocument(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")

	if h.store.shouldFail() {
		log.Warn().Str("collection", collection).Str("id", id).Msg("Simulated delete failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store temporarily unavailable"})
		return
	}

	if !h.store.delete(collection, id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	log.Info().Str("collection", collection).Str("id", id).Msg("Document deleted")
	c.Status(http.StatusNoContent)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		StoreID:     h.store.storeID,
		Timestamp:   time.Now(),
		Documents:   h.store.count(),
		FailureRate: h.store.failureRate,
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	v1 := router.Group("/v1/collections/:collection/documents")
	{
		v1.PUT("/:id", handler.PutDocument)
		v1.GET("/:id", handler.GetDocument)
		v1.DELETE("/:id", handler.DeleteDocument)
	}
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.Load(config.ArgEnvPath(os.Args)); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg := config.Get()
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info().
		Str("addr", cfg.DocstoreListenAddr).
		Float64("failure_rate", cfg.DocstoreFailureRate).
		Msg("Starting mock document store")

	router := SetupRouter(NewHandler(NewMockStore(cfg.DocstoreFailureRate)))

	srv := &http.Server{
		Addr:         cfg.DocstoreListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
}
