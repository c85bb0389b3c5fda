package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimasrn/academy-ledger/internal/config"
	"github.com/nimasrn/academy-ledger/internal/outbox"
	"github.com/nimasrn/academy-ledger/internal/processor"
	"github.com/nimasrn/academy-ledger/internal/queue"
	"github.com/nimasrn/academy-ledger/internal/replica"
	"github.com/nimasrn/academy-ledger/internal/repository"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/nimasrn/academy-ledger/pkg/prom"
	"github.com/nimasrn/academy-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(config.ArgEnvPath(os.Args))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.Info("starting processor", "version", version, "commit", commit, "date", date, "sink", cfg.ReplicaSink)

	ctx := context.Background()
	sink, err := replica.Open(ctx, cfg.ReplicaSink, replica.FirestoreConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
	}, httpSinkConfig(cfg))
	if err != nil {
		logger.Error("failed to open replica sink", "error", err)
		return
	}
	if sink == nil {
		logger.Warn("replica sink is none, nothing to process")
		return
	}
	defer sink.Close()

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.IsDev())
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "processor",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if cfg.AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	queueConfig := queue.QueueConfig{
		Name:              cfg.QueueName,
		ConsumerGroup:     cfg.QueueConsumerGroup,
		ConsumerName:      cfg.QueueConsumerName,
		MaxRetries:        cfg.QueueMaxRetries,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		MaxLen:            cfg.QueueMaxLen,
		EnableDLQ:         cfg.QueueEnableDLQ,
	}

	// relay: outbox rows the api could not publish
	publisher, err := queue.NewQueue(redisAdap, queueConfig)
	if err != nil {
		logger.Error("failed creating replica stream publisher", "error", err)
		return
	}
	relay, err := outbox.NewRelay(outbox.New(repository.NewOutboxRepository(db), publisher), outbox.RelayConfig{
		Schedule:  cfg.OutboxRelaySchedule,
		MinAge:    cfg.OutboxRelayMinAge,
		BatchSize: cfg.OutboxRelayBatch,
	})
	if err != nil {
		logger.Error("invalid outbox relay schedule", "schedule", cfg.OutboxRelaySchedule, "error", err)
		return
	}

	idempotencyConfig := processor.DefaultIdempotencyConfig()
	idempotencyConfig.MaxRetries = cfg.QueueMaxRetries
	idempotencyService := processor.NewIdempotencyService(redisAdap, idempotencyConfig)

	service := processor.NewProcessorService(redisAdap, processor.Config{
		Queue:     queueConfig,
		Consumers: 1,
		Workers:   cfg.ProcessorWorkers,
	})
	service.RegisterProcessor(processor.NewReplicaProcessor(sink, idempotencyService))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}
	relay.Start()

	<-c
	relay.Stop()
	service.Stop()
}

func httpSinkConfig(cfg *config.Config) *replica.HTTPConfig {
	hc := &replica.HTTPConfig{
		Timeout:                 cfg.DocstoreTimeout,
		MaxRetries:              3,
		RetryDelay:              100 * time.Millisecond,
		MaxConns:                256,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: cfg.DocstoreCircuitThreshold,
		CircuitBreakerTimeout:   cfg.DocstoreCircuitResetAfter,
	}
	if cfg.DocstorePrimaryURL != "" {
		hc.Endpoints = append(hc.Endpoints, replica.EndpointConfig{Name: "primary", URL: cfg.DocstorePrimaryURL, Weight: 100})
	}
	if cfg.DocstoreSecondaryURL != "" {
		hc.Endpoints = append(hc.Endpoints, replica.EndpointConfig{Name: "secondary", URL: cfg.DocstoreSecondaryURL, Weight: 60})
	}
	return hc
}
