package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/nimasrn/academy-ledger/internal/config"
	"github.com/nimasrn/academy-ledger/internal/handlers"
	"github.com/nimasrn/academy-ledger/internal/outbox"
	"github.com/nimasrn/academy-ledger/internal/queue"
	"github.com/nimasrn/academy-ledger/internal/replica"
	"github.com/nimasrn/academy-ledger/internal/repository"
	"github.com/nimasrn/academy-ledger/internal/services"
	"github.com/nimasrn/academy-ledger/pkg/auth"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
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
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	if cfg.AuthJWTSecret == "" {
		logger.Error("AUTH_JWT_SECRET is required")
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CORSMiddleware(cfg.HttpCORSOrigins))
	s.Use(xhttp.CompressMiddleware(6))
	// spreadsheets and pdfs are built in full before the response starts
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout, "/export", "/pdf", ".pdf", "/imports/template"))

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.IsDev())
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "api",
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
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	if cfg.AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	// repositories
	ledgerRepo := repository.NewLedgerRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	catalogueRepo := repository.NewCatalogueRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	contactRepo := repository.NewContactRepository(db)
	userRepo := repository.NewUserRepository(db)
	importRepo := repository.NewImportRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	// replication stays off entirely when no sink is configured
	var replicator services.Replicator
	if cfg.ReplicaSink != replica.SinkNone && cfg.ReplicaSink != "" {
		publisher, err := queue.NewQueue(redisAdap, queue.QueueConfig{
			Name:          cfg.QueueName,
			ConsumerGroup: cfg.QueueConsumerGroup,
			ConsumerName:  cfg.QueueConsumerName,
			MaxLen:        cfg.QueueMaxLen,
			EnableDLQ:     cfg.QueueEnableDLQ,
		})
		if err != nil {
			logger.Error("failed creating replica stream publisher", "error", err)
			return
		}
		replicator = outbox.New(outboxRepo, publisher)
	} else {
		logger.Warn("replication disabled", "sink", cfg.ReplicaSink)
	}

	// services
	ledgerService := services.NewLedgerService(ledgerRepo, transactionRepo, catalogueRepo, studentRepo, batchRepo, replicator, cfg.DefaultCurrencyCode)
	studentService := services.NewStudentService(studentRepo, batchRepo, ledgerService, academicRepo, catalogueRepo, replicator)
	authService := services.NewAuthService(userRepo, auth.NewTokenIssuer(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, cfg.AuthTokenTTL), replicator)
	catalogueService := services.NewCatalogueService(catalogueRepo, batchRepo)
	teacherService := services.NewTeacherService(teacherRepo)
	academicService := services.NewAcademicService(academicRepo, studentRepo, batchRepo, catalogueRepo, replicator)
	contactService := services.NewContactService(contactRepo)
	importService := services.NewImportService(importRepo, studentRepo, batchRepo, catalogueRepo, ledgerService)
	reportService := services.NewReportService(ledgerService, batchRepo, cfg.OrgName)

	s.Use(handlers.AuthMiddleware(authService))

	// v1 handlers
	g := s.Router.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": db,
		"redis":    redisAdap,
	}))
	handlers.RegisterAuthRoutes(g, handlers.NewAuthHandler(authService))
	handlers.RegisterStudentRoutes(g, handlers.NewStudentHandler(studentService))
	handlers.RegisterTeacherRoutes(g, handlers.NewTeacherHandler(teacherService))
	handlers.RegisterCatalogueRoutes(g, handlers.NewCatalogueHandler(catalogueService))
	handlers.RegisterLedgerRoutes(g, handlers.NewLedgerHandler(ledgerService, reportService))
	handlers.RegisterImportRoutes(g, handlers.NewImportHandler(importService))
	handlers.RegisterAcademicRoutes(g, handlers.NewAcademicHandler(academicService))
	handlers.RegisterContactRoutes(g, handlers.NewContactHandler(contactService))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}
