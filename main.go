package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/odunayomike/report-card-generator-sub003/internal/cache"
	"github.com/odunayomike/report-card-generator-sub003/internal/config"
	"github.com/odunayomike/report-card-generator-sub003/internal/handlers"
	"github.com/odunayomike/report-card-generator-sub003/internal/lock"
	"github.com/odunayomike/report-card-generator-sub003/internal/reportcard"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories/memory"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories/postgres"
	"github.com/odunayomike/report-card-generator-sub003/internal/services"
	"github.com/odunayomike/report-card-generator-sub003/internal/utils"
	"github.com/odunayomike/report-card-generator-sub003/internal/validator"
	"github.com/odunayomike/report-card-generator-sub003/pkg"
)

const snapshotTTL = 6 * time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.Environment)
	slogLogger := logger.Slog()

	// Storage
	var (
		repo    repositories.Repository
		closeDB func()
	)
	switch cfg.Storage {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart")
		repo = memory.NewRepository()
	default:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		if err := pkg.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		repo = postgres.NewPostgreSQLRepository(db)
		closeDB = func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
	}

	// Redis is optional unless it backs the attempt lock
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			if cfg.LockBackend == "redis" {
				log.Fatalf("Failed to initialize Redis: %v", err)
			}
			logger.Warn("Redis unavailable, snapshot cache disabled", "error", err)
			redisClient = nil
		}
	}

	var (
		locker    lock.Locker = lock.NewKeyedMutex()
		snapshots *cache.SnapshotCache
	)
	if redisClient != nil {
		snapshots = cache.NewSnapshotCache(cache.NewRedisCache(redisClient, "cbt", slogLogger), snapshotTTL, slogLogger)
		if cfg.LockBackend == "redis" {
			locker = lock.NewRedisLocker(redisClient, slogLogger)
		}
	}

	// Events and report-card delivery
	publisher, err := cfg.Events.CreateEventPublisher(slogLogger)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}
	var sink reportcard.Sink = reportcard.NewLogSink(slogLogger)
	if cfg.Events.Enabled {
		sink = reportcard.NewPublisherSink(publisher)
	}
	dispatcher := reportcard.NewDispatcher(sink, reportcard.DispatcherConfig{
		Workers:   cfg.DispatchWorkers,
		QueueSize: cfg.DispatchQueue,
	}, slogLogger)

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:          repo,
		Locker:        locker,
		Snapshots:     snapshots,
		Publisher:     publisher,
		Dispatcher:    dispatcher,
		Validator:     validator.New(cfg.Exam),
		Settings:      cfg.Exam,
		Logger:        slogLogger,
		SweepInterval: cfg.SweepInterval,
	})

	rootCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	serviceManager.Start(rootCtx)

	// Identity
	auth := handlers.HeaderAuthMiddleware()
	if cfg.Casdoor.Enabled() {
		auth = handlers.CasdoorAuthMiddleware(handlers.NewTokenParser(cfg.Casdoor))
	} else {
		logger.Warn("Casdoor not configured, trusting X-User-ID and X-User-Role headers")
	}

	handlerManager := handlers.NewHandlerManager(serviceManager, logger, auth)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := serviceManager.Stop(ctx); err != nil {
		logger.Error("Failed to stop services", "error", err)
	}

	if closeDB != nil {
		closeDB()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
