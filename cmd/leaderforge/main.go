package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/calendar"
	"github.com/leaderforge/leaderforge-bfa-go/internal/config"
	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/handler"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/cache"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/firestore"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/memstore"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/mongostore"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/observability"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/tribe"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"
	"github.com/leaderforge/leaderforge-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_backend", cfg.DataBackend),
		zap.String("week_timezone", cfg.WeekLocation.String()),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("catalog_cache_ttl", cfg.CatalogCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "leaderforge-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store, closeStore, err := openStore(cfg, resilienceCfg, logger)
	if err != nil {
		logger.Fatal("failed to open document store", zap.Error(err))
	}
	defer closeStore(context.Background())

	content := tribe.NewClient(
		httpClient,
		cfg.TribeContentURL,
		cfg.TribeAPIToken,
		cfg.TribeCDNURL,
		resilience.NewCircuitBreaker("tribe", logger),
		resilienceCfg,
		logger,
	)

	// --- Cache ---
	reportCache := cache.New[*domain.WeeklyMetrics](cfg.CacheTTL)
	defer reportCache.Close()
	catalogCache := cache.New[[]domain.Training](cfg.CatalogCacheTTL)
	defer catalogCache.Close()

	// --- Services ---
	catalog := service.NewTrainingCatalog(content, catalogCache, store, metrics, logger)
	services := handler.Services{
		Aggregator: service.NewAggregator(store, reportCache, bulkhead, calendar.New(cfg.WeekLocation), metrics, logger),
		Activity:   service.NewActivityService(store, bulkhead, logger),
		Company:    service.NewCompanyService(store, catalog, bulkhead, logger),
		Catalog:    catalog,
		Sessions:   service.NewSessionResolver(store, cfg.JWTSecret, cfg.JWTIssuer, logger),
		Store:      store,
	}

	// --- Router ---
	router := handler.NewRouter(services, cfg.AllowedOrigins, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore connects the configured document store backend.
func openStore(cfg *config.Config, rcfg resilience.Config, logger *zap.Logger) (port.Store, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	cb := resilience.NewCircuitBreaker("document-store", logger)

	switch cfg.DataBackend {
	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		db, err := mongostore.OpenConnection(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using MongoDB as data backend", zap.String("database", cfg.MongoDatabase))
		s := mongostore.New(db, cb, rcfg, logger)
		return s, s.Close, nil

	case config.BackendMemory:
		logger.Warn("using in-memory data backend, data is lost on restart")
		return memstore.New(), noop, nil

	default:
		client, err := firestore.OpenConnection(context.Background(), firestore.Options{
			ProjectID:       cfg.FirestoreProjectID,
			Database:        cfg.FirestoreDatabase,
			CredentialsFile: cfg.FirestoreCredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using Firestore as data backend",
			zap.String("project_id", cfg.FirestoreProjectID),
			zap.String("database", cfg.FirestoreDatabase),
		)
		s := firestore.New(client, cb, rcfg, logger)
		return s, s.Close, nil
	}
}
