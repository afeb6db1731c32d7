// Command company-codes gives every company without an invite code a
// unique 5-digit code. Companies that already have one are left alone.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/config"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/firestore"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/mongostore"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/observability"
	"github.com/leaderforge/leaderforge-bfa-go/internal/infra/resilience"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"
	"github.com/leaderforge/leaderforge-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline for the migration")
	flag.Parse()

	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.DataBackend == config.BackendMemory {
		logger.Fatal("company-codes needs a persistent DATA_BACKEND")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rcfg := resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff}
	cb := resilience.NewCircuitBreaker("document-store", logger)

	var store port.DirectoryStore
	switch cfg.DataBackend {
	case config.BackendMongo:
		db, err := mongostore.OpenConnection(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		s := mongostore.New(db, cb, rcfg, logger)
		defer s.Close(context.Background())
		store = s
	default:
		client, err := firestore.OpenConnection(ctx, firestore.Options{
			ProjectID:       cfg.FirestoreProjectID,
			Database:        cfg.FirestoreDatabase,
			CredentialsFile: cfg.FirestoreCredentialsFile,
		})
		if err != nil {
			logger.Fatal("failed to connect to Firestore", zap.Error(err))
		}
		s := firestore.New(client, cb, rcfg, logger)
		defer s.Close(context.Background())
		store = s
	}

	svc := service.NewCompanyService(store, nil, resilience.NewBulkhead(1), logger)
	assigned, err := svc.AssignMissingCodes(ctx, rand.New(rand.NewSource(time.Now().UnixNano())))

	names := make([]string, 0, len(assigned))
	for name := range assigned {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		logger.Info("assigned", zap.String("company", name), zap.String("code", assigned[name]))
	}

	if err != nil {
		logger.Error("migration stopped", zap.Int("assigned", len(assigned)), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("migration complete", zap.Int("assigned", len(assigned)))
}
