package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/engine"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/receipts"
	"wallet-ledger-go/internal/revenue"
	"wallet-ledger-go/internal/settings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// A missing .env is fine; variables may come from the shell or the container.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is the wired ledger stack shared by the CLIs.
type Services struct {
	DbService *database.Service
	Resolver  *settings.Resolver
	Engine    *engine.Engine
	Receipts  *receipts.Builder
	Revenue   *revenue.Aggregator
	Location  *time.Location

	cache *settings.RedisCache
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the store and wires the resolver, engine and
// read-side services over it. The Redis settings cache is attached only
// when configured and reachable.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	loc, err := time.LoadLocation(cfg.Settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger timezone %q: %w", cfg.Settings.Timezone, err)
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	opts := []settings.Option{settings.WithLocation(loc)}
	var cache *settings.RedisCache
	if cfg.Cache.Enabled() {
		cache, err = settings.NewRedisCache(cfg.Cache)
		if err == nil {
			err = cache.Ping(ctx)
		}
		if err != nil {
			zap.L().Warn("Settings cache unavailable, reading settings from the database",
				zap.String("addr", cfg.Cache.RedisAddr),
				zap.Error(err))
			if cache != nil {
				cache.Close()
			}
			cache = nil
		} else {
			opts = append(opts, settings.WithCache(cache, cfg.Cache.Ttl))
			zap.L().Info("Settings cache enabled", zap.String("addr", cfg.Cache.RedisAddr))
		}
	}

	resolver := settings.NewResolver(dbService, dbService, dbService, opts...)

	return &Services{
		DbService: dbService,
		Resolver:  resolver,
		Engine:    engine.NewEngine(dbService, dbService, resolver),
		Receipts:  receipts.NewBuilder(dbService, dbService, dbService),
		Revenue:   revenue.NewAggregator(dbService, loc),
		Location:  loc,
		cache:     cache,
	}, nil
}

// InitializeDatabaseOnly opens just the store, for schema and seed tooling.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}

func (cs *Services) Close() {
	if cs.cache != nil {
		cs.cache.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
