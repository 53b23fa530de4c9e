package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/dependencies/random"
	"github.com/mcoot/numerus/internal/realtime"
	"github.com/mcoot/numerus/internal/storage"
	"github.com/mcoot/numerus/internal/storage/memory"
	"github.com/mcoot/numerus/internal/storage/postgres"
	redisstorage "github.com/mcoot/numerus/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired server components
type App struct {
	// Storage
	Storage storage.Storage
	Broker  realtime.Broker

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Service fronts storage and fans every write out to the room hubs
	Service *realtime.Service

	closers []func() error
	logger  *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds PostgreSQL settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
	// NATSConfig enables the NATS broker so several server instances share change
	// feeds. If nil, changes stay in process.
	NATSConfig *realtime.NATSConfig
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()
	rnd := random.New()

	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(clk)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig, clk)
		if err != nil {
			return nil, err
		}
		closers = append(closers, redisStore.Close)
		store = redisStore
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := postgres.New(ctx, *cfg.PostgresConfig, clk)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() error { pgStore.Close(); return nil })
		store = pgStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	var broker realtime.Broker
	if cfg.NATSConfig != nil {
		natsBroker, err := realtime.NewNATSBroker(*cfg.NATSConfig, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		broker = natsBroker
	} else {
		broker = realtime.NewLocalBroker()
	}

	app := newWithDependencies(store, broker, clk, rnd, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, broker realtime.Broker, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	return &App{
		Storage: store,
		Broker:  broker,
		Clock:   clk,
		Random:  rnd,
		Service: realtime.NewService(store, broker, logger),
		logger:  logger,
	}
}

// Close stops the hubs and releases the broker and storage connections
func (a *App) Close() error {
	a.Service.Close()

	var errs []error
	if err := a.Broker.Close(); err != nil {
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing application", slog.Any("error", err))
		return err
	}
	return nil
}
