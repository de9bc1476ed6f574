package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/archive/internal/dependencies/clock"
	"github.com/mcoot/archive/internal/dependencies/random"
	"github.com/mcoot/archive/internal/games"
	"github.com/mcoot/archive/internal/games/numberguess"
	"github.com/mcoot/archive/internal/menu"
	"github.com/mcoot/archive/internal/services/auth"
	"github.com/mcoot/archive/internal/services/tracker"
	"github.com/mcoot/archive/internal/storage"
	"github.com/mcoot/archive/internal/storage/memory"
	redisstorage "github.com/mcoot/archive/internal/storage/redis"
	"github.com/mcoot/archive/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeSQLite = "sqlite"
	StorageTypeRedis  = "redis"
)

// DefaultSQLitePath is used when StorageType is sqlite and no path is given
const DefaultSQLitePath = "data/archive.db"

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Logger *slog.Logger

	// Services
	AuthService *auth.Service
	Tracker     *tracker.Tracker

	// Registry lists the playable games
	Registry *games.Registry
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "sqlite" or "redis")
	// If empty, defaults to "sqlite"
	StorageType string
	// SQLitePath is the database file for the sqlite backend
	SQLitePath string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg == (auth.Config{}) {
		authCfg = auth.DefaultConfig()
	}

	return newWithDependencies(store, clock.New(), random.New(), authCfg, logger), nil
}

// OpenStorage creates the backend selected by cfg.StorageType
func OpenStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeSQLite
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = DefaultSQLitePath
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		store, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'sqlite' or 'redis'", storageType)
	}
}

// DefaultRegistry registers every game shipped with the application
func DefaultRegistry() *games.Registry {
	registry := &games.Registry{}
	registry.Register(numberguess.ID, numberguess.New)
	return registry
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, authCfg auth.Config, logger *slog.Logger) *App {
	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Logger:      logger,
		AuthService: auth.New(store, clk, authCfg, logger),
		Tracker:     tracker.New(store, clk, logger),
		Registry:    DefaultRegistry(),
	}
}

// Catalog constructs the registered games around term
func (a *App) Catalog(term games.Console) *games.Catalog {
	return games.Discover(a.Registry, games.Deps{
		Clock:   a.Clock,
		Random:  a.Random,
		Console: term,
		Logger:  a.Logger,
	}, a.Logger)
}

// Menu builds the interactive front end on term
func (a *App) Menu(term menu.Terminal, cfg menu.Config) *menu.Menu {
	return menu.New(a.AuthService, a.Tracker, a.Catalog(term), term, cfg, a.Logger)
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Storage.Close()
}
