package commands

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/docmodel/internal/cli/config"
	"github.com/conduit-lang/docmodel/internal/orm/assets"
	"github.com/conduit-lang/docmodel/internal/orm/cache"
	"github.com/conduit-lang/docmodel/internal/orm/crud"
	"github.com/conduit-lang/docmodel/internal/orm/dynamic"
	"github.com/conduit-lang/docmodel/internal/orm/migrate"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
	"github.com/conduit-lang/docmodel/internal/orm/validation"
	"github.com/conduit-lang/docmodel/internal/store"
	"github.com/conduit-lang/docmodel/internal/store/memstore"
	"github.com/conduit-lang/docmodel/internal/store/redisstore"
	"github.com/conduit-lang/docmodel/internal/store/sqlstore"
)

// App wires the store, the model registry and the ORM components for one command run
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    store.Store
	Registry *schema.Registry
	Cache    *cache.Cache
	Enricher *dynamic.Enricher
	Ops      *crud.Operations
	Migrator *migrate.Migrator
	NoColor  bool

	prompter prompter
}

// NewApp loads the model declarations and opens the configured store
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	registry := schema.NewRegistry()
	if err := registry.LoadFile(cfg.ModelsFile); err != nil {
		return nil, err
	}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	return Assemble(cfg, logger, st, registry), nil
}

// Assemble builds an App around an open store and a populated registry
func Assemble(cfg *config.Config, logger *zap.Logger, st store.Store, registry *schema.Registry, opts ...crud.Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	technical := st.Collection(cfg.Store.TechnicalCollection)
	c := cache.New(registry, st, logger)
	enricher := dynamic.New(technical, logger)

	crudOpts := []crud.Option{
		crud.WithEnricher(enricher),
		crud.WithAssets(assets.New(cfg.Media.Root, cfg.Media.URL, logger)),
		crud.WithLogger(logger),
	}
	crudOpts = append(crudOpts, opts...)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Registry: registry,
		Cache:    c,
		Enricher: enricher,
		Ops:      crud.NewOperations(c, validation.NewEngine(), crudOpts...),
		Migrator: migrate.NewMigrator(c, technical, migrate.WithEnricher(enricher), migrate.WithLogger(logger)),
		prompter: surveyPrompter{},
	}
}

// Close flushes the logger and releases the store
func (a *App) Close() error {
	_ = a.Logger.Sync()
	return a.Store.Close()
}

// OpenStore opens the document store selected by store.driver
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverRedis:
		st, err := redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverSQLite, config.DriverPgx, config.DriverPostgres:
		st, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.WriteAttempts > 1 {
			st.SetRetryConfig(sqlstore.RetryConfig{MaxAttempts: cfg.WriteAttempts, BaseBackoff: sqlstore.DefaultBaseBackoff})
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// NewLogger builds the command logger from log.level and log.development
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
