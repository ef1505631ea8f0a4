// Package app assembles the knowledge service from the full configuration.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/cache"
	"github.com/symptom-kbs-mcp-server/internal/database"
	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/history"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
	"github.com/symptom-kbs-mcp-server/internal/repository"
	"github.com/symptom-kbs-mcp-server/internal/service"
)

// App holds the knowledge service and the resources behind it.
type App struct {
	Service *service.KnowledgeService
	DB      *database.DB

	logger *logrus.Logger
}

// New builds the service described by cfg: the knowledge source, the
// diagnosis result cache and the search history backend.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	a := &App{logger: logger}

	src, err := a.source(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	results, err := NewResultCache(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []service.Option{service.WithResultCache(results)}
	hist, err := NewHistory(cfg.History, cfg.Database.MigrationsPath, logger)
	if err != nil {
		results.Close()
		a.Close()
		return nil, err
	}
	if hist != nil {
		opts = append(opts, service.WithHistory(hist))
	}

	store := knowledge.NewStore(logger, knowledge.StoreOptions{CacheTTL: cfg.Knowledge.CacheTTL})
	a.Service = service.NewKnowledgeService(logger, src, store, opts...)

	logger.WithFields(logrus.Fields{
		"source":  src.Key(),
		"cache":   cfg.Cache.Backend,
		"history": cfg.History.Driver,
	}).Info("Knowledge service assembled")

	return a, nil
}

func (a *App) source(ctx context.Context, cfg *domain.Config) (knowledge.Source, error) {
	k := cfg.Knowledge

	switch {
	case k.URL != "":
		return knowledge.NewHTTPSource(k.URL, knowledge.HTTPSourceConfig{
			Timeout:   k.HTTPTimeout,
			RateLimit: k.RateLimit,
		}, a.logger), nil

	case k.Revisions:
		dbConfig := database.ConfigFromDomain(cfg.Database)

		if err := migrateUp(dbConfig.URL(), cfg.Database.MigrationsPath, a.logger); err != nil {
			return nil, err
		}

		db, err := database.NewConnection(ctx, dbConfig, a.logger)
		if err != nil {
			return nil, err
		}
		a.DB = db

		repo := repository.NewRevisionRepository(db.Pool, a.logger)
		return repository.NewRevisionSource(repo, "edited through symptom-kbs"), nil

	default:
		return knowledge.NewFileSource(k.Path), nil
	}
}

// NewResultCache returns the diagnosis result cache selected by cfg.Backend.
func NewResultCache(cfg domain.CacheConfig) (cache.ResultCache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		return cache.NewRedisCache(cfg)
	case "none":
		return cache.Noop{}, nil
	case "memory", "":
		return cache.NewMemoryCache(cfg.MaxItems, cfg.DefaultTTL)
	default:
		return nil, fmt.Errorf("invalid cache backend: %s", cfg.Backend)
	}
}

// NewHistory returns the search history store selected by cfg.Driver, or nil
// when history is disabled. The PostgreSQL table comes from the migrations in
// migrationsPath.
func NewHistory(cfg domain.HistoryConfig, migrationsPath string, logger *logrus.Logger) (history.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return history.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		if err := migrateUp(cfg.PostgresURL, migrationsPath, logger); err != nil {
			return nil, err
		}
		return history.NewPostgresStoreFromURL(cfg.PostgresURL)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid history driver: %s", cfg.Driver)
	}
}

// migrateUp applies pending migrations; an empty path skips them.
func migrateUp(databaseURL, migrationsPath string, logger *logrus.Logger) error {
	if migrationsPath == "" {
		return nil
	}
	runner, err := database.NewMigrationRunner(databaseURL, migrationsPath, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up()
}

// Start loads the knowledge base once and starts the file watcher when
// configured. A knowledge base that fails to load is only logged: the
// servers report it through their status endpoints.
func (a *App) Start(ctx context.Context, cfg *domain.Config) {
	if _, err := a.Service.Snapshot(ctx); err != nil {
		a.logger.WithError(err).Warn("Knowledge base not usable yet")
	}

	if cfg.Knowledge.Watch && cfg.Knowledge.URL == "" && !cfg.Knowledge.Revisions {
		if err := a.Service.Watch(ctx); err != nil {
			a.logger.WithError(err).Warn("Knowledge file watcher disabled")
		}
	}
}

// Close releases the service and the database pool.
func (a *App) Close() error {
	var err error
	if a.Service != nil {
		err = a.Service.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	return err
}
