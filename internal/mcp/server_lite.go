package mcp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/cache"
	litecfg "github.com/symptom-kbs-mcp-server/internal/config"
	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/history"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
	"github.com/symptom-kbs-mcp-server/internal/logging"
	"github.com/symptom-kbs-mcp-server/internal/service"
)

// LiteServer is a self-contained MCP server: the knowledge document is a local
// file or a read-only URL, results are cached in memory and searches are
// recorded in SQLite.
type LiteServer struct {
	*Server
	config       *litecfg.LiteConfig
	historyStore history.Store
	logger       *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithHistoryStore sets a custom history store.
func WithHistoryStore(store history.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.historyStore = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.logger == nil {
		server.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	}
	logger := server.logger

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	results, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	if server.historyStore == nil && cfg.HistoryEnabled {
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.historyStore = store
	}

	var src knowledge.Source = knowledge.NewFileSource(cfg.KnowledgePath)
	if cfg.KnowledgeURL != "" {
		src = knowledge.NewHTTPSource(cfg.KnowledgeURL, knowledge.HTTPSourceConfig{}, logger)
	}

	store := knowledge.NewStore(logger, knowledge.StoreOptions{CacheTTL: cfg.KnowledgeTTL})
	svcOpts := []service.Option{service.WithResultCache(results)}
	if server.historyStore != nil {
		svcOpts = append(svcOpts, service.WithHistory(server.historyStore))
	}
	svc := service.NewKnowledgeService(logger, src, store, svcOpts...)

	server.Server = NewServer(domain.MCPConfig{
		ServerName:    "symptom-kbs-lite",
		ServerVersion: "1.0.0",
		TransportType: cfg.Transport,
		HTTPPort:      cfg.HTTPPort,
	}, svc, logger)

	logger.WithFields(logrus.Fields{
		"source":  src.Key(),
		"history": server.historyStore != nil,
	}).Info("Lite server initialized")

	return server, nil
}

// Start loads the knowledge base, starts the file watcher when enabled and
// serves until ctx is cancelled. A knowledge base that fails to load is
// reported through knowledge_status instead of stopping the server.
func (s *LiteServer) Start(ctx context.Context) error {
	if _, err := s.service.Snapshot(ctx); err != nil {
		s.logger.WithError(err).Warn("Knowledge base not usable yet")
	}

	if s.config.Watch && s.config.KnowledgeURL == "" {
		if err := s.service.Watch(ctx); err != nil {
			s.logger.WithError(err).Warn("Knowledge file watcher disabled")
		}
	}

	return s.Run(ctx)
}

// Service returns the knowledge service behind the tools.
func (s *LiteServer) Service() *service.KnowledgeService {
	return s.service
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if err := s.service.Close(); err != nil {
		s.logger.WithError(err).Error("Failed to close knowledge service")
		return err
	}
	return nil
}
