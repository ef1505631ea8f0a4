// Package mcp exposes the knowledge service to AI agents over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/service"
)

// Server registers the knowledge tools with the MCP SDK and runs them over
// stdio or streamable HTTP.
type Server struct {
	config    domain.MCPConfig
	service   *service.KnowledgeService
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates an MCP server over svc.
func NewServer(cfg domain.MCPConfig, svc *service.KnowledgeService, logger *logrus.Logger) *Server {
	if cfg.ServerName == "" {
		cfg.ServerName = "symptom-kbs"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "1.0.0"
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s := &Server{
		config:    cfg,
		service:   svc,
		mcpServer: mcpServer,
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// Run serves until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log := s.logger.WithFields(logrus.Fields{
		"transport": s.config.TransportType,
		"source":    s.service.SourceKey(),
	})

	switch s.config.TransportType {
	case "", "stdio":
		log.Info("MCP server starting")
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	case "http":
		return s.serveHTTP(ctx, log)
	default:
		return fmt.Errorf("unsupported transport: %s", s.config.TransportType)
	}
}

func (s *Server) serveHTTP(ctx context.Context, log *logrus.Entry) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", s.config.HTTPPort).Info("MCP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
