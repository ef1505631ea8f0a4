// Package api serves the knowledge base over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/middleware"
	"github.com/symptom-kbs-mcp-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config  domain.ServerConfig
	service *service.KnowledgeService
	logger  *logrus.Logger
	router  *gin.Engine
	server  *http.Server
	version string
}

// NewServer creates a new HTTP server instance
func NewServer(cfg domain.ServerConfig, svc *service.KnowledgeService, logger *logrus.Logger, version string) *Server {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	if cfg.RateLimit > 0 {
		router.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware())
	}

	s := &Server{
		config:  cfg,
		service: svc,
		logger:  logger,
		router:  router,
		version: version,
	}
	s.setupRoutes()

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.handleStatus)
		v1.POST("/reload", s.handleReload)
		v1.POST("/validate", s.handleValidate)

		v1.POST("/diagnose", s.handleDiagnose)
		v1.POST("/conditions", s.handleConditions)
		v1.GET("/history", s.handleHistory)

		v1.GET("/symptoms", s.handleListSymptoms)
		v1.POST("/symptoms", s.handleAddSymptom)
		v1.PUT("/symptoms/:name", s.handleRenameSymptom)
		v1.DELETE("/symptoms/:name", s.handleDeleteSymptom)

		v1.GET("/diseases", s.handleListDiseases)
		v1.POST("/diseases", s.handleAddDisease)
		v1.GET("/diseases/:id", s.handleGetDisease)
		v1.PUT("/diseases/:id", s.handleUpdateDisease)
		v1.DELETE("/diseases/:id", s.handleDeleteDisease)

		v1.GET("/rules", s.handleListRules)
		v1.POST("/rules", s.handleAddRule)
		v1.GET("/rules/:id", s.handleGetRule)
		v1.PUT("/rules/:id", s.handleUpdateRule)
		v1.DELETE("/rules/:id", s.handleDeleteRule)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := s.service.Status()
	code := http.StatusOK
	if status.Status != domain.StatusNotLoaded && !status.Status.Usable() {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status.Status,
		"source":    s.service.SourceKey(),
		"timestamp": time.Now().UTC(),
		"version":   s.version,
	})
}

// handleReady answers 200 only once a usable snapshot is loaded.
func (s *Server) handleReady(c *gin.Context) {
	status := s.service.Status()
	if !status.Status.Usable() {
		c.JSON(http.StatusServiceUnavailable, domain.NewServiceError(
			domain.ErrNotLoaded, "no usable knowledge base is loaded", string(status.Status),
			c.GetString(middleware.CorrelationIDKey)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status.Status, "version": status.Version})
}

// respondError maps service errors to HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var (
		schemaErr     *domain.SchemaError
		malformedErr  *domain.MalformedSourceError
		validationErr *domain.ValidationError
	)

	switch {
	case errors.As(err, &validationErr):
		e := domain.NewServiceError(domain.ErrValidation, validationErr.Error(), "", requestID)
		c.JSON(http.StatusBadRequest, e)
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, domain.NewServiceError(domain.ErrNotFoundCode, err.Error(), "", requestID))
	case errors.Is(err, domain.ErrReadOnlySource):
		c.JSON(http.StatusConflict, domain.NewServiceError(domain.ErrInvalidInput, err.Error(), s.service.SourceKey(), requestID))
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":       domain.ErrInvalidSchema,
			"message":    "knowledge base failed schema validation",
			"errors":     schemaErr.Errors,
			"request_id": requestID,
		})
	case errors.As(err, &malformedErr):
		c.JSON(http.StatusServiceUnavailable, domain.NewServiceError(domain.ErrMalformedSource, "knowledge base could not be read", malformedErr.Err.Error(), requestID))
	default:
		s.logger.WithError(err).WithField("correlation_id", requestID).Error("Unhandled request error")
		c.JSON(http.StatusInternalServerError, domain.NewServiceError(domain.ErrInternalServer, "internal error", "", requestID))
	}
}

// bind decodes the JSON body, answering 400 itself on failure.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, domain.NewServiceError(
			domain.ErrInvalidInput, "invalid request body", err.Error(), c.GetString(middleware.CorrelationIDKey)))
		return false
	}
	return true
}
