// Package service is the single entry point the HTTP API, the MCP server and
// the CLI use to query and edit the knowledge base.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/cache"
	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/history"
	"github.com/symptom-kbs-mcp-server/internal/inference"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
)

// KnowledgeService serializes load, invalidate, mutate and persist sequences
// behind one mutex. Queries read shared snapshots and do not take the lock.
type KnowledgeService struct {
	mu      sync.Mutex
	logger  *logrus.Logger
	src     knowledge.Source
	store   *knowledge.Store
	matcher *inference.Matcher
	results cache.ResultCache
	history history.Store
	watcher *knowledge.Watcher
}

// Option configures a KnowledgeService.
type Option func(*KnowledgeService)

// WithResultCache caches diagnosis results. Without it nothing is cached.
func WithResultCache(c cache.ResultCache) Option {
	return func(s *KnowledgeService) {
		if c != nil {
			s.results = c
		}
	}
}

// WithHistory records every diagnosis in h.
func WithHistory(h history.Store) Option {
	return func(s *KnowledgeService) {
		s.history = h
	}
}

// NewKnowledgeService creates a service over src. The store is shared so a
// caller can inspect it directly; a nil store gets a default one.
func NewKnowledgeService(logger *logrus.Logger, src knowledge.Source, store *knowledge.Store, opts ...Option) *KnowledgeService {
	if logger == nil {
		logger = logrus.New()
	}
	if store == nil {
		store = knowledge.NewStore(logger, knowledge.StoreOptions{})
	}

	s := &KnowledgeService{
		logger:  logger,
		src:     src,
		store:   store,
		matcher: inference.NewMatcher(logger),
		results: cache.Noop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SourceKey identifies the knowledge source being served.
func (s *KnowledgeService) SourceKey() string {
	return s.src.Key()
}

// Writable reports whether mutations can be persisted.
func (s *KnowledgeService) Writable() bool {
	_, ok := s.src.(knowledge.WritableSource)
	return ok
}

// Snapshot returns the current knowledge base, loading it if the cached
// snapshot is missing or expired.
func (s *KnowledgeService) Snapshot(ctx context.Context) (*domain.KnowledgeBase, error) {
	return s.store.Load(ctx, s.src, true)
}

// Reload drops the cached snapshot and every cached diagnosis, then reads
// and validates the source again.
func (s *KnowledgeService) Reload(ctx context.Context) (domain.LoadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidate(ctx)
	if _, err := s.store.Load(ctx, s.src, false); err != nil {
		return s.store.Status(), err
	}
	return s.store.Status(), nil
}

// Invalidate drops the cached snapshot without reloading.
func (s *KnowledgeService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate(context.Background())
}

func (s *KnowledgeService) invalidate(ctx context.Context) {
	s.store.Invalidate()
	if err := s.results.Purge(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to purge result cache")
	}
}

// Status reports the outcome of the most recent load.
func (s *KnowledgeService) Status() domain.LoadStatus {
	return s.store.Status()
}

// ValidationReport is the outcome of checking a document without loading it.
type ValidationReport struct {
	Valid    bool          `json:"valid"`
	Status   domain.Status `json:"status"`
	Errors   []string      `json:"errors"`
	Warnings []string      `json:"warnings"`
}

// Validate checks a candidate document with the same steps a load runs. A
// document that cannot be parsed is reported as an error; schema problems and
// consistency warnings are part of the report.
func (s *KnowledgeService) Validate(data []byte, format knowledge.Format) (*ValidationReport, error) {
	doc, err := knowledge.Parse(data, format)
	if err != nil {
		return nil, &domain.MalformedSourceError{Source: "request", Err: err}
	}

	report := &ValidationReport{Errors: []string{}, Warnings: []string{}}
	if ok, errs := knowledge.ValidateSchema(doc); !ok {
		report.Status = domain.StatusInvalidSchema
		report.Errors = errs
		return report, nil
	}

	kb, err := knowledge.Decode(doc)
	if err != nil {
		return nil, &domain.MalformedSourceError{Source: "request", Err: err}
	}

	report.Valid = true
	report.Status = domain.StatusValid
	for _, w := range knowledge.CheckConsistency(kb) {
		report.Warnings = append(report.Warnings, w.String())
	}
	if len(report.Warnings) > 0 {
		report.Status = domain.StatusConsistencyWarnings
	}
	return report, nil
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return domain.NewValidationError(field, "must not be empty", value)
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, domain.ErrNotFound)
}

// IsNotFound reports whether err means the requested item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
