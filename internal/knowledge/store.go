package knowledge

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

// StoreOptions configures the snapshot cache.
type StoreOptions struct {
	CacheTTL  time.Duration // zero keeps snapshots until invalidated
	CacheSize int
}

type cachedSnapshot struct {
	kb     *domain.KnowledgeBase
	status domain.LoadStatus
}

// Store owns the load, validate and cache lifecycle of knowledge snapshots.
// Snapshots it returns are shared and must not be modified in place; the
// mutation methods return new snapshots instead.
type Store struct {
	mu     sync.RWMutex
	cache  *expirable.LRU[string, cachedSnapshot]
	status domain.LoadStatus
	logger *logrus.Logger
	now    func() time.Time
}

// NewStore creates an empty store in the not_loaded state.
func NewStore(logger *logrus.Logger, opts StoreOptions) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 8
	}

	return &Store{
		cache: expirable.NewLRU[string, cachedSnapshot](opts.CacheSize, nil, opts.CacheTTL),
		status: domain.LoadStatus{
			Status:   domain.StatusNotLoaded,
			Warnings: []string{},
		},
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the snapshot for src. With useCache set, an unexpired snapshot
// for the same source is returned without reading. Otherwise the document is
// read, parsed, schema-validated, decoded and consistency-checked.
//
// A read or parse failure yields *domain.MalformedSourceError and a schema
// failure yields *domain.SchemaError; neither touches the cache.
func (s *Store) Load(ctx context.Context, src Source, useCache bool) (*domain.KnowledgeBase, error) {
	kb, _, err := s.LoadWithStatus(ctx, src, useCache)
	return kb, err
}

// LoadWithStatus is Load that also returns the status the snapshot was loaded
// with. The pair is consistent even when another load replaces Status()
// concurrently.
func (s *Store) LoadWithStatus(ctx context.Context, src Source, useCache bool) (*domain.KnowledgeBase, domain.LoadStatus, error) {
	key := src.Key()
	log := s.logger.WithField("source", key)

	if useCache {
		if entry, ok := s.cache.Get(key); ok {
			s.setStatus(entry.status)
			log.Debug("Knowledge base served from cache")
			return entry.kb, entry.status, nil
		}
	}

	data, err := src.Read(ctx)
	if err != nil {
		return nil, domain.LoadStatus{}, s.failMalformed(key, err)
	}

	doc, err := Parse(data, src.Format())
	if err != nil {
		return nil, domain.LoadStatus{}, s.failMalformed(key, err)
	}

	if ok, errs := ValidateSchema(doc); !ok {
		s.setStatus(domain.LoadStatus{
			Source:   key,
			Status:   domain.StatusInvalidSchema,
			Warnings: []string{},
			Errors:   errs,
		})
		log.WithField("errors", len(errs)).Error("Knowledge base failed schema validation")
		return nil, domain.LoadStatus{}, &domain.SchemaError{Errors: errs}
	}

	kb, err := Decode(doc)
	if err != nil {
		return nil, domain.LoadStatus{}, s.failMalformed(key, err)
	}

	warnings := CheckConsistency(kb)
	status := domain.LoadStatus{
		Source:      key,
		Version:     kb.Metadata.Version,
		LastUpdated: kb.Metadata.LastUpdated,
		LoadTime:    s.now().UTC(),
		Status:      domain.StatusValid,
		Warnings:    warningMessages(warnings),
	}
	if len(warnings) > 0 {
		status.Status = domain.StatusConsistencyWarnings
		for _, w := range warnings {
			log.WithFields(logrus.Fields{
				"kind":    w.Kind,
				"rule_id": w.RuleID,
			}).Warn(w.Message)
		}
	}

	s.cache.Add(key, cachedSnapshot{kb: kb, status: status})
	s.setStatus(status)

	log.WithFields(logrus.Fields{
		"version":  kb.Metadata.Version,
		"diseases": len(kb.Diseases),
		"rules":    len(kb.Rules),
		"warnings": len(warnings),
	}).Info("Knowledge base loaded")

	return kb, status, nil
}

func (s *Store) failMalformed(key string, err error) error {
	s.setStatus(domain.LoadStatus{
		Source:   key,
		Status:   domain.StatusError,
		Warnings: []string{},
		Errors:   []string{err.Error()},
	})
	s.logger.WithError(err).WithField("source", key).Error("Failed to load knowledge base")
	return &domain.MalformedSourceError{Source: key, Err: err}
}

// Status reports the outcome of the most recent load.
func (s *Store) Status() domain.LoadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	status.Warnings = append([]string{}, s.status.Warnings...)
	if s.status.Errors != nil {
		status.Errors = append([]string{}, s.status.Errors...)
	}
	return status
}

func (s *Store) setStatus(status domain.LoadStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Invalidate drops every cached snapshot so the next Load re-reads its source.
// The status of the last load is kept.
func (s *Store) Invalidate() {
	s.cache.Purge()
	s.logger.Debug("Knowledge cache invalidated")
}

// Save encodes kb in the source's format, overwrites the document and
// invalidates the cache.
func (s *Store) Save(ctx context.Context, src WritableSource, kb *domain.KnowledgeBase) error {
	data, err := Encode(kb, src.Format())
	if err != nil {
		return err
	}
	if err := src.Write(ctx, data); err != nil {
		return err
	}

	s.Invalidate()
	s.logger.WithField("source", src.Key()).Info("Knowledge base saved")
	return nil
}
