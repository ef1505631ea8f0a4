package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/cache"
	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/history"
	"github.com/symptom-kbs-mcp-server/pkg/symptom"
)

// Diagnosis is the answer to one symptom query.
type Diagnosis struct {
	Symptoms         []string                 `json:"symptoms"`
	Results          []domain.InferenceResult `json:"results"`
	KnowledgeVersion string                   `json:"knowledge_version"`
	Cached           bool                     `json:"cached"`
}

// Diagnose runs forward-chaining inference for the reported symptoms. Results
// are cached per snapshot and every query with at least one usable symptom is
// recorded in the search history.
func (s *KnowledgeService) Diagnose(ctx context.Context, symptoms []string) (*Diagnosis, error) {
	start := time.Now()

	// the key must name the snapshot the results are computed from
	kb, status, err := s.store.LoadWithStatus(ctx, s.src, true)
	if err != nil {
		return nil, err
	}
	reported := symptom.Clean(symptoms)

	d := &Diagnosis{
		Symptoms:         reported,
		KnowledgeVersion: kb.Metadata.Version,
	}

	key := cache.DiagnosisKey(status.Source, status.LoadTime, reported)
	results, hit, err := s.results.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("Result cache lookup failed")
	}
	if hit {
		d.Results = results
		d.Cached = true
	} else {
		d.Results = s.matcher.Infer(reported, kb)
		if err := s.results.Set(ctx, key, d.Results); err != nil {
			s.logger.WithError(err).Warn("Failed to cache diagnosis")
		}
	}

	if len(symptom.Key(reported)) > 0 {
		s.record(ctx, d)
	}

	s.logger.WithFields(logrus.Fields{
		"symptoms": len(reported),
		"results":  len(d.Results),
		"cached":   d.Cached,
		"duration": time.Since(start),
	}).Info("Diagnosis completed")

	return d, nil
}

func (s *KnowledgeService) record(ctx context.Context, d *Diagnosis) {
	if s.history == nil {
		return
	}

	entry := &history.Entry{
		Symptoms:         d.Symptoms,
		ResultCount:      len(d.Results),
		KnowledgeVersion: d.KnowledgeVersion,
	}
	if len(d.Results) > 0 {
		entry.TopDiseaseID = d.Results[0].DiseaseID
		entry.TopConfidence = d.Results[0].Confidence
	}

	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.WithError(err).Warn("Failed to record search history")
	}
}

// RankConditions scores every disease by direct symptom overlap.
func (s *KnowledgeService) RankConditions(ctx context.Context, symptoms []string) ([]domain.ConditionMatch, error) {
	kb, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.matcher.RankConditions(symptom.Clean(symptoms), kb), nil
}

// HistorySummary is what the history endpoints report.
type HistorySummary struct {
	Total       int64                  `json:"total"`
	Recent      []*history.Entry       `json:"recent"`
	TopDiseases []history.DiseaseCount `json:"top_diseases"`
}

// RecentSearches returns the newest recorded searches and the diseases most
// often ranked first. It returns an empty summary when history is disabled.
func (s *KnowledgeService) RecentSearches(ctx context.Context, limit int) (*HistorySummary, error) {
	summary := &HistorySummary{
		Recent:      []*history.Entry{},
		TopDiseases: []history.DiseaseCount{},
	}
	if s.history == nil {
		return summary, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var err error
	if summary.Total, err = s.history.Count(ctx); err != nil {
		return nil, err
	}
	if summary.Recent, err = s.history.Recent(ctx, limit); err != nil {
		return nil, err
	}
	if summary.TopDiseases, err = s.history.TopDiseases(ctx, 5); err != nil {
		return nil, err
	}
	return summary, nil
}
