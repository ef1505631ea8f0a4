package service

import (
	"context"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
)

// Symptoms lists every distinct symptom referenced by diseases and rules.
func (s *KnowledgeService) Symptoms(ctx context.Context) ([]string, error) {
	kb, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return knowledge.AllSymptoms(kb), nil
}

// RegisteredSymptoms lists the managed symptom registry.
func (s *KnowledgeService) RegisteredSymptoms(ctx context.Context) ([]string, error) {
	kb, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return knowledge.RegisteredSymptoms(kb), nil
}

// Diseases lists all diseases in document order.
func (s *KnowledgeService) Diseases(ctx context.Context) ([]domain.Disease, error) {
	kb, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return append([]domain.Disease{}, kb.Diseases...), nil
}

// Disease returns one disease by id.
func (s *KnowledgeService) Disease(ctx context.Context, id string) (domain.Disease, error) {
	kb, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Disease{}, err
	}
	d, ok := knowledge.DiseaseByID(kb, id)
	if !ok {
		return domain.Disease{}, notFound("disease", id)
	}
	return d, nil
}

// SearchDiseases filters diseases by name substring and by symptom. Empty
// criteria are ignored; with both empty every disease is returned.
func (s *KnowledgeService) SearchDiseases(ctx context.Context, name, symptom string) ([]domain.Disease, error) {
	kb, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	found := kb.Diseases
	if name != "" {
		found = knowledge.FindByName(kb, name)
	}
	if symptom != "" {
		found = knowledge.FindBySymptom(&domain.KnowledgeBase{Diseases: found}, symptom)
	}
	return append([]domain.Disease{}, found...), nil
}

// Rules lists all rules in document order.
func (s *KnowledgeService) Rules(ctx context.Context) ([]domain.Rule, error) {
	kb, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return append([]domain.Rule{}, kb.Rules...), nil
}

// Rule returns one rule by id.
func (s *KnowledgeService) Rule(ctx context.Context, id string) (domain.Rule, error) {
	kb, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Rule{}, err
	}
	r, ok := knowledge.RuleByID(kb, id)
	if !ok {
		return domain.Rule{}, notFound("rule", id)
	}
	return r, nil
}
