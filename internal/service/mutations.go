package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/internal/knowledge"
	"github.com/symptom-kbs-mcp-server/pkg/symptom"
)

// edit applies fn to the current snapshot and, when it reports a change,
// persists the result and reloads it so the returned snapshot is the one
// that passed validation again.
func (s *KnowledgeService) edit(ctx context.Context, op string, fn func(*domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error)) (*domain.KnowledgeBase, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst, ok := s.src.(knowledge.WritableSource)
	if !ok {
		return nil, false, domain.ErrReadOnlySource
	}

	kb, err := s.store.Load(ctx, s.src, true)
	if err != nil {
		return nil, false, err
	}

	next, changed, err := fn(kb)
	if err != nil || !changed {
		return kb, false, err
	}

	if err := s.store.Save(ctx, dst, next); err != nil {
		return nil, false, fmt.Errorf("saving knowledge base: %w", err)
	}
	s.invalidate(ctx)

	reloaded, err := s.store.Load(ctx, s.src, false)
	if err != nil {
		return nil, false, err
	}

	s.logger.WithFields(logrus.Fields{
		"operation": op,
		"status":    s.store.Status().Status,
	}).Info("Knowledge base updated")
	return reloaded, true, nil
}

func validateDisease(in knowledge.DiseaseInput) error {
	return requireText("name", in.Name)
}

func validateRule(in knowledge.RuleInput) error {
	if len(symptom.Key(in.IfSymptoms)) == 0 {
		return domain.NewValidationError("if_symptoms", "at least one symptom is required", in.IfSymptoms)
	}
	if err := requireText("then_disease_id", in.ThenDiseaseID); err != nil {
		return err
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return domain.NewValidationError("confidence", "must be between 0 and 1", in.Confidence)
	}
	return nil
}

// AddDisease creates a disease with an id derived from its name.
func (s *KnowledgeService) AddDisease(ctx context.Context, in knowledge.DiseaseInput) (domain.Disease, error) {
	if err := validateDisease(in); err != nil {
		return domain.Disease{}, err
	}

	var id string
	kb, _, err := s.edit(ctx, "add_disease", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, newID := knowledge.AddDisease(kb, in)
		id = newID
		return next, true, nil
	})
	if err != nil {
		return domain.Disease{}, err
	}
	d, _ := knowledge.DiseaseByID(kb, id)
	return d, nil
}

// UpdateDisease replaces the editable fields of disease id.
func (s *KnowledgeService) UpdateDisease(ctx context.Context, id string, in knowledge.DiseaseInput) (domain.Disease, error) {
	if err := validateDisease(in); err != nil {
		return domain.Disease{}, err
	}

	kb, _, err := s.edit(ctx, "update_disease", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, changed := knowledge.UpdateDisease(kb, id, in)
		if !changed {
			return nil, false, notFound("disease", id)
		}
		return next, true, nil
	})
	if err != nil {
		return domain.Disease{}, err
	}
	d, _ := knowledge.DiseaseByID(kb, id)
	return d, nil
}

// DeleteDisease removes disease id. Rules concluding it are kept and show up
// as dangling references in the load status.
func (s *KnowledgeService) DeleteDisease(ctx context.Context, id string) error {
	_, _, err := s.edit(ctx, "delete_disease", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, changed := knowledge.DeleteDisease(kb, id)
		if !changed {
			return nil, false, notFound("disease", id)
		}
		return next, true, nil
	})
	return err
}

// AddRule creates a rule. Its id comes from in.Name or the rule position.
func (s *KnowledgeService) AddRule(ctx context.Context, in knowledge.RuleInput) (domain.Rule, error) {
	if err := validateRule(in); err != nil {
		return domain.Rule{}, err
	}

	var id string
	kb, _, err := s.edit(ctx, "add_rule", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, newID := knowledge.AddRule(kb, in)
		id = newID
		return next, true, nil
	})
	if err != nil {
		return domain.Rule{}, err
	}
	r, _ := knowledge.RuleByID(kb, id)
	return r, nil
}

// UpdateRule replaces rule id.
func (s *KnowledgeService) UpdateRule(ctx context.Context, id string, in knowledge.RuleInput) (domain.Rule, error) {
	if err := validateRule(in); err != nil {
		return domain.Rule{}, err
	}

	kb, _, err := s.edit(ctx, "update_rule", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, changed := knowledge.UpdateRule(kb, id, in)
		if !changed {
			return nil, false, notFound("rule", id)
		}
		return next, true, nil
	})
	if err != nil {
		return domain.Rule{}, err
	}
	r, _ := knowledge.RuleByID(kb, id)
	return r, nil
}

// DeleteRule removes rule id.
func (s *KnowledgeService) DeleteRule(ctx context.Context, id string) error {
	_, _, err := s.edit(ctx, "delete_rule", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, changed := knowledge.DeleteRule(kb, id)
		if !changed {
			return nil, false, notFound("rule", id)
		}
		return next, true, nil
	})
	return err
}

// AddSymptom registers a symptom label. It reports false when an equivalent
// label is already registered.
func (s *KnowledgeService) AddSymptom(ctx context.Context, name string) (bool, error) {
	if err := requireText("name", symptom.Normalize(name)); err != nil {
		return false, err
	}

	_, changed, err := s.edit(ctx, "add_symptom", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, changed := knowledge.AddSymptom(kb, name)
		return next, changed, nil
	})
	return changed, err
}

// RenameSymptom rewrites oldName to newName in the registry, every disease and
// every rule. It reports false when nothing referenced oldName or the two
// names normalize to the same text.
func (s *KnowledgeService) RenameSymptom(ctx context.Context, oldName, newName string) (bool, error) {
	if err := requireText("old", symptom.Normalize(oldName)); err != nil {
		return false, err
	}
	if err := requireText("new", symptom.Normalize(newName)); err != nil {
		return false, err
	}

	_, changed, err := s.edit(ctx, "rename_symptom", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, changed := knowledge.RenameSymptom(kb, oldName, newName)
		return next, changed, nil
	})
	return changed, err
}

// DeleteSymptom removes name from the registry, every disease and every rule.
func (s *KnowledgeService) DeleteSymptom(ctx context.Context, name string) error {
	_, _, err := s.edit(ctx, "delete_symptom", func(kb *domain.KnowledgeBase) (*domain.KnowledgeBase, bool, error) {
		next, changed := knowledge.DeleteSymptom(kb, name)
		if !changed {
			return nil, false, notFound("symptom", name)
		}
		return next, true, nil
	})
	return err
}

// Watch invalidates the snapshot whenever the knowledge file changes on disk.
// It only applies to file sources; for others it does nothing.
func (s *KnowledgeService) Watch(ctx context.Context) error {
	fs, ok := s.src.(*knowledge.FileSource)
	if !ok {
		return nil
	}

	w, err := knowledge.NewWatcher(fs.Path, s.Invalidate, s.logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
	return nil
}

// Close stops the watcher and releases the cache and history backends.
func (s *KnowledgeService) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	if err := s.results.Close(); err != nil {
		s.logger.WithError(err).Warn("Failed to close result cache")
	}
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}
