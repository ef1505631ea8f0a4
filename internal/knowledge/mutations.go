package knowledge

import (
	"fmt"
	"strings"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/pkg/symptom"
)

const maxIDLength = 40

// DiseaseInput carries the editable fields of a disease.
type DiseaseInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Symptoms    []string `json:"symptoms"`
	Diagnostics []string `json:"diagnostics"`
	Treatment   []string `json:"treatment"`
	References  string   `json:"references"`
}

func (in DiseaseInput) disease(id string) domain.Disease {
	return domain.Disease{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Symptoms:    symptom.Clean(in.Symptoms),
		Diagnostics: symptom.Clean(in.Diagnostics),
		Treatment:   symptom.Clean(in.Treatment),
		References:  strings.TrimSpace(in.References),
	}
}

// RuleInput carries the editable fields of a rule. Name only seeds the id of
// a new rule.
type RuleInput struct {
	Name          string   `json:"name,omitempty"`
	IfSymptoms    []string `json:"if_symptoms"`
	ThenDiseaseID string   `json:"then_disease_id"`
	Confidence    float64  `json:"confidence"`
}

func (in RuleInput) rule(id string) domain.Rule {
	return domain.Rule{
		ID:            id,
		IfSymptoms:    symptom.Clean(in.IfSymptoms),
		ThenDiseaseID: strings.TrimSpace(in.ThenDiseaseID),
		Confidence:    clampConfidence(in.Confidence),
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

func orEmpty(kb *domain.KnowledgeBase) *domain.KnowledgeBase {
	if kb == nil {
		return &domain.KnowledgeBase{}
	}
	return kb
}

// uniqueID appends _1, _2, ... to base until it is not in taken.
func uniqueID(base string, taken map[string]bool) string {
	id := base
	for i := 1; taken[id]; i++ {
		id = fmt.Sprintf("%s_%d", base, i)
	}
	return id
}

// AddDisease appends a disease with an id derived from its name and returns
// the new snapshot together with the assigned id.
func AddDisease(kb *domain.KnowledgeBase, in DiseaseInput) (*domain.KnowledgeBase, string) {
	out := orEmpty(kb).Clone()

	taken := make(map[string]bool, len(out.Diseases))
	for _, d := range out.Diseases {
		taken[d.ID] = true
	}
	base := symptom.Slug(in.Name, maxIDLength)
	if base == "" {
		base = "disease"
	}
	id := uniqueID(base, taken)

	out.Diseases = append(out.Diseases, in.disease(id))
	return out, id
}

// UpdateDisease replaces the editable fields of the disease with the given
// id. The id itself never changes.
func UpdateDisease(kb *domain.KnowledgeBase, id string, in DiseaseInput) (*domain.KnowledgeBase, bool) {
	idx, ok := kb.DiseaseIndex()[id]
	if !ok {
		return kb, false
	}

	out := kb.Clone()
	out.Diseases[idx] = in.disease(id)
	return out, true
}

// DeleteDisease removes the disease. Rules concluding it are kept and show up
// as dangling references on the next consistency check.
func DeleteDisease(kb *domain.KnowledgeBase, id string) (*domain.KnowledgeBase, bool) {
	if _, ok := kb.DiseaseIndex()[id]; !ok {
		return kb, false
	}

	out := kb.Clone()
	diseases := out.Diseases[:0]
	for _, d := range out.Diseases {
		if d.ID != id {
			diseases = append(diseases, d)
		}
	}
	out.Diseases = diseases
	return out, true
}

// AddRule appends a rule. Its id is the slug of in.Name when given, otherwise
// the positional R<n>; collisions get a numeric suffix.
func AddRule(kb *domain.KnowledgeBase, in RuleInput) (*domain.KnowledgeBase, string) {
	out := orEmpty(kb).Clone()

	taken := make(map[string]bool, len(out.Rules))
	for _, r := range out.Rules {
		taken[r.ID] = true
	}
	base := symptom.Slug(in.Name, maxIDLength)
	if base == "" {
		base = fmt.Sprintf("R%d", len(out.Rules)+1)
	}
	id := uniqueID(base, taken)

	out.Rules = append(out.Rules, in.rule(id))
	return out, id
}

func ruleIndex(kb *domain.KnowledgeBase, id string) int {
	if kb == nil {
		return -1
	}
	for i, r := range kb.Rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// UpdateRule replaces the antecedents, conclusion and confidence of a rule.
func UpdateRule(kb *domain.KnowledgeBase, id string, in RuleInput) (*domain.KnowledgeBase, bool) {
	idx := ruleIndex(kb, id)
	if idx < 0 {
		return kb, false
	}

	out := kb.Clone()
	out.Rules[idx] = in.rule(id)
	return out, true
}

// DeleteRule removes the rule with the given id.
func DeleteRule(kb *domain.KnowledgeBase, id string) (*domain.KnowledgeBase, bool) {
	idx := ruleIndex(kb, id)
	if idx < 0 {
		return kb, false
	}

	out := kb.Clone()
	out.Rules = append(out.Rules[:idx], out.Rules[idx+1:]...)
	return out, true
}

// AddSymptom registers a canonical symptom label. Labels already present by
// normalized form are not added twice.
func AddSymptom(kb *domain.KnowledgeBase, name string) (*domain.KnowledgeBase, bool) {
	name = strings.TrimSpace(name)
	if symptom.Normalize(name) == "" {
		return kb, false
	}
	if kb != nil && kb.Facts != nil {
		for _, s := range kb.Facts.Symptoms {
			if symptom.Same(s, name) {
				return kb, false
			}
		}
	}

	out := orEmpty(kb).Clone()
	if out.Facts == nil {
		out.Facts = &domain.Facts{}
	}
	out.Facts.Symptoms = append(out.Facts.Symptoms, name)
	return out, true
}

// RenameSymptom replaces every entry normalizing to old with new, in the
// registry, in every disease and in every rule antecedent, as one step. Lists
// that change are de-duplicated by normalized form. Renaming a symptom to
// itself, or to a label with no normalized content, does nothing.
func RenameSymptom(kb *domain.KnowledgeBase, oldName, newName string) (*domain.KnowledgeBase, bool) {
	newName = strings.TrimSpace(newName)
	if kb == nil || symptom.Normalize(oldName) == "" || symptom.Normalize(newName) == "" || symptom.Same(oldName, newName) {
		return kb, false
	}

	out := kb.Clone()
	changed := false
	rename := func(list []string) []string {
		replaced := false
		for i, s := range list {
			if symptom.Same(s, oldName) {
				list[i] = newName
				replaced = true
			}
		}
		if !replaced {
			return list
		}
		changed = true
		return dedupeNormalized(list)
	}

	if out.Facts != nil {
		out.Facts.Symptoms = rename(out.Facts.Symptoms)
	}
	for i := range out.Diseases {
		out.Diseases[i].Symptoms = rename(out.Diseases[i].Symptoms)
	}
	for i := range out.Rules {
		out.Rules[i].IfSymptoms = rename(out.Rules[i].IfSymptoms)
	}

	if !changed {
		return kb, false
	}
	return out, true
}

// DeleteSymptom removes every entry normalizing to name from the registry,
// the diseases and the rules. Diseases and rules themselves are kept.
func DeleteSymptom(kb *domain.KnowledgeBase, name string) (*domain.KnowledgeBase, bool) {
	if kb == nil || symptom.Normalize(name) == "" {
		return kb, false
	}

	out := kb.Clone()
	changed := false
	remove := func(list []string) []string {
		kept := list[:0]
		for _, s := range list {
			if symptom.Same(s, name) {
				changed = true
				continue
			}
			kept = append(kept, s)
		}
		return kept
	}

	if out.Facts != nil {
		out.Facts.Symptoms = remove(out.Facts.Symptoms)
	}
	for i := range out.Diseases {
		out.Diseases[i].Symptoms = remove(out.Diseases[i].Symptoms)
	}
	for i := range out.Rules {
		out.Rules[i].IfSymptoms = remove(out.Rules[i].IfSymptoms)
	}

	if !changed {
		return kb, false
	}
	return out, true
}

// dedupeNormalized keeps the first entry of every normalized form.
func dedupeNormalized(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, s := range list {
		n := symptom.Normalize(s)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, s)
	}
	return out
}

// The Store variants apply the same transformations and invalidate the cache
// whenever the snapshot changed, so the next Load observes what is persisted.

func (s *Store) commit(kb *domain.KnowledgeBase, changed bool) (*domain.KnowledgeBase, bool) {
	if changed {
		s.Invalidate()
	}
	return kb, changed
}

func (s *Store) AddDisease(kb *domain.KnowledgeBase, in DiseaseInput) (*domain.KnowledgeBase, string) {
	out, id := AddDisease(kb, in)
	s.Invalidate()
	return out, id
}

func (s *Store) UpdateDisease(kb *domain.KnowledgeBase, id string, in DiseaseInput) (*domain.KnowledgeBase, bool) {
	return s.commit(UpdateDisease(kb, id, in))
}

func (s *Store) DeleteDisease(kb *domain.KnowledgeBase, id string) (*domain.KnowledgeBase, bool) {
	return s.commit(DeleteDisease(kb, id))
}

func (s *Store) AddRule(kb *domain.KnowledgeBase, in RuleInput) (*domain.KnowledgeBase, string) {
	out, id := AddRule(kb, in)
	s.Invalidate()
	return out, id
}

func (s *Store) UpdateRule(kb *domain.KnowledgeBase, id string, in RuleInput) (*domain.KnowledgeBase, bool) {
	return s.commit(UpdateRule(kb, id, in))
}

func (s *Store) DeleteRule(kb *domain.KnowledgeBase, id string) (*domain.KnowledgeBase, bool) {
	return s.commit(DeleteRule(kb, id))
}

func (s *Store) AddSymptom(kb *domain.KnowledgeBase, name string) (*domain.KnowledgeBase, bool) {
	return s.commit(AddSymptom(kb, name))
}

func (s *Store) RenameSymptom(kb *domain.KnowledgeBase, oldName, newName string) (*domain.KnowledgeBase, bool) {
	return s.commit(RenameSymptom(kb, oldName, newName))
}

func (s *Store) DeleteSymptom(kb *domain.KnowledgeBase, name string) (*domain.KnowledgeBase, bool) {
	return s.commit(DeleteSymptom(kb, name))
}
