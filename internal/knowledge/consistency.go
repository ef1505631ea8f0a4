package knowledge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/pkg/symptom"
)

// antecedentKey reduces a rule's IF-symptoms to the sorted unique tuple of
// their normalized forms.
func antecedentKey(symptoms []string) string {
	return strings.Join(symptom.Key(symptoms), "\x1f")
}

// DuplicateRules reports rules whose antecedent set and conclusion repeat an
// earlier rule. Each warning names the earlier rule.
func DuplicateRules(rules []domain.Rule) []domain.ConsistencyWarning {
	var warnings []domain.ConsistencyWarning
	seen := make(map[string]string, len(rules))

	for _, r := range rules {
		key := antecedentKey(r.IfSymptoms) + "\x1e" + r.ThenDiseaseID
		if first, ok := seen[key]; ok {
			warnings = append(warnings, domain.ConsistencyWarning{
				Kind:    domain.WarningDuplicateRule,
				RuleID:  r.ID,
				Message: fmt.Sprintf("rule %s duplicates rule %s", r.ID, first),
			})
			continue
		}
		seen[key] = r.ID
	}
	return warnings
}

// ConflictingConclusions reports antecedent sets that lead to more than one
// disease. Differential diagnoses are legitimate, so this is advisory only.
func ConflictingConclusions(rules []domain.Rule) []domain.ConsistencyWarning {
	type group struct {
		symptoms []string
		ruleIDs  []string
		diseases map[string]bool
	}

	var order []string
	groups := make(map[string]*group)
	for _, r := range rules {
		key := antecedentKey(r.IfSymptoms)
		g, ok := groups[key]
		if !ok {
			g = &group{symptoms: symptom.Key(r.IfSymptoms), diseases: make(map[string]bool)}
			groups[key] = g
			order = append(order, key)
		}
		g.ruleIDs = append(g.ruleIDs, r.ID)
		g.diseases[r.ThenDiseaseID] = true
	}

	var warnings []domain.ConsistencyWarning
	for _, key := range order {
		g := groups[key]
		if len(g.diseases) < 2 {
			continue
		}
		ids := make([]string, 0, len(g.diseases))
		for id := range g.diseases {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		warnings = append(warnings, domain.ConsistencyWarning{
			Kind:   domain.WarningConflictingConclusion,
			RuleID: g.ruleIDs[0],
			Message: fmt.Sprintf("symptoms [%s] conclude different diseases [%s] (rules %s)",
				strings.Join(g.symptoms, ", "), strings.Join(ids, ", "), strings.Join(g.ruleIDs, ", ")),
		})
	}
	return warnings
}

// DanglingReferences reports rules whose conclusion names no known disease.
func DanglingReferences(kb *domain.KnowledgeBase) []domain.ConsistencyWarning {
	if kb == nil {
		return nil
	}

	index := kb.DiseaseIndex()
	var warnings []domain.ConsistencyWarning
	for _, r := range kb.Rules {
		if _, ok := index[r.ThenDiseaseID]; ok {
			continue
		}
		warnings = append(warnings, domain.ConsistencyWarning{
			Kind:    domain.WarningDanglingReference,
			RuleID:  r.ID,
			Message: fmt.Sprintf("rule %s references unknown disease %q", r.ID, r.ThenDiseaseID),
		})
	}
	return warnings
}

// CheckConsistency runs every consistency check over a schema-valid knowledge base.
func CheckConsistency(kb *domain.KnowledgeBase) []domain.ConsistencyWarning {
	if kb == nil {
		return nil
	}

	var warnings []domain.ConsistencyWarning
	warnings = append(warnings, DuplicateRules(kb.Rules)...)
	warnings = append(warnings, ConflictingConclusions(kb.Rules)...)
	warnings = append(warnings, DanglingReferences(kb)...)
	return warnings
}

func warningMessages(warnings []domain.ConsistencyWarning) []string {
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}
