package knowledge

import (
	"sort"
	"strings"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/pkg/symptom"
)

// DiseaseByID looks up a disease. A missing id is reported with ok=false.
func DiseaseByID(kb *domain.KnowledgeBase, id string) (domain.Disease, bool) {
	if idx, ok := kb.DiseaseIndex()[id]; ok {
		return kb.Diseases[idx], true
	}
	return domain.Disease{}, false
}

// RuleByID looks up a rule. A missing id is reported with ok=false.
func RuleByID(kb *domain.KnowledgeBase, id string) (domain.Rule, bool) {
	if idx := ruleIndex(kb, id); idx >= 0 {
		return kb.Rules[idx], true
	}
	return domain.Rule{}, false
}

// FindByName returns diseases whose name contains query, ignoring case.
func FindByName(kb *domain.KnowledgeBase, query string) []domain.Disease {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []domain.Disease{}
	if q == "" || kb == nil {
		return out
	}

	for _, d := range kb.Diseases {
		if strings.Contains(strings.ToLower(d.Name), q) {
			out = append(out, d)
		}
	}
	return out
}

// FindBySymptom returns diseases listing a symptom that fuzzy-matches query.
func FindBySymptom(kb *domain.KnowledgeBase, query string) []domain.Disease {
	out := []domain.Disease{}
	if kb == nil || symptom.Normalize(query) == "" {
		return out
	}

	for _, d := range kb.Diseases {
		for _, s := range d.Symptoms {
			if symptom.FuzzyEqual(query, s) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// AllSymptoms lists every symptom string used by a disease or rule, trimmed,
// de-duplicated by exact text and sorted. Spellings that normalize equal are
// all kept; normalization is a matching concern, not a display one.
func AllSymptoms(kb *domain.KnowledgeBase) []string {
	out := []string{}
	if kb == nil {
		return out
	}

	seen := make(map[string]bool)
	add := func(list []string) {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, d := range kb.Diseases {
		add(d.Symptoms)
	}
	for _, r := range kb.Rules {
		add(r.IfSymptoms)
	}

	sort.Strings(out)
	return out
}

// RegisteredSymptoms returns the managed symptom registry, sorted.
func RegisteredSymptoms(kb *domain.KnowledgeBase) []string {
	if kb == nil || kb.Facts == nil {
		return []string{}
	}
	out := symptom.Clean(kb.Facts.Symptoms)
	sort.Strings(out)
	return out
}
