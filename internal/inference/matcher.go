// Package inference implements forward-chaining diagnosis over a validated
// knowledge base snapshot.
package inference

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/pkg/symptom"
)

// Matcher runs forward chaining. It holds no state besides its logger and is
// safe for concurrent use.
type Matcher struct {
	logger *logrus.Logger
}

// NewMatcher creates a matcher.
func NewMatcher(logger *logrus.Logger) *Matcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Matcher{logger: logger}
}

// userSymptoms trims the input and drops entries with no normalized content
// or a normalized form already seen.
func userSymptoms(input []string) []string {
	seen := make(map[string]bool, len(input))
	out := make([]string, 0, len(input))
	for _, s := range input {
		n := symptom.Normalize(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// round2 rounds to two decimals from the exact binary value, ties to even.
func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

// Infer returns candidate diagnoses for the reported symptoms, strongest first.
//
// A rule fires when at least one antecedent fuzzy-matches a reported symptom
// and its conclusion names a known disease. Its contribution is the rule
// confidence scaled by the share of antecedents matched. A disease's
// confidence is the highest contribution among the rules that fired for it.
func (m *Matcher) Infer(reported []string, kb *domain.KnowledgeBase) []domain.InferenceResult {
	results := []domain.InferenceResult{}
	user := userSymptoms(reported)
	if len(user) == 0 || kb == nil {
		return results
	}

	index := kb.DiseaseIndex()
	byDisease := make(map[string]int)

	for _, rule := range kb.Rules {
		if len(rule.IfSymptoms) == 0 {
			continue
		}
		idx, known := index[rule.ThenDiseaseID]
		if !known {
			continue
		}

		var matched []string
		for _, rs := range rule.IfSymptoms {
			for _, us := range user {
				if symptom.FuzzyEqual(us, rs) {
					matched = append(matched, rs)
					break
				}
			}
		}
		if len(matched) == 0 {
			continue
		}

		contribution := round2(rule.Confidence * float64(len(matched)) / float64(len(rule.IfSymptoms)))
		fired := domain.FiredRule{
			RuleID:          rule.ID,
			MatchedSymptoms: matched,
			RuleConfidence:  contribution,
		}

		pos, seen := byDisease[rule.ThenDiseaseID]
		if !seen {
			disease := kb.Diseases[idx]
			results = append(results, domain.InferenceResult{
				DiseaseID:   disease.ID,
				DiseaseName: disease.Name,
				Confidence:  contribution,
			})
			pos = len(results) - 1
			byDisease[rule.ThenDiseaseID] = pos
		}

		entry := &results[pos]
		entry.FiredRules = append(entry.FiredRules, fired)
		entry.MatchedSymptoms = unionStable(entry.MatchedSymptoms, matched)
		if contribution > entry.Confidence {
			entry.Confidence = contribution
		}
	}

	for i := range results {
		results[i].Explanation = explain(results[i].FiredRules)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return len(results[i].MatchedSymptoms) > len(results[j].MatchedSymptoms)
	})

	m.logger.WithFields(logrus.Fields{
		"symptoms":   len(user),
		"rules":      len(kb.Rules),
		"candidates": len(results),
	}).Debug("Inference completed")

	return results
}

// unionStable appends the entries of add not already in base, by exact text.
func unionStable(base, add []string) []string {
	seen := make(map[string]bool, len(base)+len(add))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			base = append(base, s)
		}
	}
	return base
}

func explain(fired []domain.FiredRule) string {
	parts := make([]string, len(fired))
	for i, fr := range fired {
		parts[i] = fmt.Sprintf("Rule '%s' fired: symptoms [%s] matched (confidence %.0f%%).",
			fr.RuleID, strings.Join(fr.MatchedSymptoms, ", "), fr.RuleConfidence*100)
	}
	return strings.Join(parts, " ")
}
