package inference

import (
	"sort"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/pkg/symptom"
)

const (
	userCoverageWeight    = 0.6
	diseaseCoverageWeight = 0.4
)

// RankConditions scores every disease by direct overlap between the reported
// symptoms and the disease's own symptom list, bypassing the rules. The score
// weighs how many reported symptoms were explained against how much of the
// disease's presentation was covered.
func (m *Matcher) RankConditions(reported []string, kb *domain.KnowledgeBase) []domain.ConditionMatch {
	out := []domain.ConditionMatch{}
	user := symptom.Clean(reported)
	if len(user) == 0 || kb == nil {
		return out
	}

	for _, disease := range kb.Diseases {
		known := symptom.Clean(disease.Symptoms)

		var matched []string
		for _, us := range user {
			for _, ks := range known {
				if symptom.FuzzyEqual(us, ks) {
					matched = append(matched, ks)
					break
				}
			}
		}
		if len(matched) == 0 {
			continue
		}

		userRatio := float64(len(matched)) / float64(len(user))
		diseaseRatio := float64(len(matched)) / float64(len(known))

		out = append(out, domain.ConditionMatch{
			Disease:            disease,
			MatchedSymptoms:    unionStable(nil, matched),
			Score:              round2(userCoverageWeight*userRatio + diseaseCoverageWeight*diseaseRatio),
			TotalKnownSymptoms: len(known),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return len(out[i].MatchedSymptoms) > len(out[j].MatchedSymptoms)
	})

	m.logger.WithField("candidates", len(out)).Debug("Condition ranking completed")
	return out
}
