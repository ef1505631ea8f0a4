package domain

// FiredRule records one rule that contributed to an InferenceResult.
type FiredRule struct {
	RuleID          string   `json:"rule_id"`
	MatchedSymptoms []string `json:"matched_symptoms"`
	RuleConfidence  float64  `json:"rule_confidence"`
}

// InferenceResult is a candidate diagnosis produced by forward chaining.
// It lives for a single query and is never persisted.
type InferenceResult struct {
	DiseaseID       string      `json:"disease_id"`
	DiseaseName     string      `json:"disease_name"`
	Confidence      float64     `json:"confidence"`
	MatchedSymptoms []string    `json:"matched_symptoms"`
	FiredRules      []FiredRule `json:"fired_rules"`
	Explanation     string      `json:"explanation"`
}

// ConditionMatch ranks a disease by direct overlap between the reported
// symptoms and the disease's own symptom list, without going through rules.
type ConditionMatch struct {
	Disease            Disease  `json:"disease"`
	MatchedSymptoms    []string `json:"matched_symptoms"`
	Score              float64  `json:"score"`
	TotalKnownSymptoms int      `json:"total_known_symptoms"`
}
