package domain

// Disease is one condition in the knowledge base. ID is assigned once and
// never changes afterwards.
type Disease struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Symptoms    []string `json:"symptoms" yaml:"symptoms"`
	Diagnostics []string `json:"diagnostics" yaml:"diagnostics"`
	Treatment   []string `json:"treatment" yaml:"treatment"`
	References  string   `json:"references" yaml:"references"`
}

// Rule is a single IF-THEN inference step: when the antecedent symptoms are
// reported, conclude ThenDiseaseID with the given confidence.
type Rule struct {
	ID            string   `json:"id" yaml:"id"`
	IfSymptoms    []string `json:"if_symptoms" yaml:"if_symptoms"`
	ThenDiseaseID string   `json:"then_disease_id" yaml:"then_disease_id"`
	Confidence    float64  `json:"confidence" yaml:"confidence"`
}

// Metadata describes the knowledge document itself.
type Metadata struct {
	Version     string `json:"version" yaml:"version"`
	LastUpdated string `json:"last_updated" yaml:"last_updated"`
}

// Facts holds the managed registry of canonical symptom labels.
type Facts struct {
	Symptoms []string `json:"symptoms" yaml:"symptoms"`
}

// KnowledgeBase is the authoritative snapshot of diseases, rules and facts.
// Snapshots are treated as immutable once handed out; mutations produce a new
// snapshot through Clone.
type KnowledgeBase struct {
	Metadata Metadata  `json:"metadata" yaml:"metadata"`
	Facts    *Facts    `json:"facts,omitempty" yaml:"facts,omitempty"`
	Diseases []Disease `json:"diseases" yaml:"diseases"`
	Rules    []Rule    `json:"rules" yaml:"rules"`
}

// Clone returns a deep copy of the knowledge base.
func (kb *KnowledgeBase) Clone() *KnowledgeBase {
	if kb == nil {
		return nil
	}

	out := &KnowledgeBase{
		Metadata: kb.Metadata,
		Diseases: make([]Disease, len(kb.Diseases)),
		Rules:    make([]Rule, len(kb.Rules)),
	}
	if kb.Facts != nil {
		out.Facts = &Facts{Symptoms: cloneStrings(kb.Facts.Symptoms)}
	}
	for i, d := range kb.Diseases {
		d.Symptoms = cloneStrings(d.Symptoms)
		d.Diagnostics = cloneStrings(d.Diagnostics)
		d.Treatment = cloneStrings(d.Treatment)
		out.Diseases[i] = d
	}
	for i, r := range kb.Rules {
		r.IfSymptoms = cloneStrings(r.IfSymptoms)
		out.Rules[i] = r
	}
	return out
}

// DiseaseIndex maps disease ids to their position in Diseases. The first
// occurrence wins if ids repeat.
func (kb *KnowledgeBase) DiseaseIndex() map[string]int {
	if kb == nil {
		return map[string]int{}
	}
	index := make(map[string]int, len(kb.Diseases))
	for i, d := range kb.Diseases {
		if _, exists := index[d.ID]; !exists {
			index[d.ID] = i
		}
	}
	return index
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
