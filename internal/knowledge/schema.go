// Package knowledge owns the knowledge base lifecycle: parsing, schema and
// consistency validation, the cached snapshot store and the mutation operations
// that keep diseases, rules and the symptom registry coherent.
package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

var (
	requiredTopKeys      = []string{"metadata", "diseases", "rules"}
	requiredMetadataKeys = []string{"version", "last_updated"}
	requiredDiseaseKeys  = []string{"id", "name", "description", "symptoms", "diagnostics", "treatment", "references"}
	requiredRuleKeys     = []string{"id", "if_symptoms", "then_disease_id", "confidence"}

	diseaseStringKeys = []string{"id", "name", "description", "references"}
	diseaseListKeys   = []string{"symptoms", "diagnostics", "treatment"}
)

// ValidateSchema checks a decoded document against the structural contract.
// It never stops at the first problem: every defect is reported, in document
// order, so the caller sees the complete list in one pass.
func ValidateSchema(doc any) (bool, []string) {
	root, ok := asMap(doc)
	if !ok {
		return false, []string{"knowledge base must be a JSON object"}
	}

	var errs []string
	if missing := missingKeys(root, requiredTopKeys); len(missing) > 0 {
		for _, k := range missing {
			errs = append(errs, fmt.Sprintf("missing top-level key: %s", k))
		}
	}

	if raw, present := root["metadata"]; present {
		errs = append(errs, validateMetadata(raw)...)
	}
	if raw, present := root["facts"]; present {
		errs = append(errs, validateFacts(raw)...)
	}
	if raw, present := root["diseases"]; present {
		errs = append(errs, validateDiseases(raw)...)
	}
	if raw, present := root["rules"]; present {
		errs = append(errs, validateRules(raw)...)
	}

	return len(errs) == 0, errs
}

func validateMetadata(raw any) []string {
	meta, ok := asMap(raw)
	if !ok {
		return []string{"metadata must be an object with version and last_updated"}
	}

	var errs []string
	for _, k := range missingKeys(meta, requiredMetadataKeys) {
		errs = append(errs, fmt.Sprintf("metadata missing key: %s", k))
	}
	for _, k := range requiredMetadataKeys {
		if v, present := meta[k]; present {
			if _, ok := v.(string); !ok {
				errs = append(errs, fmt.Sprintf("metadata.%s must be a string", k))
			}
		}
	}
	return errs
}

func validateFacts(raw any) []string {
	facts, ok := asMap(raw)
	if !ok {
		return []string{"facts must be an object"}
	}
	if v, present := facts["symptoms"]; present && !isStringList(v) {
		return []string{"facts.symptoms must be an array of strings"}
	}
	return nil
}

func validateDiseases(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return []string{"diseases must be an array"}
	}

	var errs []string
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		d, ok := asMap(item)
		if !ok {
			errs = append(errs, fmt.Sprintf("diseases[%d] must be an object", i))
			continue
		}
		if missing := missingKeys(d, requiredDiseaseKeys); len(missing) > 0 {
			errs = append(errs, fmt.Sprintf("diseases[%d] missing keys: %s", i, strings.Join(missing, ", ")))
		}
		for _, k := range diseaseStringKeys {
			if v, present := d[k]; present {
				if _, ok := v.(string); !ok {
					errs = append(errs, fmt.Sprintf("diseases[%d].%s must be a string", i, k))
				}
			}
		}
		for _, k := range diseaseListKeys {
			if v, present := d[k]; present && !isStringList(v) {
				errs = append(errs, fmt.Sprintf("diseases[%d].%s must be an array of strings", i, k))
			}
		}

		if id, ok := d["id"].(string); ok && id != "" {
			if seen[id] {
				errs = append(errs, fmt.Sprintf("duplicate disease id: %s", id))
			}
			seen[id] = true
		}
	}
	return errs
}

func validateRules(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return []string{"rules must be an array"}
	}

	var errs []string
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		r, ok := asMap(item)
		if !ok {
			errs = append(errs, fmt.Sprintf("rules[%d] must be an object", i))
			continue
		}
		if missing := missingKeys(r, requiredRuleKeys); len(missing) > 0 {
			errs = append(errs, fmt.Sprintf("rules[%d] missing keys: %s", i, strings.Join(missing, ", ")))
		}
		for _, k := range []string{"id", "then_disease_id"} {
			if v, present := r[k]; present {
				if _, ok := v.(string); !ok {
					errs = append(errs, fmt.Sprintf("rules[%d].%s must be a string", i, k))
				}
			}
		}
		if v, present := r["if_symptoms"]; present && !isStringList(v) {
			errs = append(errs, fmt.Sprintf("rules[%d].if_symptoms must be an array of strings", i))
		}
		if v, present := r["confidence"]; present {
			c, ok := asFloat(v)
			switch {
			case !ok:
				errs = append(errs, fmt.Sprintf("rules[%d].confidence must be a number", i))
			case c < 0 || c > 1:
				errs = append(errs, fmt.Sprintf("rules[%d].confidence must be between 0 and 1, got %v", i, c))
			}
		}

		if id, ok := r["id"].(string); ok && id != "" {
			if seen[id] {
				errs = append(errs, fmt.Sprintf("duplicate rule id: %s", id))
			}
			seen[id] = true
		}
	}
	return errs
}

// missingKeys returns the required keys absent from m, sorted.
func missingKeys(m map[string]any, required []string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func isStringList(v any) bool {
	items, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}

// asFloat accepts the numeric kinds produced by the JSON and YAML decoders.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
