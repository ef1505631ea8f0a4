package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

// Format is the on-disk encoding of a knowledge document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension. Anything that is not
// .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes raw bytes into the loosely typed document the schema
// validator works on.
func Parse(data []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if dec.More() {
			return nil, fmt.Errorf("failed to parse JSON: unexpected data after document")
		}
	}
	return doc, nil
}

// Decode populates the typed model from a document that already passed
// ValidateSchema.
func Decode(doc any) (*domain.KnowledgeBase, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	var kb domain.KnowledgeBase
	if err := json.Unmarshal(raw, &kb); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge base: %w", err)
	}
	return &kb, nil
}

// Encode renders a knowledge base in the given format. JSON output is
// indented with two spaces and keeps non-ASCII text readable.
func Encode(kb *domain.KnowledgeBase, format Format) ([]byte, error) {
	if kb == nil {
		return nil, fmt.Errorf("knowledge base is nil")
	}
	kb = withEmptyLists(kb)

	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(kb); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(kb); err != nil {
			return nil, fmt.Errorf("failed to encode JSON: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// withEmptyLists returns a copy in which every nil list is an empty one, so the
// encoded document always satisfies the schema's array checks.
func withEmptyLists(kb *domain.KnowledgeBase) *domain.KnowledgeBase {
	out := kb.Clone()
	if out.Facts != nil && out.Facts.Symptoms == nil {
		out.Facts.Symptoms = []string{}
	}
	if out.Diseases == nil {
		out.Diseases = []domain.Disease{}
	}
	if out.Rules == nil {
		out.Rules = []domain.Rule{}
	}
	for i := range out.Diseases {
		d := &out.Diseases[i]
		if d.Symptoms == nil {
			d.Symptoms = []string{}
		}
		if d.Diagnostics == nil {
			d.Diagnostics = []string{}
		}
		if d.Treatment == nil {
			d.Treatment = []string{}
		}
	}
	for i := range out.Rules {
		if out.Rules[i].IfSymptoms == nil {
			out.Rules[i].IfSymptoms = []string{}
		}
	}
	return out
}
