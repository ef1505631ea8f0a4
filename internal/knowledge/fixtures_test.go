package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

const sampleDocument = `{
  "metadata": {"version": "1.2", "last_updated": "2026-01-15"},
  "facts": {"symptoms": ["fever", "cough", "sore throat"]},
  "diseases": [
    {
      "id": "influenza",
      "name": "Influenza",
      "description": "Viral respiratory infection",
      "symptoms": ["fever", "cough", "muscle aches"],
      "diagnostics": ["rapid antigen test"],
      "treatment": ["rest", "fluids"],
      "references": "WHO fact sheet"
    },
    {
      "id": "strep_throat",
      "name": "Strep Throat",
      "description": "Bacterial throat infection",
      "symptoms": ["sore throat", "fever"],
      "diagnostics": ["throat culture"],
      "treatment": ["antibiotics"],
      "references": ""
    }
  ],
  "rules": [
    {"id": "R1", "if_symptoms": ["fever", "cough"], "then_disease_id": "influenza", "confidence": 0.8},
    {"id": "R2", "if_symptoms": ["sore throat", "fever"], "then_disease_id": "strep_throat", "confidence": 0.7}
  ]
}`

func sampleKB() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		Metadata: domain.Metadata{Version: "1.2", LastUpdated: "2026-01-15"},
		Facts:    &domain.Facts{Symptoms: []string{"fever", "cough", "sore throat"}},
		Diseases: []domain.Disease{
			{
				ID:          "influenza",
				Name:        "Influenza",
				Description: "Viral respiratory infection",
				Symptoms:    []string{"fever", "cough", "muscle aches"},
				Diagnostics: []string{"rapid antigen test"},
				Treatment:   []string{"rest", "fluids"},
				References:  "WHO fact sheet",
			},
			{
				ID:          "strep_throat",
				Name:        "Strep Throat",
				Description: "Bacterial throat infection",
				Symptoms:    []string{"sore throat", "fever"},
				Diagnostics: []string{"throat culture"},
				Treatment:   []string{"antibiotics"},
				References:  "",
			},
		},
		Rules: []domain.Rule{
			{ID: "R1", IfSymptoms: []string{"fever", "cough"}, ThenDiseaseID: "influenza", Confidence: 0.8},
			{ID: "R2", IfSymptoms: []string{"sore throat", "fever"}, ThenDiseaseID: "strep_throat", Confidence: 0.7},
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
