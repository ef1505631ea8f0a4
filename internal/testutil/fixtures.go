// Package testutil holds knowledge base fixtures shared by package tests.
package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// KnowledgeDocument is a small valid knowledge base: influenza and the common
// cold, with one rule each and a registered symptom list.
const KnowledgeDocument = `{
  "metadata": {"version": "1.0", "last_updated": "2026-02-01"},
  "facts": {"symptoms": ["fever", "cough", "sneezing", "runny nose"]},
  "diseases": [
    {
      "id": "influenza",
      "name": "Influenza",
      "description": "Viral infection of the respiratory tract",
      "symptoms": ["fever", "cough", "muscle aches", "fatigue"],
      "diagnostics": ["rapid influenza test"],
      "treatment": ["rest", "antivirals"],
      "references": "CDC"
    },
    {
      "id": "common_cold",
      "name": "Common Cold",
      "description": "Mild upper respiratory infection",
      "symptoms": ["sneezing", "runny nose", "cough"],
      "diagnostics": [],
      "treatment": ["fluids"],
      "references": ""
    }
  ],
  "rules": [
    {"id": "R1", "if_symptoms": ["fever", "cough"], "then_disease_id": "influenza", "confidence": 0.8},
    {"id": "R2", "if_symptoms": ["sneezing", "runny nose"], "then_disease_id": "common_cold", "confidence": 0.6}
  ]
}`

// WriteKnowledgeFile writes content to kb.json in a fresh temp dir and
// returns its path.
func WriteKnowledgeFile(t testing.TB, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing knowledge file: %v", err)
	}
	return path
}

// QuietLogger returns a logger that discards everything.
func QuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
