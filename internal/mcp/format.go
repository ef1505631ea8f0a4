package mcp

import (
	"fmt"
	"strings"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

func formatDiagnosis(results []domain.InferenceResult) string {
	if len(results) == 0 {
		return "No rule matched the reported symptoms."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d candidate diagnoses:", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s (%s) confidence %.0f%%", i+1, r.DiseaseName, r.DiseaseID, r.Confidence*100)
		fmt.Fprintf(&b, "\n   %s", r.Explanation)
	}
	return b.String()
}

func formatConditions(matches []domain.ConditionMatch) string {
	if len(matches) == 0 {
		return "No disease lists any of the reported symptoms."
	}

	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s (%s) score %.2f, matched %d of %d: %s",
			i+1, m.Disease.Name, m.Disease.ID, m.Score,
			len(m.MatchedSymptoms), m.TotalKnownSymptoms, strings.Join(m.MatchedSymptoms, ", "))
	}
	return b.String()
}

func formatDisease(d domain.Disease) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", d.Name, d.ID)
	if d.Description != "" {
		fmt.Fprintf(&b, "\n%s", d.Description)
	}
	section := func(title string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(&b, "\n%s: %s", title, strings.Join(items, ", "))
		}
	}
	section("Symptoms", d.Symptoms)
	section("Diagnostics", d.Diagnostics)
	section("Treatment", d.Treatment)
	if d.References != "" {
		fmt.Fprintf(&b, "\nReferences: %s", d.References)
	}
	return b.String()
}

func formatStatus(s domain.LoadStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s", s.Status)
	if s.Version != "" {
		fmt.Fprintf(&b, "\nVersion: %s (last updated %s)", s.Version, s.LastUpdated)
	}
	if !s.LoadTime.IsZero() {
		fmt.Fprintf(&b, "\nLoaded: %s", s.LoadTime.Format("2006-01-02 15:04:05 MST"))
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s", w)
	}
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "\nError: %s", e)
	}
	return b.String()
}
