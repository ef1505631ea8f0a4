// Package history records diagnosis searches so operators can review what was
// asked and what the engine answered.
package history

import (
	"context"
	"io"
	"time"
)

// Entry is one recorded diagnosis query.
type Entry struct {
	ID               int64     `json:"id,omitempty"`
	Symptoms         []string  `json:"symptoms"`
	TopDiseaseID     string    `json:"top_disease_id,omitempty"` // Best candidate, empty when nothing fired
	TopConfidence    float64   `json:"top_confidence"`
	ResultCount      int       `json:"result_count"`
	KnowledgeVersion string    `json:"knowledge_version,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// DiseaseCount is how often a disease came out on top.
type DiseaseCount struct {
	DiseaseID string `json:"disease_id"`
	Count     int64  `json:"count"`
}

// Store defines the interface for search history storage.
type Store interface {
	// Record appends an entry and assigns its ID and CreatedAt.
	Record(ctx context.Context, entry *Entry) error

	// Recent returns the newest entries first.
	Recent(ctx context.Context, limit int) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// TopDiseases returns the diseases most often ranked first.
	TopDiseases(ctx context.Context, limit int) ([]DiseaseCount, error)

	// Delete removes an entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON writes every entry to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Entries    []*Entry  `json:"entries"`
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

func writeExport(writer io.Writer, entries []*Entry) error {
	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(entries),
		Entries:    entries,
	}
	return encodeIndented(writer, export)
}
