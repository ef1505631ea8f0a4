package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/symptom-kbs-mcp-server/internal/knowledge"
)

// RevisionSource exposes the revision table as a writable knowledge source.
// Reads return the newest revision and writes append a new one.
type RevisionSource struct {
	repo    *RevisionRepository
	comment string
}

// NewRevisionSource creates a source backed by repo. comment is stored with
// every revision written through it.
func NewRevisionSource(repo *RevisionRepository, comment string) *RevisionSource {
	return &RevisionSource{repo: repo, comment: comment}
}

// Key implements knowledge.Source.
func (s *RevisionSource) Key() string {
	return "postgres:knowledge_revisions"
}

// Format implements knowledge.Source. Revisions are stored as JSONB.
func (s *RevisionSource) Format() knowledge.Format {
	return knowledge.FormatJSON
}

// Read implements knowledge.Source.
func (s *RevisionSource) Read(ctx context.Context) ([]byte, error) {
	rev, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return rev.Document, nil
}

// Write implements knowledge.WritableSource.
func (s *RevisionSource) Write(ctx context.Context, data []byte) error {
	var head struct {
		Metadata struct {
			Version string `json:"version"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("reading document version: %w", err)
	}

	_, err := s.repo.Append(ctx, head.Metadata.Version, data, s.comment)
	return err
}

var _ knowledge.WritableSource = (*RevisionSource)(nil)
