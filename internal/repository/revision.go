package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/symptom-kbs-mcp-server/internal/domain"
)

// Revision is one stored version of the whole knowledge document.
type Revision struct {
	ID        int64     `json:"id"`
	Version   string    `json:"version"`
	Document  []byte    `json:"-"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RevisionRepository handles knowledge revision persistence. Every save
// appends a row; the newest row is the current document.
type RevisionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(db *pgxpool.Pool, logger *logrus.Logger) *RevisionRepository {
	return &RevisionRepository{
		db:  db,
		log: logger,
	}
}

// Append stores document as the newest revision.
func (r *RevisionRepository) Append(ctx context.Context, version string, document []byte, comment string) (*Revision, error) {
	query := `
		INSERT INTO knowledge_revisions (version, document, comment)
		VALUES ($1, $2::jsonb, $3)
		RETURNING id, created_at`

	rev := &Revision{
		Version:  version,
		Document: document,
		Comment:  comment,
	}

	err := r.db.QueryRow(ctx, query, version, string(document), comment).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"version": version,
			"error":   err,
		}).Error("Failed to append knowledge revision")
		return nil, fmt.Errorf("appending revision: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"revision_id": rev.ID,
		"version":     version,
	}).Info("Knowledge revision stored")

	return rev, nil
}

// Latest returns the newest revision.
func (r *RevisionRepository) Latest(ctx context.Context) (*Revision, error) {
	query := `
		SELECT id, version, document::text, comment, created_at
		FROM knowledge_revisions
		ORDER BY id DESC
		LIMIT 1`

	return r.getOne(ctx, query)
}

// GetByID retrieves a revision by its ID
func (r *RevisionRepository) GetByID(ctx context.Context, id int64) (*Revision, error) {
	query := `
		SELECT id, version, document::text, comment, created_at
		FROM knowledge_revisions
		WHERE id = $1`

	return r.getOne(ctx, query, id)
}

func (r *RevisionRepository) getOne(ctx context.Context, query string, args ...any) (*Revision, error) {
	var rev Revision
	var document string

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&rev.ID,
		&rev.Version,
		&document,
		&rev.Comment,
		&rev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("knowledge revision not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting revision: %w", err)
	}

	rev.Document = []byte(document)
	return &rev, nil
}

// List returns revision headers, newest first. Documents are not loaded.
func (r *RevisionRepository) List(ctx context.Context, limit int) ([]*Revision, error) {
	query := `
		SELECT id, version, comment, created_at
		FROM knowledge_revisions
		ORDER BY id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	defer rows.Close()

	revisions := []*Revision{}
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.ID, &rev.Version, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		revisions = append(revisions, &rev)
	}

	return revisions, rows.Err()
}

// Prune keeps the newest keep revisions and deletes the rest.
func (r *RevisionRepository) Prune(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM knowledge_revisions
		WHERE id NOT IN (
			SELECT id FROM knowledge_revisions ORDER BY id DESC LIMIT $1
		)`

	tag, err := r.db.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning revisions: %w", err)
	}

	if tag.RowsAffected() > 0 {
		r.log.WithField("deleted", tag.RowsAffected()).Info("Pruned old knowledge revisions")
	}
	return tag.RowsAffected(), nil
}
