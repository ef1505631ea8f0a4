package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the HTTP and MCP servers read while a search is recorded
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symptoms TEXT NOT NULL,
		top_disease_id TEXT DEFAULT '',
		top_confidence REAL NOT NULL DEFAULT 0,
		result_count INTEGER NOT NULL DEFAULT 0,
		knowledge_version TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_history_created_at ON search_history(created_at);
	CREATE INDEX IF NOT EXISTS idx_history_top_disease ON search_history(top_disease_id);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry scans a row into an Entry.
func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	var symptoms string

	err := s.Scan(
		&e.ID, &symptoms, &e.TopDiseaseID, &e.TopConfidence,
		&e.ResultCount, &e.KnowledgeVersion, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(symptoms), &e.Symptoms); err != nil {
		return nil, fmt.Errorf("failed to decode symptoms: %w", err)
	}
	return e, nil
}

func encodeSymptoms(symptoms []string) (string, error) {
	if symptoms == nil {
		symptoms = []string{}
	}
	data, err := json.Marshal(symptoms)
	if err != nil {
		return "", fmt.Errorf("failed to encode symptoms: %w", err)
	}
	return string(data), nil
}

// Record appends an entry.
func (s *SQLiteStore) Record(ctx context.Context, entry *Entry) error {
	symptoms, err := encodeSymptoms(entry.Symptoms)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (
			symptoms, top_disease_id, top_confidence,
			result_count, knowledge_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		symptoms,
		entry.TopDiseaseID,
		entry.TopConfidence,
		entry.ResultCount,
		entry.KnowledgeVersion,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

// Recent returns the newest entries first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symptoms, top_disease_id, top_confidence,
			result_count, knowledge_version, created_at
		FROM search_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Count returns the total number of entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_history").Scan(&count)
	return count, err
}

// TopDiseases returns the diseases most often ranked first.
func (s *SQLiteStore) TopDiseases(ctx context.Context, limit int) ([]DiseaseCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT top_disease_id, COUNT(*) AS hits
		FROM search_history
		WHERE top_disease_id <> ''
		GROUP BY top_disease_id
		ORDER BY hits DESC, top_disease_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []DiseaseCount{}
	for rows.Next() {
		var dc DiseaseCount
		if err := rows.Scan(&dc.DiseaseID, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

// Delete removes an entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM search_history WHERE id = ?", id)
	return err
}

// ExportJSON exports all entries to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.Recent(ctx, maxExportLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return writeExport(writer, all)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeIndented(writer io.Writer, v any) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
