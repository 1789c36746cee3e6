package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// PostgresDocumentStore implements DocumentStore on PostgreSQL. The
// document is one row of JSONB; there is a single logical writer per
// session so plain upserts suffice.
type PostgresDocumentStore struct {
	pool *pgxpool.Pool
}

func NewPostgresDocumentStore(pool *pgxpool.Pool) *PostgresDocumentStore {
	return &PostgresDocumentStore{pool: pool}
}

// Init creates the document table if it does not exist.
func (s *PostgresDocumentStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS session_documents (
			id       INTEGER PRIMARY KEY,
			payload  JSONB       NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to init document schema: %w", err)
	}
	return nil
}

// Load returns the current document or nil when none is stored.
func (s *PostgresDocumentStore) Load(ctx context.Context) (*models.Document, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM session_documents WHERE id = 1
	`).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

// Save replaces the current document.
func (s *PostgresDocumentStore) Save(ctx context.Context, doc *models.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_documents (id, payload, saved_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET payload = $1, saved_at = $2
	`, payload, doc.SavedAt)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}
