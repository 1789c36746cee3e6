// Package storage holds the persistence boundary of the coverage
// engine: the snapshot history and the versioned session document, each
// behind a small interface with in-memory, PostgreSQL, Redis and
// ClickHouse implementations.
package storage

import (
	"context"
	"time"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// History bounds applied on every snapshot write, regardless of
// backend.
const (
	// DedupWindow collapses repeat readings: a second write for the
	// same event within this window of now replaces the prior row.
	DedupWindow = 30 * time.Minute
	// RetentionAge drops rows older than this on every write.
	RetentionAge = 30 * 24 * time.Hour
	// MaxRows caps total history, evicting oldest rows first.
	MaxRows = 2000
)

// SnapshotStore is the append-only history of per-event metric
// readings. Implementations enforce the dedup and retention bounds on
// every Record call.
type SnapshotStore interface {
	// Record merges one batch of snapshot rows into history.
	Record(ctx context.Context, rows []models.MetricSnapshot, now time.Time) error

	// FindClosest returns the stored row for the event whose capture
	// time is nearest the target, or nil when none exists. A positive
	// tolerance restricts candidates to [target-tol, target+tol];
	// first-seen wins on exact distance ties.
	FindClosest(ctx context.Context, eventID string, target time.Time, tolerance time.Duration) (*models.MetricSnapshot, error)
}

// DocumentStore persists the versioned session document holding the
// validated tables and the active scope filter.
type DocumentStore interface {
	// Load returns the current document, or nil when none is stored.
	Load(ctx context.Context) (*models.Document, error)

	// Save replaces the current document.
	Save(ctx context.Context, doc *models.Document) error
}
