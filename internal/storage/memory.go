package storage

import (
	"context"
	"sync"
	"time"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// InMemorySnapshotStore keeps snapshot history in process memory. It is
// the fallback when no durable backend is configured and the fake used
// throughout the tests.
type InMemorySnapshotStore struct {
	mu   sync.RWMutex
	rows []models.MetricSnapshot
}

// NewInMemorySnapshotStore creates an empty in-memory history.
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{}
}

// Record merges a batch into history under the shared dedup and
// retention bounds.
func (s *InMemorySnapshotStore) Record(ctx context.Context, rows []models.MetricSnapshot, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = MergeHistory(s.rows, rows, now)
	return nil
}

// FindClosest returns the event's reading nearest the target time.
func (s *InMemorySnapshotStore) FindClosest(ctx context.Context, eventID string, target time.Time, tolerance time.Duration) (*models.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ClosestSnapshot(s.rows, eventID, target, tolerance), nil
}

// Len reports the number of retained rows.
func (s *InMemorySnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// InMemoryDocumentStore holds the session document in process memory.
type InMemoryDocumentStore struct {
	mu  sync.RWMutex
	doc *models.Document
}

// NewInMemoryDocumentStore creates an empty in-memory document store.
func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{}
}

// Load returns the stored document or nil.
func (s *InMemoryDocumentStore) Load(ctx context.Context) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, nil
	}
	cp := *s.doc
	return &cp, nil
}

// Save replaces the stored document with a copy of the given one.
func (s *InMemoryDocumentStore) Save(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.doc = &cp
	return nil
}
