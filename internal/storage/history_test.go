package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

func snap(eventID string, capturedAt time.Time, fill float64) models.MetricSnapshot {
	return models.MetricSnapshot{EventID: eventID, CapturedAt: capturedAt, FillRate: fill}
}

func TestMergeHistoryDedupWindow(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	existing := []models.MetricSnapshot{
		snap("E1", now.Add(-10*time.Minute), 40),
		snap("E1", now.Add(-2*time.Hour), 30),
		snap("E2", now.Add(-10*time.Minute), 80),
	}
	batch := []models.MetricSnapshot{snap("E1", now, 50)}

	rows := MergeHistory(existing, batch, now)
	require.Len(t, rows, 3)

	// The 10-minute-old E1 row was superseded; the 2-hour-old one and
	// the untouched E2 row survive.
	assert.Equal(t, 50.0, rows[0].FillRate)
	assert.Equal(t, "E2", rows[1].EventID)
	assert.Equal(t, 30.0, rows[2].FillRate)
}

func TestMergeHistoryRetentionAge(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	existing := []models.MetricSnapshot{
		snap("E1", now.Add(-RetentionAge-time.Hour), 10),
		snap("E1", now.Add(-RetentionAge+time.Hour), 20),
	}

	rows := MergeHistory(existing, nil, now)
	require.Len(t, rows, 1)
	assert.Equal(t, 20.0, rows[0].FillRate)
}

func TestMergeHistoryRowCap(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	existing := make([]models.MetricSnapshot, 0, MaxRows)
	for i := 0; i < MaxRows; i++ {
		existing = append(existing, snap(fmt.Sprintf("E%d", i), now.Add(-time.Duration(i+31)*time.Minute), 0))
	}
	batch := []models.MetricSnapshot{snap("NEW", now, 100)}

	rows := MergeHistory(existing, batch, now)
	require.Len(t, rows, MaxRows)

	// Newest first; the oldest existing row fell off the end.
	assert.Equal(t, "NEW", rows[0].EventID)
	assert.Equal(t, fmt.Sprintf("E%d", MaxRows-2), rows[MaxRows-1].EventID)
}

func TestClosestSnapshotTolerance(t *testing.T) {
	target := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	rows := []models.MetricSnapshot{
		snap("E1", target.Add(30*time.Hour), 70),
		snap("E1", target.Add(-3*time.Hour), 40),
		snap("E2", target, 99),
	}

	got := ClosestSnapshot(rows, "E1", target, 24*time.Hour)
	require.NotNil(t, got)
	assert.Equal(t, 40.0, got.FillRate)

	// Out of tolerance on both sides.
	assert.Nil(t, ClosestSnapshot(rows, "E1", target.Add(-48*time.Hour), 2*time.Hour))
	assert.Nil(t, ClosestSnapshot(rows, "E3", target, 24*time.Hour))
}

func TestClosestSnapshotFirstSeenWinsTies(t *testing.T) {
	target := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	rows := []models.MetricSnapshot{
		snap("E1", target.Add(-time.Hour), 10),
		snap("E1", target.Add(time.Hour), 20),
	}

	got := ClosestSnapshot(rows, "E1", target, 0)
	require.NotNil(t, got)
	assert.Equal(t, 10.0, got.FillRate)
}

func TestClosestSnapshotReturnsCopy(t *testing.T) {
	target := time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	rows := []models.MetricSnapshot{snap("E1", target, 10)}

	got := ClosestSnapshot(rows, "E1", target, 0)
	require.NotNil(t, got)
	got.FillRate = 99
	assert.Equal(t, 10.0, rows[0].FillRate)
}

func TestInMemorySnapshotStoreDedupAcrossBatches(t *testing.T) {
	store := NewInMemorySnapshotStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, []models.MetricSnapshot{snap("E1", now.Add(-10*time.Minute), 40)}, now.Add(-10*time.Minute)))
	require.NoError(t, store.Record(ctx, []models.MetricSnapshot{snap("E1", now, 50)}, now))
	assert.Equal(t, 1, store.Len())

	got, err := store.FindClosest(ctx, "E1", now, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 50.0, got.FillRate)
}

func TestInMemorySnapshotStoreNewerRowWinsDistanceTies(t *testing.T) {
	store := NewInMemorySnapshotStore()
	ctx := context.Background()
	target := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	older := target.Add(-time.Hour)
	newer := target.Add(time.Hour)
	require.NoError(t, store.Record(ctx, []models.MetricSnapshot{snap("E1", older, 10)}, older))
	require.NoError(t, store.Record(ctx, []models.MetricSnapshot{snap("E1", newer, 20)}, newer))
	require.Equal(t, 2, store.Len())

	// Both rows sit exactly one hour from the target.
	got, err := store.FindClosest(ctx, "E1", target, 2*time.Hour)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 20.0, got.FillRate)
}

func TestInMemoryDocumentStoreRoundTrip(t *testing.T) {
	store := NewInMemoryDocumentStore()
	ctx := context.Background()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	doc := &models.Document{
		Version:     models.DocumentVersion,
		SavedAt:     time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
		ScopeFilter: []string{"S1"},
	}
	require.NoError(t, store.Save(ctx, doc))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.SavedAt, got.SavedAt)
	assert.Equal(t, []string{"S1"}, got.ScopeFilter)
}
