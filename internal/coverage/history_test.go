package coverage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
	"github.com/storoescobar/commercial-events-calendar/internal/storage"
)

type failingSnapshotStore struct{}

func (failingSnapshotStore) Record(context.Context, []models.MetricSnapshot, time.Time) error {
	return errors.New("backend down")
}

func (failingSnapshotStore) FindClosest(context.Context, string, time.Time, time.Duration) (*models.MetricSnapshot, error) {
	return nil, errors.New("backend down")
}

func TestHistoryRecordAndDeltas(t *testing.T) {
	store := storage.NewInMemorySnapshotStore()
	h := NewHistory(store, zap.NewNop(), nil)
	ctx := context.Background()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	past := []models.EventMetrics{{EventID: "E1", FillRate: 40, GMVTarget: 500, GMVCoverage: 20}}

	res := h.Record(ctx, past, now.Add(-delta48hLookback))
	require.True(t, res.Persisted)
	require.Equal(t, 1, res.Rows)

	current := []models.EventMetrics{{EventID: "E1", FillRate: 70, GMVTarget: 500, GMVCoverage: 55}}
	deltas := h.Deltas(ctx, current, now)
	require.Len(t, deltas, 1)

	d := deltas[0]
	assert.Equal(t, "E1", d.EventID)
	require.NotNil(t, d.Fill48h)
	assert.Equal(t, 30.0, *d.Fill48h)
	require.NotNil(t, d.GMV48h)
	assert.Equal(t, 35.0, *d.GMV48h)

	// Nothing within the 7-day window's tolerance.
	assert.Nil(t, d.Fill7d)
	assert.Nil(t, d.GMV7d)
}

func TestHistoryDeltasNilWithoutSnapshots(t *testing.T) {
	h := NewHistory(storage.NewInMemorySnapshotStore(), zap.NewNop(), nil)

	deltas := h.Deltas(context.Background(), []models.EventMetrics{{EventID: "E1", FillRate: 50}}, time.Now())
	require.Len(t, deltas, 1)
	assert.Nil(t, deltas[0].Fill48h)
	assert.Nil(t, deltas[0].Fill7d)
}

func TestHistoryDeltasOmitGMVWithoutTarget(t *testing.T) {
	store := storage.NewInMemorySnapshotStore()
	h := NewHistory(store, zap.NewNop(), nil)
	ctx := context.Background()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	h.Record(ctx, []models.EventMetrics{{EventID: "E1", FillRate: 10}}, now.Add(-delta48hLookback))

	deltas := h.Deltas(ctx, []models.EventMetrics{{EventID: "E1", FillRate: 25}}, now)
	require.Len(t, deltas, 1)
	require.NotNil(t, deltas[0].Fill48h)
	assert.Equal(t, 15.0, *deltas[0].Fill48h)
	assert.Nil(t, deltas[0].GMV48h)
}

func TestHistoryRecordSwallowsStoreFailure(t *testing.T) {
	h := NewHistory(failingSnapshotStore{}, zap.NewNop(), nil)

	res := h.Record(context.Background(), []models.EventMetrics{{EventID: "E1"}}, time.Now())
	assert.False(t, res.Persisted)
	assert.Equal(t, 1, res.Rows)
}

func TestHistoryDeltasSurviveLookupFailure(t *testing.T) {
	h := NewHistory(failingSnapshotStore{}, zap.NewNop(), nil)

	deltas := h.Deltas(context.Background(), []models.EventMetrics{{EventID: "E1", FillRate: 50}}, time.Now())
	require.Len(t, deltas, 1)
	assert.Nil(t, deltas[0].Fill48h)
}
