package coverage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storoescobar/commercial-events-calendar/internal/metrics"
	"github.com/storoescobar/commercial-events-calendar/internal/models"
	"github.com/storoescobar/commercial-events-calendar/internal/storage"
)

// Lookback windows for trend deltas.
const (
	delta48hLookback  = 48 * time.Hour
	delta48hTolerance = 24 * time.Hour
	delta7dLookback   = 7 * 24 * time.Hour
	delta7dTolerance  = 48 * time.Hour
)

// History records metric snapshots and answers trend delta queries
// against the snapshot store. Writes are best-effort: a failing backend
// costs the reading's history, never the caller's computation.
type History struct {
	store   storage.SnapshotStore
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHistory constructs a History. metrics may be nil.
func NewHistory(store storage.SnapshotStore, logger *zap.Logger, m *metrics.Metrics) *History {
	return &History{store: store, logger: logger, metrics: m}
}

// RecordResult reports what happened to one snapshot write. Persisted
// is false when the backing store failed and the batch was dropped.
type RecordResult struct {
	Rows      int  `json:"rows"`
	Persisted bool `json:"persisted"`
}

// Record captures one snapshot row per event metric and merges them
// into history. Storage failures are swallowed and logged as lost
// history; the result flag keeps the no-op path observable.
func (h *History) Record(ctx context.Context, current []models.EventMetrics, now time.Time) RecordResult {
	rows := make([]models.MetricSnapshot, 0, len(current))
	for _, m := range current {
		rows = append(rows, models.SnapshotFromMetrics(m, now))
	}

	res := RecordResult{Rows: len(rows), Persisted: true}
	if err := h.store.Record(ctx, rows, now); err != nil {
		res.Persisted = false
		h.logger.Warn("snapshot history lost for this write",
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
	}
	if h.metrics != nil {
		h.metrics.RecordSnapshotWrite(res.Rows, !res.Persisted)
	}
	return res
}

// Delta is the trend reading for one event: fill-rate and GMV-coverage
// movement against the closest snapshots near 48 hours and 7 days ago.
// A nil field means no qualifying snapshot was found.
type Delta struct {
	EventID string   `json:"event_id"`
	Fill48h *float64 `json:"fill_48h,omitempty"`
	Fill7d  *float64 `json:"fill_7d,omitempty"`
	GMV48h  *float64 `json:"gmv_48h,omitempty"`
	GMV7d   *float64 `json:"gmv_7d,omitempty"`
}

// Deltas computes trend deltas for each current metric row. GMV deltas
// stay nil unless the event currently has a positive GMV target.
func (h *History) Deltas(ctx context.Context, current []models.EventMetrics, now time.Time) []Delta {
	out := make([]Delta, 0, len(current))
	for _, m := range current {
		d := Delta{EventID: m.EventID}
		if snap := h.lookup(ctx, m.EventID, now.Add(-delta48hLookback), delta48hTolerance); snap != nil {
			d.Fill48h = diff(m.FillRate, snap.FillRate)
			if m.GMVTarget > 0 {
				d.GMV48h = diff(m.GMVCoverage, snap.GMVCoverage)
			}
		}
		if snap := h.lookup(ctx, m.EventID, now.Add(-delta7dLookback), delta7dTolerance); snap != nil {
			d.Fill7d = diff(m.FillRate, snap.FillRate)
			if m.GMVTarget > 0 {
				d.GMV7d = diff(m.GMVCoverage, snap.GMVCoverage)
			}
		}
		out = append(out, d)
	}
	return out
}

func (h *History) lookup(ctx context.Context, eventID string, target time.Time, tolerance time.Duration) *models.MetricSnapshot {
	snap, err := h.store.FindClosest(ctx, eventID, target, tolerance)
	if err != nil {
		h.logger.Warn("snapshot lookup failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		if h.metrics != nil {
			h.metrics.RecordSnapshotQuery("error")
		}
		return nil
	}
	if h.metrics != nil {
		if snap == nil {
			h.metrics.RecordSnapshotQuery("miss")
		} else {
			h.metrics.RecordSnapshotQuery("hit")
		}
	}
	return snap
}

func diff(current, previous float64) *float64 {
	d := current - previous
	return &d
}
