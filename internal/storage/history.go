package storage

import (
	"sort"
	"time"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// MergeHistory applies one snapshot batch to existing history and
// returns the retained rows, newest first. All backends funnel their
// write path through this so dedup and retention behave identically:
// an existing row for a batched event captured within DedupWindow of
// now is replaced, rows older than RetentionAge are dropped, and the
// total is capped at MaxRows with oldest-first eviction.
func MergeHistory(existing, batch []models.MetricSnapshot, now time.Time) []models.MetricSnapshot {
	batched := make(map[string]bool, len(batch))
	for _, row := range batch {
		batched[row.EventID] = true
	}

	merged := make([]models.MetricSnapshot, 0, len(existing)+len(batch))
	for _, row := range existing {
		if batched[row.EventID] && now.Sub(row.CapturedAt) < DedupWindow {
			continue
		}
		merged = append(merged, row)
	}
	merged = append(merged, batch...)

	cutoff := now.Add(-RetentionAge)
	kept := merged[:0]
	for _, row := range merged {
		if !row.CapturedAt.Before(cutoff) {
			kept = append(kept, row)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CapturedAt.After(kept[j].CapturedAt)
	})
	if len(kept) > MaxRows {
		kept = kept[:MaxRows]
	}
	return kept
}

// ClosestSnapshot scans rows for the event's reading nearest the target
// time. First-seen wins on exact distance ties — callers pass rows
// newest-first, so the newer reading wins across every backend. A
// tolerance <= 0 means unbounded.
func ClosestSnapshot(rows []models.MetricSnapshot, eventID string, target time.Time, tolerance time.Duration) *models.MetricSnapshot {
	var best *models.MetricSnapshot
	var bestDist time.Duration
	for i := range rows {
		row := &rows[i]
		if row.EventID != eventID {
			continue
		}
		dist := row.CapturedAt.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if tolerance > 0 && dist > tolerance {
			continue
		}
		if best == nil || dist < bestDist {
			best = row
			bestDist = dist
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}
