package models

import "time"

// EventMetrics is the per-event coverage reading computed for one as-of
// date and scope filter. Percentages are 0-100.
type EventMetrics struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	Status    string `json:"status"`

	// Scoped is true when the event has at least one valid target row;
	// an open event falls back to its declared target_stores count.
	Scoped bool `json:"scoped"`

	TargetStores int     `json:"target_stores"`
	StoresToDate int     `json:"stores_to_date"`
	TargetPromos int     `json:"target_promos"`
	PromosToDate int     `json:"promos_to_date"`
	FillRate     float64 `json:"fill_rate"`
	StoresPct    float64 `json:"stores_pct"`
	PromosPct    float64 `json:"promos_pct"`
	GapStores    int     `json:"gap_stores"`
	GapPromos    int     `json:"gap_promos"`
	DaysToStart  int     `json:"days_to_start"`

	// GMV figures are populated only for scoped events computed against
	// a store catalog; they stay zero for open events.
	GMVTarget   float64 `json:"gmv_target"`
	GMVCovered  float64 `json:"gmv_covered"`
	GMVCoverage float64 `json:"gmv_coverage"`
	GMVGap      float64 `json:"gmv_gap"`
}

// MetricSnapshot is one immutable historical reading of an event's
// metrics at one capture time. Snapshots are appended by the snapshot
// store and only ever superseded or pruned, never edited.
type MetricSnapshot struct {
	EventID         string    `json:"event_id"`
	CapturedAt      time.Time `json:"captured_at"`
	TargetStores    int       `json:"target_stores"`
	StoresWithPromo int       `json:"stores_with_promo"`
	FillRate        float64   `json:"fill_rate"`
	TargetPromos    int       `json:"target_promos"`
	PromosToDate    int       `json:"promos_to_date"`
	GMVTarget       float64   `json:"gmv_target"`
	GMVCovered      float64   `json:"gmv_covered"`
	GMVCoverage     float64   `json:"gmv_coverage"`
}

// SnapshotFromMetrics builds the snapshot row persisted for one event.
func SnapshotFromMetrics(m EventMetrics, capturedAt time.Time) MetricSnapshot {
	return MetricSnapshot{
		EventID:         m.EventID,
		CapturedAt:      capturedAt,
		TargetStores:    m.TargetStores,
		StoresWithPromo: m.StoresToDate,
		FillRate:        m.FillRate,
		TargetPromos:    m.TargetPromos,
		PromosToDate:    m.PromosToDate,
		GMVTarget:       m.GMVTarget,
		GMVCovered:      m.GMVCovered,
		GMVCoverage:     m.GMVCoverage,
	}
}

// Document is the versioned persisted record wrapping the validated
// tables for storage across sessions, together with the active scope
// filter selection.
type Document struct {
	Version     int       `json:"version"`
	SavedAt     time.Time `json:"saved_at"`
	ScopeFilter []string  `json:"scope_filter,omitempty"`
	Dataset     Dataset   `json:"dataset"`
}

// DocumentVersion is the current persisted document format version.
const DocumentVersion = 2
