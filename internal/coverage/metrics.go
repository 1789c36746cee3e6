// Package coverage computes per-event coverage and fill-rate metrics
// and re-derives them at decreasing granularity for drilldown.
package coverage

import (
	"time"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// Options scopes a metrics computation. All fields are optional: a nil
// StoresByID means no catalog gating, a nil AllowedStoreIDs means no
// scope filter, empty Targets means every event is open.
type Options struct {
	StoresByID      map[string]models.Store
	AllowedStoreIDs map[string]struct{}
	Targets         []models.EventTarget
}

// storeInScope applies catalog and scope-filter gating to a store id.
func (o Options) storeInScope(id string) bool {
	if o.StoresByID != nil {
		if _, ok := o.StoresByID[id]; !ok {
			return false
		}
	}
	if o.AllowedStoreIDs != nil {
		if _, ok := o.AllowedStoreIDs[id]; !ok {
			return false
		}
	}
	return true
}

// targetSet resolves the valid target stores for one event: declared
// target rows whose store passes catalog and scope-filter gating.
// Insertion order of the target table is preserved for determinism.
func (o Options) targetSet(eventID string) []string {
	var set []string
	seen := make(map[string]bool)
	for _, t := range o.Targets {
		if t.EventID != eventID || seen[t.StoreID] || !o.storeInScope(t.StoreID) {
			continue
		}
		seen[t.StoreID] = true
		set = append(set, t.StoreID)
	}
	return set
}

// ComputeEventMetrics computes one metrics row per event as of the
// given date. Campaigns with unparsable creation dates are skipped row
// by row; an event with a malformed date range still yields a
// best-effort row (the validator is expected to have rejected it).
func ComputeEventMetrics(events []models.Event, campaigns []models.Campaign, asOf time.Time, opts Options) []models.EventMetrics {
	asOf = models.DateOnly(asOf)

	byEvent := make(map[string][]models.Campaign, len(events))
	for _, c := range campaigns {
		byEvent[c.EventID] = append(byEvent[c.EventID], c)
	}

	out := make([]models.EventMetrics, 0, len(events))
	for _, e := range events {
		out = append(out, computeOne(e, byEvent[e.ID], asOf, opts))
	}
	return out
}

func computeOne(e models.Event, campaigns []models.Campaign, asOf time.Time, opts Options) models.EventMetrics {
	m := models.EventMetrics{
		EventID:      e.ID,
		EventName:    e.Name,
		Status:       e.Status,
		TargetPromos: e.TargetPromos,
	}

	targets := opts.targetSet(e.ID)
	targetSet := make(map[string]bool, len(targets))
	for _, id := range targets {
		targetSet[id] = true
	}
	m.Scoped = len(targets) > 0
	if m.Scoped {
		m.TargetStores = len(targets)
	} else {
		m.TargetStores = e.TargetStores
	}

	coveredStores := make(map[string]bool)
	for _, c := range campaigns {
		if !opts.storeInScope(c.StoreID) {
			continue
		}
		if m.Scoped && !targetSet[c.StoreID] {
			continue
		}
		created, err := c.CreatedDate()
		if err != nil || created.After(asOf) {
			continue
		}
		m.PromosToDate++
		coveredStores[c.StoreID] = true
	}
	m.StoresToDate = len(coveredStores)

	m.PromosPct = pct(m.PromosToDate, m.TargetPromos)
	m.FillRate = pct(m.StoresToDate, m.TargetStores)
	// Exposed under two names; one formula for both.
	m.StoresPct = m.FillRate
	m.GapPromos = gap(m.TargetPromos, m.PromosToDate)
	m.GapStores = gap(m.TargetStores, m.StoresToDate)

	if start, err := models.ParseDate(e.StartDate); err == nil {
		m.DaysToStart = int(start.Sub(asOf).Hours() / 24)
	}

	if m.Scoped && opts.StoresByID != nil {
		for _, id := range targets {
			gmv, err := opts.StoresByID[id].GMV30Value()
			if err != nil {
				continue
			}
			m.GMVTarget += gmv
			if coveredStores[id] {
				m.GMVCovered += gmv
			}
		}
		if m.GMVTarget > 0 {
			m.GMVCoverage = m.GMVCovered / m.GMVTarget * 100
		}
		if m.GMVCovered < m.GMVTarget {
			m.GMVGap = m.GMVTarget - m.GMVCovered
		}
	}

	return m
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func gap(target, actual int) int {
	if actual >= target {
		return 0
	}
	return target - actual
}
