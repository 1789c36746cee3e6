package ingest

import (
	"fmt"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// Result carries the outcome of validating one ingestion batch. Hard
// errors block adoption of the batch; warnings are advisory and the
// batch may still be adopted.
type Result struct {
	HardErrors []string `json:"hard_errors"`
	Warnings   []string `json:"warnings"`
}

// OK reports whether the batch may be adopted as current state.
func (r Result) OK() bool {
	return len(r.HardErrors) == 0
}

// Validate cross-checks the four tables of a batch. It is a pure
// function: running it twice over the same tables yields identical
// results in identical order.
func Validate(ds models.Dataset) Result {
	var res Result

	eventIDs := make(map[string]bool, len(ds.Events))
	for _, e := range ds.Events {
		if eventIDs[e.ID] {
			res.fail("duplicate event id: %s", e.ID)
			continue
		}
		eventIDs[e.ID] = true
		if _, _, err := e.DateRange(); err != nil {
			res.fail("event %s: invalid date range %q..%q", e.ID, e.StartDate, e.EndDate)
		}
	}

	storeIDs := make(map[string]bool, len(ds.Stores))
	for _, s := range ds.Stores {
		if storeIDs[s.ID] {
			res.fail("duplicate store id: %s", s.ID)
			continue
		}
		storeIDs[s.ID] = true
		if s.Brand == "" {
			res.fail("store %s: missing brand", s.ID)
		}
		if _, err := s.GMV30Value(); err != nil {
			res.fail("store %s: invalid gmv_last_30d %q", s.ID, s.GMV30)
		}
		if _, _, err := s.GMV7Value(); err != nil {
			res.fail("store %s: invalid gmv_last_7d %q", s.ID, s.GMV7)
		}
	}

	campaignIDs := make(map[string]bool, len(ds.Campaigns))
	for _, c := range ds.Campaigns {
		if campaignIDs[c.ID] {
			res.fail("duplicate campaign id: %s", c.ID)
			continue
		}
		campaignIDs[c.ID] = true
		if !eventIDs[c.EventID] {
			res.fail("campaign %s: unknown event %s", c.ID, c.EventID)
		}
		if !storeIDs[c.StoreID] {
			res.fail("campaign %s: unknown store %s", c.ID, c.StoreID)
		}
	}

	targetPairs := make(map[models.EventTarget]bool, len(ds.Targets))
	validTargets := make(map[string][]models.EventTarget)
	for _, t := range ds.Targets {
		if targetPairs[t] {
			res.fail("duplicate target pair: event %s store %s", t.EventID, t.StoreID)
			continue
		}
		targetPairs[t] = true
		ok := true
		if !eventIDs[t.EventID] {
			res.fail("target: unknown event %s", t.EventID)
			ok = false
		}
		if !storeIDs[t.StoreID] {
			res.fail("target: unknown store %s", t.StoreID)
			ok = false
		}
		if ok {
			validTargets[t.EventID] = append(validTargets[t.EventID], t)
		}
	}

	res.warnTargetCounts(ds, validTargets)
	res.warnCampaignDates(ds, eventIDs)
	res.warnBrandGaps(ds, validTargets)

	return res
}

// warnTargetCounts flags declared target_stores counts that disagree
// with the actual target rows, and events with no valid targets at all
// (those are treated as open).
func (r *Result) warnTargetCounts(ds models.Dataset, validTargets map[string][]models.EventTarget) {
	for _, e := range ds.Events {
		n := len(validTargets[e.ID])
		if n == 0 {
			r.warn("event %s: no valid targets, treated as open", e.ID)
			continue
		}
		if e.TargetStores != n {
			r.warn("event %s: declared target_stores=%d but %d valid targets", e.ID, e.TargetStores, n)
		}
	}
}

// warnCampaignDates flags campaigns created outside their event's date
// range. Campaigns with unparsable dates are skipped here; the metrics
// engine excludes them row by row anyway.
func (r *Result) warnCampaignDates(ds models.Dataset, eventIDs map[string]bool) {
	ranges := make(map[string][2]int64, len(ds.Events))
	for _, e := range ds.Events {
		start, end, err := e.DateRange()
		if err != nil {
			continue
		}
		ranges[e.ID] = [2]int64{start.Unix(), end.Unix()}
	}
	for _, c := range ds.Campaigns {
		rng, ok := ranges[c.EventID]
		if !ok {
			continue
		}
		created, err := c.CreatedDate()
		if err != nil {
			continue
		}
		if u := created.Unix(); u < rng[0] || u > rng[1] {
			r.warn("campaign %s: created %s outside event %s date range", c.ID, c.CreatedAt, c.EventID)
		}
	}
}

// warnBrandGaps flags brands that have targeted stores in an event but
// not a single campaign against that event, an activation gap at brand
// granularity.
func (r *Result) warnBrandGaps(ds models.Dataset, validTargets map[string][]models.EventTarget) {
	stores := ds.StoresByID()

	covered := make(map[string]map[string]bool) // event id -> brand -> has campaign
	for _, c := range ds.Campaigns {
		s, ok := stores[c.StoreID]
		if !ok {
			continue
		}
		if covered[c.EventID] == nil {
			covered[c.EventID] = make(map[string]bool)
		}
		covered[c.EventID][s.Brand] = true
	}

	for _, e := range ds.Events {
		seen := make(map[string]bool)
		for _, t := range validTargets[e.ID] {
			s, ok := stores[t.StoreID]
			if !ok || seen[s.Brand] {
				continue
			}
			seen[s.Brand] = true
			if !covered[e.ID][s.Brand] {
				r.warn("event %s: brand %s has targeted stores but no campaigns", e.ID, s.Brand)
			}
		}
	}
}

func (r *Result) fail(format string, args ...any) {
	r.HardErrors = append(r.HardErrors, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
