package coverage

import (
	"fmt"
	"sort"
	"time"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// RiskLevel classifies a city's coverage shortfall close to or during
// an event.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskAtRisk   RiskLevel = "risk"
	RiskCritical RiskLevel = "critical"
)

// Level is the tagged drilldown position. Each case carries exactly the
// parent dimension values needed to recompute its granularity.
type Level interface{ isLevel() }

// CityLevel groups the event's in-scope stores by city.
type CityLevel struct{}

// CommercialLevel groups one city's stores by commercial owner.
type CommercialLevel struct{ City string }

// BrandLevel groups by brand, either within a city + commercial owner
// or across the whole event when both parents are empty.
type BrandLevel struct{ City, Commercial string }

// StoreLevel lists individual stores within city + commercial + brand.
type StoreLevel struct {
	City, Commercial, Brand string
	OnlyGaps                bool
}

// CampaignLevel lists one store's campaigns for the event.
type CampaignLevel struct{ StoreID string }

func (CityLevel) isLevel()       {}
func (CommercialLevel) isLevel() {}
func (BrandLevel) isLevel()      {}
func (StoreLevel) isLevel()      {}
func (CampaignLevel) isLevel()   {}

// GroupRow is the shared shape of one drilldown group: the same target
// count, with-promo count and fill rate the event-level engine
// computes, re-derived for the group's store partition.
type GroupRow struct {
	Key             string  `json:"key"`
	TargetStores    int     `json:"target_stores"`
	StoresWithPromo int     `json:"stores_with_promo"`
	FillRate        float64 `json:"fill_rate"`
	GMVTarget       float64 `json:"gmv_target"`
	GMVCovered      float64 `json:"gmv_covered"`
	GMVGap          float64 `json:"gmv_gap"`
}

// CityRow adds the campaign count and risk classification surfaced at
// city granularity.
type CityRow struct {
	GroupRow
	PromosCreated int       `json:"promos_created"`
	Risk          RiskLevel `json:"risk"`
}

// BrandRow adds the distinct-city footprint of a brand.
type BrandRow struct {
	GroupRow
	Cities int `json:"cities"`
}

// StoreRow is one store's promo presence within the event.
type StoreRow struct {
	StoreID     string     `json:"store_id"`
	Brand       string     `json:"brand"`
	City        string     `json:"city"`
	Commercial  string     `json:"commercial"`
	GMV30       float64    `json:"gmv_last_30d"`
	HasPromo    bool       `json:"has_promo"`
	PromoCount  int        `json:"promo_count"`
	LastPromoAt *time.Time `json:"last_promo_at,omitempty"`
}

// Drilldown re-derives event metrics at decreasing granularity. Every
// level recomputes from the same date-scoped campaign facts rather than
// rolling up child rows, so with-promo counts stay consistent across
// levels.
type Drilldown struct {
	event models.Event
	asOf  time.Time
	opts  Options

	scope     []string // in-scope store ids, stable order
	covered   map[string]bool
	promos    map[string]int
	lastPromo map[string]time.Time
	campaigns []models.Campaign // surviving campaigns, input order
}

// NewDrilldown resolves the event's in-scope store set (target set when
// scoped, scope-filtered catalog otherwise) and its surviving campaigns
// as of the given date. A store catalog is required for drilldown.
func NewDrilldown(e models.Event, campaigns []models.Campaign, asOf time.Time, opts Options) *Drilldown {
	d := &Drilldown{
		event:     e,
		asOf:      models.DateOnly(asOf),
		opts:      opts,
		covered:   make(map[string]bool),
		promos:    make(map[string]int),
		lastPromo: make(map[string]time.Time),
	}

	targets := opts.targetSet(e.ID)
	if len(targets) > 0 {
		d.scope = targets
	} else {
		for id := range opts.StoresByID {
			if opts.storeInScope(id) {
				d.scope = append(d.scope, id)
			}
		}
		sort.Strings(d.scope)
	}

	inScope := make(map[string]bool, len(d.scope))
	for _, id := range d.scope {
		inScope[id] = true
	}

	for _, c := range campaigns {
		if c.EventID != e.ID || !inScope[c.StoreID] {
			continue
		}
		created, err := c.CreatedDate()
		if err != nil || created.After(d.asOf) {
			continue
		}
		d.campaigns = append(d.campaigns, c)
		d.covered[c.StoreID] = true
		d.promos[c.StoreID]++
		if last, ok := d.lastPromo[c.StoreID]; !ok || created.After(last) {
			d.lastPromo[c.StoreID] = created
		}
	}

	return d
}

// Resolve computes the rows for a drilldown level.
func (d *Drilldown) Resolve(level Level) (any, error) {
	switch l := level.(type) {
	case CityLevel:
		return d.Cities(), nil
	case CommercialLevel:
		return d.Commercials(l.City), nil
	case BrandLevel:
		return d.Brands(l.City, l.Commercial), nil
	case StoreLevel:
		return d.Stores(l.City, l.Commercial, l.Brand, l.OnlyGaps), nil
	case CampaignLevel:
		return d.Campaigns(l.StoreID), nil
	default:
		return nil, fmt.Errorf("unknown drilldown level %T", level)
	}
}

// Cities partitions the in-scope set by city, worst coverage first.
func (d *Drilldown) Cities() []CityRow {
	groups := d.group(func(s models.Store) string { return s.City }, nil)
	rows := make([]CityRow, 0, len(groups))
	for _, g := range groups {
		row := CityRow{GroupRow: g.row, Risk: RiskNone}
		for _, id := range g.stores {
			row.PromosCreated += d.promos[id]
		}
		if d.riskWindow() {
			switch frac := row.FillRate / 100; {
			case frac < 0.10:
				row.Risk = RiskCritical
			case frac < 0.30:
				row.Risk = RiskAtRisk
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].FillRate != rows[j].FillRate {
			return rows[i].FillRate < rows[j].FillRate
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

// Commercials partitions one city's stores by commercial owner, worst
// coverage first.
func (d *Drilldown) Commercials(city string) []GroupRow {
	groups := d.group(
		func(s models.Store) string { return s.Commercial },
		func(s models.Store) bool { return s.City == city },
	)
	rows := make([]GroupRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, g.row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].FillRate != rows[j].FillRate {
			return rows[i].FillRate < rows[j].FillRate
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

// Brands partitions by brand, within city + commercial when given or
// across the whole event when both are empty. Sorted by GMV gap
// descending: biggest revenue exposure first.
func (d *Drilldown) Brands(city, commercial string) []BrandRow {
	groups := d.group(
		func(s models.Store) string { return s.Brand },
		func(s models.Store) bool {
			if city != "" && s.City != city {
				return false
			}
			if commercial != "" && s.Commercial != commercial {
				return false
			}
			return true
		},
	)
	rows := make([]BrandRow, 0, len(groups))
	for _, g := range groups {
		cities := make(map[string]bool)
		for _, id := range g.stores {
			cities[d.opts.StoresByID[id].City] = true
		}
		rows = append(rows, BrandRow{GroupRow: g.row, Cities: len(cities)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].GMVGap != rows[j].GMVGap {
			return rows[i].GMVGap > rows[j].GMVGap
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

// Stores lists the stores within city + commercial + brand. Stores
// without a promo sort first, then stores with a promo by earliest
// latest-promo date; onlyGaps keeps just the stores lacking a promo.
func (d *Drilldown) Stores(city, commercial, brand string, onlyGaps bool) []StoreRow {
	var rows []StoreRow
	for _, id := range d.scope {
		s, ok := d.opts.StoresByID[id]
		if !ok || s.City != city || s.Commercial != commercial || s.Brand != brand {
			continue
		}
		if onlyGaps && d.covered[id] {
			continue
		}
		row := StoreRow{
			StoreID:    s.ID,
			Brand:      s.Brand,
			City:       s.City,
			Commercial: s.Commercial,
			HasPromo:   d.covered[id],
			PromoCount: d.promos[id],
		}
		if gmv, err := s.GMV30Value(); err == nil {
			row.GMV30 = gmv
		}
		if last, ok := d.lastPromo[id]; ok {
			t := last
			row.LastPromoAt = &t
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].HasPromo != rows[j].HasPromo {
			return !rows[i].HasPromo
		}
		if rows[i].HasPromo && !rows[i].LastPromoAt.Equal(*rows[j].LastPromoAt) {
			return rows[i].LastPromoAt.Before(*rows[j].LastPromoAt)
		}
		return rows[i].StoreID < rows[j].StoreID
	})
	return rows
}

// GapStores lists every in-scope store still lacking a promo, in
// stable scope order. This feeds the gap export.
func (d *Drilldown) GapStores() []StoreRow {
	var rows []StoreRow
	for _, id := range d.scope {
		if d.covered[id] {
			continue
		}
		s, ok := d.opts.StoresByID[id]
		if !ok {
			continue
		}
		row := StoreRow{
			StoreID:    s.ID,
			Brand:      s.Brand,
			City:       s.City,
			Commercial: s.Commercial,
		}
		if gmv, err := s.GMV30Value(); err == nil {
			row.GMV30 = gmv
		}
		rows = append(rows, row)
	}
	return rows
}

// Campaigns lists one store's surviving campaigns for the event,
// chronologically ascending.
func (d *Drilldown) Campaigns(storeID string) []models.Campaign {
	var rows []models.Campaign
	for _, c := range d.campaigns {
		if c.StoreID == storeID {
			rows = append(rows, c)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ti, _ := rows[i].CreatedDate()
		tj, _ := rows[j].CreatedDate()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

// riskWindow reports whether risk classification applies: the event is
// not finished and either starts within 7 days or is ongoing.
func (d *Drilldown) riskWindow() bool {
	start, err := models.ParseDate(d.event.StartDate)
	if err != nil {
		return false
	}
	end, err := models.ParseDate(d.event.EndDate)
	if err != nil || d.asOf.After(end) {
		return false
	}
	daysToStart := int(start.Sub(d.asOf).Hours() / 24)
	ongoing := !d.asOf.Before(start)
	return daysToStart <= 7 || ongoing
}

type storeGroup struct {
	row    GroupRow
	stores []string
}

// group partitions the in-scope set by a store attribute, computing the
// shared target/with-promo/fill-rate/GMV figures per partition.
func (d *Drilldown) group(key func(models.Store) string, keep func(models.Store) bool) []storeGroup {
	byKey := make(map[string]*storeGroup)
	var order []string
	for _, id := range d.scope {
		s, ok := d.opts.StoresByID[id]
		if !ok || (keep != nil && !keep(s)) {
			continue
		}
		k := key(s)
		g, ok := byKey[k]
		if !ok {
			g = &storeGroup{row: GroupRow{Key: k}}
			byKey[k] = g
			order = append(order, k)
		}
		g.stores = append(g.stores, id)
		g.row.TargetStores++
		if d.covered[id] {
			g.row.StoresWithPromo++
		}
		if gmv, err := s.GMV30Value(); err == nil {
			g.row.GMVTarget += gmv
			if d.covered[id] {
				g.row.GMVCovered += gmv
			}
		}
	}
	groups := make([]storeGroup, 0, len(order))
	for _, k := range order {
		g := byKey[k]
		g.row.FillRate = pct(g.row.StoresWithPromo, g.row.TargetStores)
		if g.row.GMVCovered < g.row.GMVTarget {
			g.row.GMVGap = g.row.GMVTarget - g.row.GMVCovered
		}
		groups = append(groups, *g)
	}
	return groups
}
