package coverage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

func date(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func catalog(stores ...models.Store) map[string]models.Store {
	m := make(map[string]models.Store, len(stores))
	for _, s := range stores {
		m[s.ID] = s
	}
	return m
}

func TestComputeEventMetricsScopedScenario(t *testing.T) {
	// One targeted store with two campaigns before today and one after.
	event := models.Event{
		ID: "E1", Name: "Launch", StartDate: "2025-06-01", EndDate: "2025-06-30",
		TargetPromos: 10, TargetStores: 5,
	}
	campaigns := []models.Campaign{
		{ID: "C1", EventID: "E1", StoreID: "S1", CreatedAt: "2025-06-02"},
		{ID: "C2", EventID: "E1", StoreID: "S1", CreatedAt: "2025-06-05"},
		{ID: "C3", EventID: "E1", StoreID: "S1", CreatedAt: "2025-06-20"},
	}
	opts := Options{
		StoresByID: catalog(models.Store{ID: "S1", Brand: "Acme", GMV30: "1000"}),
		Targets:    []models.EventTarget{{EventID: "E1", StoreID: "S1"}},
	}

	rows := ComputeEventMetrics([]models.Event{event}, campaigns, date("2025-06-10"), opts)
	require.Len(t, rows, 1)

	m := rows[0]
	assert.True(t, m.Scoped)
	assert.Equal(t, 1, m.TargetStores)
	assert.Equal(t, 2, m.PromosToDate)
	assert.Equal(t, 1, m.StoresToDate)
	assert.Equal(t, 100.0, m.FillRate)
	assert.Equal(t, m.FillRate, m.StoresPct)
	assert.Equal(t, 20.0, m.PromosPct)
	assert.Equal(t, 8, m.GapPromos)
	assert.Equal(t, 0, m.GapStores)
	assert.Equal(t, 1000.0, m.GMVTarget)
	assert.Equal(t, 1000.0, m.GMVCovered)
	assert.Equal(t, 100.0, m.GMVCoverage)
	assert.Equal(t, 0.0, m.GMVGap)
}

func TestComputeEventMetricsOpenFallback(t *testing.T) {
	event := models.Event{
		ID: "E1", StartDate: "2025-06-15", EndDate: "2025-06-30",
		TargetPromos: 4, TargetStores: 8,
	}
	campaigns := []models.Campaign{
		{ID: "C1", EventID: "E1", StoreID: "S1", CreatedAt: "2025-06-02"},
		{ID: "C2", EventID: "E1", StoreID: "S2", CreatedAt: "2025-06-03"},
	}
	opts := Options{
		StoresByID: catalog(
			models.Store{ID: "S1", Brand: "Acme", GMV30: "100"},
			models.Store{ID: "S2", Brand: "Acme", GMV30: "200"},
		),
	}

	m := ComputeEventMetrics([]models.Event{event}, campaigns, date("2025-06-10"), opts)[0]
	assert.False(t, m.Scoped)
	assert.Equal(t, 8, m.TargetStores)
	assert.Equal(t, 2, m.StoresToDate)
	assert.Equal(t, 25.0, m.FillRate)
	assert.Equal(t, 5, m.DaysToStart)
	// GMV figures are omitted for open events.
	assert.Equal(t, 0.0, m.GMVTarget)
	assert.Equal(t, 0.0, m.GMVCoverage)
}

func TestComputeEventMetricsTargetOutsideCatalogMakesEventOpen(t *testing.T) {
	event := models.Event{ID: "E1", StartDate: "2025-06-01", EndDate: "2025-06-30", TargetStores: 3}
	opts := Options{
		StoresByID: catalog(models.Store{ID: "S1", Brand: "Acme", GMV30: "100"}),
		Targets:    []models.EventTarget{{EventID: "E1", StoreID: "GHOST"}},
	}

	m := ComputeEventMetrics([]models.Event{event}, nil, date("2025-06-10"), opts)[0]
	assert.False(t, m.Scoped)
	assert.Equal(t, 3, m.TargetStores)
}

func TestComputeEventMetricsScopeFilter(t *testing.T) {
	event := models.Event{ID: "E1", StartDate: "2025-06-01", EndDate: "2025-06-30"}
	campaigns := []models.Campaign{
		{ID: "C1", EventID: "E1", StoreID: "S1", CreatedAt: "2025-06-02"},
		{ID: "C2", EventID: "E1", StoreID: "S2", CreatedAt: "2025-06-02"},
	}
	opts := Options{
		StoresByID: catalog(
			models.Store{ID: "S1", Brand: "Acme", GMV30: "100"},
			models.Store{ID: "S2", Brand: "Acme", GMV30: "200"},
		),
		AllowedStoreIDs: map[string]struct{}{"S1": {}},
		Targets: []models.EventTarget{
			{EventID: "E1", StoreID: "S1"},
			{EventID: "E1", StoreID: "S2"},
		},
	}

	m := ComputeEventMetrics([]models.Event{event}, campaigns, date("2025-06-10"), opts)[0]
	// S2 falls outside the scope filter: not a target, not a campaign.
	assert.Equal(t, 1, m.TargetStores)
	assert.Equal(t, 1, m.PromosToDate)
	assert.Equal(t, 100.0, m.GMVCoverage)
	assert.Equal(t, 100.0, m.GMVTarget)
}

func TestComputeEventMetricsDateOnlyComparison(t *testing.T) {
	event := models.Event{ID: "E1", StartDate: "2025-06-01", EndDate: "2025-06-30"}
	campaigns := []models.Campaign{
		{ID: "C1", EventID: "E1", StoreID: "S1", CreatedAt: "2025-06-10"},
	}
	opts := Options{Targets: []models.EventTarget{{EventID: "E1", StoreID: "S1"}}}

	// Same calendar day counts even though the as-of instant is earlier
	// in the day than any campaign write could be.
	asOf := time.Date(2025, 6, 10, 0, 30, 0, 0, time.UTC)
	m := ComputeEventMetrics([]models.Event{event}, campaigns, asOf, opts)[0]
	assert.Equal(t, 1, m.PromosToDate)
}

func TestComputeEventMetricsSkipsUnparsableCampaignDates(t *testing.T) {
	event := models.Event{ID: "E1", StartDate: "2025-06-01", EndDate: "2025-06-30", TargetPromos: 2}
	campaigns := []models.Campaign{
		{ID: "C1", EventID: "E1", StoreID: "S1", CreatedAt: "yesterday"},
		{ID: "C2", EventID: "E1", StoreID: "S1", CreatedAt: "2025-06-05"},
	}
	opts := Options{Targets: []models.EventTarget{{EventID: "E1", StoreID: "S1"}}}

	m := ComputeEventMetrics([]models.Event{event}, campaigns, date("2025-06-10"), opts)[0]
	assert.Equal(t, 1, m.PromosToDate)
}

func TestComputeEventMetricsZeroTargetsZeroDivision(t *testing.T) {
	event := models.Event{ID: "E1", StartDate: "2025-06-01", EndDate: "2025-06-30"}

	m := ComputeEventMetrics([]models.Event{event}, nil, date("2025-06-10"), Options{})[0]
	assert.Equal(t, 0.0, m.PromosPct)
	assert.Equal(t, 0.0, m.FillRate)
	assert.Equal(t, 0, m.GapPromos)
	assert.Equal(t, 0, m.GapStores)
}

func TestComputeEventMetricsNegativeDaysToStart(t *testing.T) {
	event := models.Event{ID: "E1", StartDate: "2025-06-01", EndDate: "2025-06-30"}

	m := ComputeEventMetrics([]models.Event{event}, nil, date("2025-06-10"), Options{})[0]
	assert.Equal(t, -9, m.DaysToStart)
}
