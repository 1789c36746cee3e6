package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storoescobar/commercial-events-calendar/internal/coverage"
	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

func TestWriteEventMetrics(t *testing.T) {
	rows := []models.EventMetrics{
		{
			EventID: "E1", EventName: "Winter, Sale", Status: "active", Scoped: true,
			TargetStores: 5, StoresToDate: 2, FillRate: 40,
			TargetPromos: 10, PromosToDate: 3, PromosPct: 30,
			GapStores: 3, GapPromos: 7, DaysToStart: -2,
			GMVTarget: 1500, GMVCovered: 600, GMVCoverage: 40, GMVGap: 900,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEventMetrics(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "event_id", records[0][0])
	assert.Equal(t, "gmv_gap", records[0][16])

	got := records[1]
	assert.Equal(t, "E1", got[0])
	// Embedded comma survives the round trip.
	assert.Equal(t, "Winter, Sale", got[1])
	assert.Equal(t, "true", got[3])
	assert.Equal(t, "40.00", got[6])
	assert.Equal(t, "-2", got[12])
	assert.Equal(t, "900.00", got[16])
}

func TestWriteEventMetricsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEventMetrics(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestWriteGapStoresSkipsCoveredRows(t *testing.T) {
	rows := []coverage.StoreRow{
		{StoreID: "S1", Brand: "Acme", City: "CityA", Commercial: "P", GMV30: 100, HasPromo: true},
		{StoreID: "S2", Brand: "Acme", City: "CityA", Commercial: "P", GMV30: 50},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGapStores(&buf, "E1", rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"event_id", "store_id", "brand", "city", "commercial", "gmv_last_30d"}, records[0])
	assert.Equal(t, []string{"E1", "S2", "Acme", "CityA", "P", "50.00"}, records[1])
}
