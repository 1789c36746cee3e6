package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEventsHeaderCaseAndOrder(t *testing.T) {
	csv := "Event_Name,EVENT_ID,end_date,Start_Date,target_promos,target_stores\n" +
		"Summer Push,EV1,2025-06-30,2025-06-01,10,5\n"

	events, err := ReadEvents(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "EV1", e.ID)
	assert.Equal(t, "Summer Push", e.Name)
	assert.Equal(t, "2025-06-01", e.StartDate)
	assert.Equal(t, "2025-06-30", e.EndDate)
	assert.Equal(t, 10, e.TargetPromos)
	assert.Equal(t, 5, e.TargetStores)
}

func TestReadEventsMissingColumn(t *testing.T) {
	csv := "event_id,event_name,start_date\nEV1,Summer,2025-06-01\n"

	_, err := ReadEvents(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_date")
}

func TestReadEventsLenientTargetCounts(t *testing.T) {
	csv := "event_id,event_name,start_date,end_date,target_promos,target_stores\n" +
		"EV1,Summer,2025-06-01,2025-06-30,not-a-number,\n"

	events, err := ReadEvents(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, events[0].TargetPromos)
	assert.Equal(t, 0, events[0].TargetStores)
}

func TestReadStoresOptionalGMV7(t *testing.T) {
	withCol := "store_id,brand,city,gmv_last_30d,gmv_last_7d\nS1,Acme,Lima,1000,250\n"
	withoutCol := "store_id,brand,city,gmv_last_30d\nS2,Acme,Lima,500\n"

	stores, err := ReadStores(strings.NewReader(withCol))
	require.NoError(t, err)
	v, ok, err := stores[0].GMV7Value()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 250.0, v)

	stores, err = ReadStores(strings.NewReader(withoutCol))
	require.NoError(t, err)
	_, ok, err = stores[0].GMV7Value()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadCampaignsAndTargets(t *testing.T) {
	campaigns, err := ReadCampaigns(strings.NewReader(
		"campaign_id,event_id,store_id,created_at\nC1,EV1,S1,2025-06-05\n"))
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "C1", campaigns[0].ID)

	targets, err := ReadTargets(strings.NewReader(
		"EVENT_ID,STORE_ID\nEV1,S1\nEV1,S2\n"))
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "S2", targets[1].StoreID)
}

func TestReadTableEmptyInput(t *testing.T) {
	_, err := ReadEvents(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}
