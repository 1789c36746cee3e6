package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-06-10 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("10/06/2025")
	assert.Error(t, err)
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2025, 6, 10, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), DateOnly(in))
}

func TestEventDateRange(t *testing.T) {
	e := Event{StartDate: "2025-06-01", EndDate: "2025-06-30"}
	start, end, err := e.DateRange()
	require.NoError(t, err)
	assert.True(t, start.Before(end))

	_, _, err = Event{StartDate: "2025-06-30", EndDate: "2025-06-01"}.DateRange()
	assert.Error(t, err)

	_, _, err = Event{StartDate: "soon", EndDate: "2025-06-01"}.DateRange()
	assert.Error(t, err)
}

func TestStoreGMVParsing(t *testing.T) {
	v, err := Store{GMV30: "1200.50"}.GMV30Value()
	require.NoError(t, err)
	assert.Equal(t, 1200.50, v)

	_, err = Store{GMV30: "-1"}.GMV30Value()
	assert.Error(t, err)

	_, err = Store{GMV30: "lots"}.GMV30Value()
	assert.Error(t, err)

	_, ok, err := Store{}.GMV7Value()
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err = Store{GMV7: "300"}.GMV7Value()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 300.0, v)
}

func TestDatasetStoresByIDKeepsFirstDuplicate(t *testing.T) {
	ds := Dataset{Stores: []Store{
		{ID: "S1", Brand: "First"},
		{ID: "S1", Brand: "Second"},
	}}
	assert.Equal(t, "First", ds.StoresByID()["S1"].Brand)
}
