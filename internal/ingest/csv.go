// Package ingest parses the four tabular inputs of an ingestion batch
// and cross-checks them before the batch may be adopted as current
// session state.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// table wraps a parsed CSV with case-insensitive, order-independent
// column access.
type table struct {
	cols map[string]int
	rows [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV: missing header row")
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return &table{cols: cols, rows: records[1:]}, nil
}

// get returns the trimmed cell value for a column, or "" when the
// column is absent or the row is short.
func (t *table) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// getInt parses an integer cell leniently: malformed values read as 0
// so that a sloppy target count cannot abort the whole batch.
func (t *table) getInt(row []string, col string) int {
	v, err := strconv.Atoi(t.get(row, col))
	if err != nil {
		return 0
	}
	return v
}

// ReadEvents parses the events table.
func ReadEvents(r io.Reader) ([]models.Event, error) {
	t, err := readTable(r, "event_id", "event_name", "start_date", "end_date")
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	events := make([]models.Event, 0, len(t.rows))
	for _, row := range t.rows {
		events = append(events, models.Event{
			ID:           t.get(row, "event_id"),
			Name:         t.get(row, "event_name"),
			Description:  t.get(row, "description"),
			Status:       t.get(row, "status"),
			StartDate:    t.get(row, "start_date"),
			EndDate:      t.get(row, "end_date"),
			TargetPromos: t.getInt(row, "target_promos"),
			TargetStores: t.getInt(row, "target_stores"),
		})
	}
	return events, nil
}

// ReadCampaigns parses the campaigns table.
func ReadCampaigns(r io.Reader) ([]models.Campaign, error) {
	t, err := readTable(r, "campaign_id", "event_id", "store_id", "created_at")
	if err != nil {
		return nil, fmt.Errorf("campaigns: %w", err)
	}
	campaigns := make([]models.Campaign, 0, len(t.rows))
	for _, row := range t.rows {
		campaigns = append(campaigns, models.Campaign{
			ID:        t.get(row, "campaign_id"),
			EventID:   t.get(row, "event_id"),
			StoreID:   t.get(row, "store_id"),
			CreatedAt: t.get(row, "created_at"),
		})
	}
	return campaigns, nil
}

// ReadStores parses the store catalog. gmv_last_7d is optional.
func ReadStores(r io.Reader) ([]models.Store, error) {
	t, err := readTable(r, "store_id", "brand", "gmv_last_30d")
	if err != nil {
		return nil, fmt.Errorf("stores: %w", err)
	}
	stores := make([]models.Store, 0, len(t.rows))
	for _, row := range t.rows {
		stores = append(stores, models.Store{
			ID:         t.get(row, "store_id"),
			Brand:      t.get(row, "brand"),
			Region:     t.get(row, "region"),
			City:       t.get(row, "city"),
			Commercial: t.get(row, "commercial"),
			Segment:    t.get(row, "segment"),
			OpsZone:    t.get(row, "ops_zone"),
			GMV30:      t.get(row, "gmv_last_30d"),
			GMV7:       t.get(row, "gmv_last_7d"),
		})
	}
	return stores, nil
}

// ReadTargets parses the optional event targets table.
func ReadTargets(r io.Reader) ([]models.EventTarget, error) {
	t, err := readTable(r, "event_id", "store_id")
	if err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	targets := make([]models.EventTarget, 0, len(t.rows))
	for _, row := range t.rows {
		targets = append(targets, models.EventTarget{
			EventID: t.get(row, "event_id"),
			StoreID: t.get(row, "store_id"),
		})
	}
	return targets, nil
}
