// Package export renders metric readings and gap lists as delimited
// text for the consumers outside this service.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/storoescobar/commercial-events-calendar/internal/coverage"
	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// WriteEventMetrics writes one CSV row per event metric reading.
func WriteEventMetrics(w io.Writer, rows []models.EventMetrics) error {
	cw := csv.NewWriter(w)
	header := []string{
		"event_id", "event_name", "status", "scoped",
		"target_stores", "stores_to_date", "fill_rate",
		"target_promos", "promos_to_date", "promos_pct",
		"gap_stores", "gap_promos", "days_to_start",
		"gmv_target", "gmv_covered", "gmv_coverage", "gmv_gap",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, m := range rows {
		record := []string{
			m.EventID, m.EventName, m.Status, strconv.FormatBool(m.Scoped),
			strconv.Itoa(m.TargetStores), strconv.Itoa(m.StoresToDate), formatFloat(m.FillRate),
			strconv.Itoa(m.TargetPromos), strconv.Itoa(m.PromosToDate), formatFloat(m.PromosPct),
			strconv.Itoa(m.GapStores), strconv.Itoa(m.GapPromos), strconv.Itoa(m.DaysToStart),
			formatFloat(m.GMVTarget), formatFloat(m.GMVCovered), formatFloat(m.GMVCoverage), formatFloat(m.GMVGap),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGapStores writes one CSV row per target store still lacking a
// promo, with the attributes operators need to follow up.
func WriteGapStores(w io.Writer, eventID string, rows []coverage.StoreRow) error {
	cw := csv.NewWriter(w)
	header := []string{"event_id", "store_id", "brand", "city", "commercial", "gmv_last_30d"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range rows {
		if s.HasPromo {
			continue
		}
		record := []string{
			eventID, s.StoreID, s.Brand, s.City, s.Commercial, formatFloat(s.GMV30),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
