package coverage

import (
	"time"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// Summary is the event-level overview: the headline coverage cards plus
// the priority lists operators act on first.
type Summary struct {
	Metrics models.EventMetrics `json:"metrics"`

	// Headline cards.
	Coverage       float64 `json:"coverage"`
	PromosVsTarget float64 `json:"promos_vs_target"`
	GMVCoverage    float64 `json:"gmv_coverage"`

	// Priority lists.
	WorstCities []CityRow  `json:"worst_cities"`
	TopGMVGaps  []BrandRow `json:"top_gmv_gaps"`
}

// Summarize builds the event summary: current metrics, headline cards,
// the 3 worst-covered cities and the 3 brands with the largest GMV gap.
func Summarize(e models.Event, campaigns []models.Campaign, asOf time.Time, opts Options) Summary {
	metrics := ComputeEventMetrics([]models.Event{e}, campaigns, asOf, opts)[0]
	d := NewDrilldown(e, campaigns, asOf, opts)

	s := Summary{
		Metrics:        metrics,
		Coverage:       metrics.FillRate,
		PromosVsTarget: metrics.PromosPct,
		GMVCoverage:    metrics.GMVCoverage,
	}
	if cities := d.Cities(); len(cities) > 3 {
		s.WorstCities = cities[:3]
	} else {
		s.WorstCities = cities
	}
	if brands := d.Brands("", ""); len(brands) > 3 {
		s.TopGMVGaps = brands[:3]
	} else {
		s.TopGMVGaps = brands
	}
	return s
}
