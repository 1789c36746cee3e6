package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for every date column in the ingested
// tables. Times of day are never part of the tabular inputs.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD column value into a UTC midnight instant.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// DateOnly truncates a timestamp to its UTC calendar date. Metric
// computations compare dates only; time of day is discarded.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Event is one promotional event rolled out across the store network.
// Date and numeric columns keep their raw CSV text so the validator can
// report malformed values and the engine can skip them row by row.
type Event struct {
	ID           string `json:"event_id"`
	Name         string `json:"event_name"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	TargetPromos int    `json:"target_promos"`
	TargetStores int    `json:"target_stores"`
}

// DateRange parses the event's start and end dates. It returns an error
// when either date is malformed or the range is inverted.
func (e Event) DateRange() (start, end time.Time, err error) {
	start, err = ParseDate(e.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = ParseDate(e.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end date before start date")
	}
	return start, end, nil
}

// Campaign is one promo activated at one store for one event.
type Campaign struct {
	ID        string `json:"campaign_id"`
	EventID   string `json:"event_id"`
	StoreID   string `json:"store_id"`
	CreatedAt string `json:"created_at"`
}

// CreatedDate parses the campaign creation date.
func (c Campaign) CreatedDate() (time.Time, error) {
	return ParseDate(c.CreatedAt)
}

// Store is one retail location in the network. GMV columns keep their
// raw text; GMV7 is optional and empty when the column was absent.
type Store struct {
	ID         string `json:"store_id"`
	Brand      string `json:"brand"`
	Region     string `json:"region"`
	City       string `json:"city"`
	Commercial string `json:"commercial"`
	Segment    string `json:"segment"`
	OpsZone    string `json:"ops_zone"`
	GMV30      string `json:"gmv_last_30d"`
	GMV7       string `json:"gmv_last_7d,omitempty"`
}

// GMV30Value parses the trailing-30-day GMV. The column is required,
// numeric and non-negative; anything else is an error.
func (s Store) GMV30Value() (float64, error) {
	return parseGMV(s.GMV30)
}

// GMV7Value parses the optional trailing-7-day GMV. It returns ok=false
// when the column is absent; a present but malformed or negative value
// is an error.
func (s Store) GMV7Value() (float64, bool, error) {
	if strings.TrimSpace(s.GMV7) == "" {
		return 0, false, nil
	}
	v, err := parseGMV(s.GMV7)
	return v, err == nil, err
}

func parseGMV(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.New("negative GMV")
	}
	return v, nil
}

// EventTarget declares one store in scope for one event. One or more
// targets switch an event from open to scoped.
type EventTarget struct {
	EventID string `json:"event_id"`
	StoreID string `json:"store_id"`
}

// Dataset is one ingested batch of the four tables. Entities are held
// immutable for the session once the batch is adopted.
type Dataset struct {
	Events    []Event       `json:"events"`
	Campaigns []Campaign    `json:"campaigns"`
	Stores    []Store       `json:"stores"`
	Targets   []EventTarget `json:"targets"`
}

// StoresByID indexes the store catalog by id. Later duplicates do not
// overwrite earlier rows; the validator rejects duplicates anyway.
func (d Dataset) StoresByID() map[string]Store {
	m := make(map[string]Store, len(d.Stores))
	for _, s := range d.Stores {
		if _, ok := m[s.ID]; !ok {
			m[s.ID] = s
		}
	}
	return m
}
