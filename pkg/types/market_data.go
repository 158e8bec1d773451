package types

import (
	"sort"
	"time"
)

// PricePoint is a single daily close observation for one instrument.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is a chronological (ascending) sequence of daily closes.
// Gaps are allowed; a missing date simply means the instrument did not
// trade (or has no data) that day.
type PriceSeries []PricePoint

// Sort orders the series ascending by date.
func (s PriceSeries) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Date.Before(s[j].Date)
	})
}

// Between returns the sub-series within [start, end] inclusive.
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	out := make(PriceSeries, 0, len(s))
	for _, p := range s {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Index builds a date -> close lookup map. Dates are normalized to UTC
// midnight so series from different sources key consistently.
func (s PriceSeries) Index() map[time.Time]float64 {
	idx := make(map[time.Time]float64, len(s))
	for _, p := range s {
		idx[Day(p.Date)] = p.Close
	}
	return idx
}

// Day normalizes a timestamp to UTC midnight, the canonical key for one
// simulated trading day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
