package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDay tests normalization to UTC midnight
func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	stamp := time.Date(2024, 3, 15, 2, 30, 0, 0, loc)

	// 02:30 UTC+7 is still March 14 in UTC
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), Day(stamp))
	assert.Equal(t, Day(stamp), Day(Day(stamp)))
}

// TestPriceSeries_Between tests inclusive range trimming
func TestPriceSeries_Between(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := PriceSeries{
		{Date: base, Close: 100},
		{Date: base.AddDate(0, 0, 1), Close: 101},
		{Date: base.AddDate(0, 0, 2), Close: 102},
		{Date: base.AddDate(0, 0, 3), Close: 103},
	}

	trimmed := series.Between(base.AddDate(0, 0, 1), base.AddDate(0, 0, 2))

	assert.Len(t, trimmed, 2)
	assert.InDelta(t, 101.0, trimmed[0].Close, 1e-9)
	assert.InDelta(t, 102.0, trimmed[1].Close, 1e-9)
}

// TestPriceSeries_Index tests the date-keyed lookup with normalized keys
func TestPriceSeries_Index(t *testing.T) {
	base := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	series := PriceSeries{{Date: base, Close: 100}}

	idx := series.Index()

	assert.Len(t, idx, 1)
	assert.InDelta(t, 100.0, idx[Day(base)], 1e-9)
}

// TestPriceSeries_Sort tests chronological ordering in place
func TestPriceSeries_Sort(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := PriceSeries{
		{Date: base.AddDate(0, 0, 2), Close: 102},
		{Date: base, Close: 100},
		{Date: base.AddDate(0, 0, 1), Close: 101},
	}

	series.Sort()

	assert.InDelta(t, 100.0, series[0].Close, 1e-9)
	assert.InDelta(t, 102.0, series[2].Close, 1e-9)
}
