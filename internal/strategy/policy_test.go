package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestResolvePolicy_Modes tests the flag-to-variant folding
func TestResolvePolicy_Modes(t *testing.T) {
	p := ResolvePolicy(DefaultParams())
	assert.Equal(t, GridFixed, p.gridMode)
	assert.Equal(t, BasisEveryLot, p.spacingBasis)
	assert.Equal(t, GateTraditional, p.buyGate)
	assert.Equal(t, GateTraditional, p.sellGate)
	assert.Equal(t, SellLotLevel, p.sellScope)

	params := DefaultParams()
	params.EnableIncrementalBuyGrid = true
	params.DynamicGrid = &DynamicGridParams{ReferencePrice: 100, Multiplier: 2}
	params.EnableAverageBasedGrid = true
	params.EnableAdaptiveBuy = true
	params.EnableAdaptiveSell = true
	params.EnableAverageBasedSell = true

	p = ResolvePolicy(params)
	// Incremental wins over dynamic when both are configured
	assert.Equal(t, GridIncremental, p.gridMode)
	assert.Equal(t, BasisAverageCost, p.spacingBasis)
	assert.Equal(t, GateAdaptive, p.buyGate)
	assert.Equal(t, GateAdaptive, p.sellGate)
	assert.Equal(t, SellAverageBased, p.sellScope)
}

// TestPolicy_GridSize_Fixed tests the flat base spacing
func TestPolicy_GridSize_Fixed(t *testing.T) {
	p := ResolvePolicy(DefaultParams())

	assert.InDelta(t, 0.10, p.GridSize(0, 100.0), 1e-9)
	assert.InDelta(t, 0.10, p.GridSize(5, 100.0), 1e-9)
}

// TestPolicy_GridSize_Incremental tests multiplicative widening per
// consecutive buy
func TestPolicy_GridSize_Incremental(t *testing.T) {
	params := DefaultParams()
	params.EnableIncrementalBuyGrid = true
	p := ResolvePolicy(params)

	assert.InDelta(t, 0.10, p.GridSize(0, 100.0), 1e-9)
	assert.InDelta(t, 0.15, p.GridSize(1, 100.0), 1e-9)
	assert.InDelta(t, 0.225, p.GridSize(2, 100.0), 1e-9)

	// Strictly monotone in the consecutive-buy count
	for n := 1; n < 8; n++ {
		assert.Greater(t, p.GridSize(n, 100.0), p.GridSize(n-1, 100.0))
	}
}

// TestPolicy_GridSize_Dynamic tests deviation-scaled spacing with the base
// spacing as floor
func TestPolicy_GridSize_Dynamic(t *testing.T) {
	params := DefaultParams()
	params.DynamicGrid = &DynamicGridParams{ReferencePrice: 100.0, Multiplier: 2.0, Normalized: true}
	p := ResolvePolicy(params)

	// 20% below reference, doubled: 40%
	assert.InDelta(t, 0.40, p.GridSize(0, 80.0), 1e-9)

	// 2% off reference, doubled: 4%, floored at the 10% base
	assert.InDelta(t, 0.10, p.GridSize(0, 102.0), 1e-9)

	// Non-normalized divides by the current price instead
	params.DynamicGrid.Normalized = false
	p = ResolvePolicy(params)
	assert.InDelta(t, 0.50, p.GridSize(0, 80.0), 1e-9)
}

// TestPolicy_GridSize_DynamicInvalidReference tests the base fallback for
// unusable reference prices
func TestPolicy_GridSize_DynamicInvalidReference(t *testing.T) {
	params := DefaultParams()
	params.DynamicGrid = &DynamicGridParams{ReferencePrice: 0, Multiplier: 2.0}
	p := ResolvePolicy(params)

	assert.InDelta(t, 0.10, p.GridSize(0, 80.0), 1e-9)
}
