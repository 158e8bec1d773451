package strategy

import "math"

// GridMode selects how the required buy spacing is computed.
type GridMode int

const (
	GridFixed GridMode = iota
	GridDynamic
	GridIncremental
)

// SpacingBasis selects what the spacing requirement is checked against.
type SpacingBasis int

const (
	BasisEveryLot SpacingBasis = iota
	BasisAverageCost
)

// GateMode selects the directional control for one trade direction.
type GateMode int

const (
	GateTraditional GateMode = iota
	GateAdaptive
)

// SellScope selects which lots a profitable day makes eligible.
type SellScope int

const (
	SellLotLevel SellScope = iota
	SellAverageBased
)

// Policy is the immutable resolution of all feature flags for one
// instrument, computed once at setup. The per-day decision functions are
// pure given (state, price), which keeps the hot loop free of flag checks
// and the state machine testable in isolation.
type Policy struct {
	gridMode     GridMode
	spacingBasis SpacingBasis
	buyGate      GateMode
	sellGate     GateMode
	sellScope    SellScope

	params StrategyParams
}

// ResolvePolicy folds the boolean feature flags of an (already
// beta-adjusted) parameter set into a tagged-variant policy.
func ResolvePolicy(params StrategyParams) *Policy {
	p := &Policy{params: params.Clone()}

	switch {
	case params.EnableIncrementalBuyGrid:
		p.gridMode = GridIncremental
	case params.DynamicGrid != nil:
		p.gridMode = GridDynamic
	default:
		p.gridMode = GridFixed
	}

	if params.EnableAverageBasedGrid {
		p.spacingBasis = BasisAverageCost
	}
	if params.EnableAdaptiveBuy {
		p.buyGate = GateAdaptive
	}
	if params.EnableAdaptiveSell {
		p.sellGate = GateAdaptive
	}
	if params.EnableAverageBasedSell {
		p.sellScope = SellAverageBased
	}
	return p
}

// Params returns the effective parameter set the policy was resolved from.
func (p *Policy) Params() StrategyParams {
	return p.params
}

// GridSize returns the spacing required for the next buy attempt.
//
// Fixed mode returns the base spacing. Dynamic mode scales the deviation
// of the current price from the reference price, floored at the base
// spacing. Incremental mode widens the base by multiplier^consecutiveBuys
// so the grid grows after every consecutive same-direction buy.
func (p *Policy) GridSize(consecutiveBuys int, price float64) float64 {
	base := p.params.GridSpacing

	switch p.gridMode {
	case GridDynamic:
		dg := p.params.DynamicGrid
		if dg.ReferencePrice <= 0 || price <= 0 {
			return base
		}
		var deviation float64
		if dg.Normalized {
			deviation = (price - dg.ReferencePrice) / dg.ReferencePrice
		} else {
			deviation = (price - dg.ReferencePrice) / price
		}
		size := math.Abs(deviation) * dg.Multiplier
		return math.Max(size, base)

	case GridIncremental:
		if consecutiveBuys <= 0 {
			return base
		}
		return base * math.Pow(p.params.IncrementalGridMultiplier, float64(consecutiveBuys))

	default:
		return base
	}
}
