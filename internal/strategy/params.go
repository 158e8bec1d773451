package strategy

// Default parameter values shared by config loading and tests.
const (
	DefaultGridSpacing       = 0.10 // 10% between consecutive buys
	DefaultProfitTarget      = 0.05 // 5% profit requirement
	DefaultReboundThreshold  = 0.03 // tighter threshold for adaptive (momentum) buys
	DefaultIncrementalFactor = 1.5  // grid growth per consecutive same-direction trade
	DefaultMaxLots           = 10
	DefaultMaxLotsPerSell    = 3
)

// DynamicGridParams configures spacing computed from the distance between
// the current price and a fixed reference price instead of a flat
// percentage.
type DynamicGridParams struct {
	ReferencePrice float64 `json:"reference_price"`
	Multiplier     float64 `json:"multiplier"`
	// Normalized divides the price deviation by the reference price;
	// otherwise it is divided by the current price.
	Normalized bool `json:"normalized"`
}

// TrailingParams configures one trailing-stop direction. Activation is the
// move (relative to the gating reference) that arms the stop; Retrace is
// the pullback from the favorable extremum that fires it.
type TrailingParams struct {
	Activation float64 `json:"activation"`
	Retrace    float64 `json:"retrace"`
}

// ProfileOverride is the parameter subset replaced when a dynamic profile
// is active. Zero values leave the base parameter in place.
type ProfileOverride struct {
	GridSpacing  float64 `json:"grid_spacing"`
	ProfitTarget float64 `json:"profit_target"`
}

// ProfileParams configures P/L-triggered switching between a conservative
// and an aggressive parameter set.
type ProfileParams struct {
	Conservative ProfileOverride `json:"conservative"`
	Aggressive   ProfileOverride `json:"aggressive"`
}

// StrategyParams is the full per-instrument parameter set. All percentage
// fields are decimals (0.10 = 10%).
type StrategyParams struct {
	GridSpacing  float64 `json:"grid_spacing"`
	ProfitTarget float64 `json:"profit_target"`

	// Grid sizing variants. DynamicGrid takes precedence over the fixed
	// spacing; the consecutive-incremental flag widens whichever base is
	// in effect after each same-direction buy.
	DynamicGrid               *DynamicGridParams `json:"dynamic_grid,omitempty"`
	EnableIncrementalBuyGrid  bool               `json:"enable_incremental_buy_grid"`
	IncrementalGridMultiplier float64            `json:"incremental_grid_multiplier"`

	// Directional control. Traditional mode only buys on downward moves
	// from the last buy; the adaptive flags additionally admit moves in
	// the momentum direction using ReboundThreshold.
	EnableAdaptiveBuy  bool    `json:"enable_adaptive_buy"`
	EnableAdaptiveSell bool    `json:"enable_adaptive_sell"`
	ReboundThreshold   float64 `json:"rebound_threshold"`

	// Average-based variants check spacing / profitability against the
	// capital-weighted average cost instead of individual lots.
	EnableAverageBasedGrid bool `json:"enable_average_based_grid"`
	EnableAverageBasedSell bool `json:"enable_average_based_sell"`

	TrailingBuy  *TrailingParams `json:"trailing_buy,omitempty"`
	TrailingSell *TrailingParams `json:"trailing_sell,omitempty"`

	MaxLots        int `json:"max_lots"`
	MaxLotsPerSell int `json:"max_lots_per_sell"`

	Profile *ProfileParams `json:"profile,omitempty"`
}

// DefaultParams returns a traditional-mode parameter set.
func DefaultParams() StrategyParams {
	return StrategyParams{
		GridSpacing:               DefaultGridSpacing,
		ProfitTarget:              DefaultProfitTarget,
		IncrementalGridMultiplier: DefaultIncrementalFactor,
		ReboundThreshold:          DefaultReboundThreshold,
		MaxLots:                   DefaultMaxLots,
		MaxLotsPerSell:            DefaultMaxLotsPerSell,
	}
}

// Clone returns a deep copy so profile overrides and beta scaling never
// mutate a shared parameter set.
func (p StrategyParams) Clone() StrategyParams {
	out := p
	if p.DynamicGrid != nil {
		dg := *p.DynamicGrid
		out.DynamicGrid = &dg
	}
	if p.TrailingBuy != nil {
		tb := *p.TrailingBuy
		out.TrailingBuy = &tb
	}
	if p.TrailingSell != nil {
		ts := *p.TrailingSell
		out.TrailingSell = &ts
	}
	if p.Profile != nil {
		pr := *p.Profile
		out.Profile = &pr
	}
	return out
}
