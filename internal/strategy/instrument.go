package strategy

import (
	"sort"
	"time"

	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

// Lot is one open buy position, held until sold.
type Lot struct {
	Price     float64   `json:"price"`
	Shares    float64   `json:"shares"`
	EntryDate time.Time `json:"entry_date"`
}

// lastAction tracks the direction of the most recent executed trade, which
// gates the consecutive-uptrend sell requirement.
type lastAction int

const (
	actionNone lastAction = iota
	actionBuy
	actionSell
)

// Instrument owns one symbol's open lots, trailing-stop state and
// consecutive-trade counters. It decides buy/sell signals for a given
// day's price and emits intents; it never sees the capital ledger.
type Instrument struct {
	symbol     string
	lotSizeUSD float64

	// baseParams is the effective (beta-adjusted) parameter set before any
	// dynamic-profile override, retained so overrides stay reversible.
	baseParams      StrategyParams
	adjusted        AdjustedParams
	policy          *Policy
	profile         ProfileState
	profileResolved bool

	lots        []Lot
	averageCost float64
	realizedPnL float64

	lastBuyPrice     *float64
	lastSellPrice    *float64
	consecutiveBuys  int
	consecutiveSells int
	last             lastAction

	buyTrail  trailingStop
	sellTrail trailingStop

	buyCount  int
	sellCount int
	trades    []types.ClosedTrade
}

// NewInstrument creates an empty instrument state from an already
// beta-adjusted parameter set.
func NewInstrument(symbol string, adjusted AdjustedParams, lotSizeUSD float64) *Instrument {
	inst := &Instrument{
		symbol:     symbol,
		lotSizeUSD: lotSizeUSD,
		baseParams: adjusted.Params.Clone(),
		adjusted:   adjusted,
		policy:     ResolvePolicy(adjusted.Params),
		profile:    ProfileAggressive,
		buyTrail:   trailingStop{direction: trailBuy},
		sellTrail:  trailingStop{direction: trailSell},
	}
	return inst
}

// Symbol returns the instrument's ticker.
func (inst *Instrument) Symbol() string { return inst.symbol }

// Lots returns a copy of the open lots, oldest first.
func (inst *Instrument) Lots() []Lot {
	out := make([]Lot, len(inst.lots))
	copy(out, inst.lots)
	return out
}

// AverageCost returns the capital-weighted mean price of the open lots.
// Zero when no lots are open.
func (inst *Instrument) AverageCost() float64 { return inst.averageCost }

// RealizedPnL returns the cumulative realized profit and loss.
func (inst *Instrument) RealizedPnL() float64 { return inst.realizedPnL }

// Adjusted returns the beta-adjusted parameter set and its annotation.
func (inst *Instrument) Adjusted() AdjustedParams { return inst.adjusted }

// TradeCounts returns the number of executed buys and sells.
func (inst *Instrument) TradeCounts() (buys, sells int) {
	return inst.buyCount, inst.sellCount
}

// ClosedTrades returns the realized trade log, oldest first.
func (inst *Instrument) ClosedTrades() []types.ClosedTrade {
	out := make([]types.ClosedTrade, len(inst.trades))
	copy(out, inst.trades)
	return out
}

// MarketValue returns the mark value of the open lots at price.
func (inst *Instrument) MarketValue(price float64) float64 {
	total := 0.0
	for _, lot := range inst.lots {
		total += lot.Shares * price
	}
	return total
}

// CostBasis returns the original capital deployed into the open lots.
func (inst *Instrument) CostBasis() float64 {
	total := 0.0
	for _, lot := range inst.lots {
		total += lot.Shares * lot.Price
	}
	return total
}

// UnrealizedPnL returns the open-lot profit and loss at price.
func (inst *Instrument) UnrealizedPnL(price float64) float64 {
	return inst.MarketValue(price) - inst.CostBasis()
}

// ---------------------------------------------------------------------------
// Buy-signal evaluation
// ---------------------------------------------------------------------------

// EvaluateBuy decides whether today's price warrants a BUY intent. The
// decision never touches capital; the orchestrator may still reject the
// intent at the ledger, in which case instrument state is left unchanged
// and the same signal may recur on a later day.
func (inst *Instrument) EvaluateBuy(date time.Time, price float64) *OrderIntent {
	if price <= 0 {
		return nil
	}
	if inst.baseParams.MaxLots > 0 && len(inst.lots) >= inst.baseParams.MaxLots {
		return nil
	}

	// An empty position bootstraps unconditionally, regardless of grid
	// settings. This also guards every average-cost division below.
	if len(inst.lots) == 0 {
		return inst.buyIntent(date, price)
	}

	if inst.policy.params.TrailingBuy != nil {
		return inst.evaluateTrailingBuy(date, price)
	}

	grid := inst.policy.GridSize(inst.consecutiveBuys, price)
	if inst.buySignal(price, grid) {
		return inst.buyIntent(date, price)
	}
	return nil
}

// buySignal combines the directional gate (vs. the last buy price) with
// the spacing requirement (vs. average cost or every open lot).
func (inst *Instrument) buySignal(price, grid float64) bool {
	return inst.buyGateOpen(price, grid) && inst.spacingSatisfied(price, grid)
}

// buyGateOpen applies directional control. Traditional mode admits only
// downward moves satisfying the grid; adaptive mode also admits upward
// moves past the tighter rebound threshold. A cleared last-buy reference
// (after a sell) leaves the gate open and defers to the spacing check.
func (inst *Instrument) buyGateOpen(price, grid float64) bool {
	if inst.lastBuyPrice == nil {
		return true
	}
	last := *inst.lastBuyPrice
	if price <= last*(1-grid) {
		return true
	}
	if inst.policy.buyGate == GateAdaptive && price >= last*(1+inst.policy.params.ReboundThreshold) {
		return true
	}
	return false
}

// spacingSatisfied checks the grid requirement. Average-cost basis needs
// the full grid below average but only half above it (averaging up is
// cheaper because the position is already profitable). Otherwise the
// spacing must hold against every open lot.
func (inst *Instrument) spacingSatisfied(price, grid float64) bool {
	if inst.policy.spacingBasis == BasisAverageCost {
		if price <= inst.averageCost*(1-grid) {
			return true
		}
		return price >= inst.averageCost*(1+grid/2)
	}
	for _, lot := range inst.lots {
		if price > lot.Price*(1-grid) && price < lot.Price*(1+grid) {
			return false
		}
	}
	return true
}

// evaluateTrailingBuy runs the trailing-stop buy machine. The stop arms
// once price has dropped past the activation threshold (adaptive mode
// skips activation and uses the tighter rebound), rides the low, and
// emits the intent on the configured rebound from it.
func (inst *Instrument) evaluateTrailingBuy(date time.Time, price float64) *OrderIntent {
	tp := inst.policy.params.TrailingBuy
	retrace := tp.Retrace
	adaptive := inst.policy.buyGate == GateAdaptive
	if adaptive {
		retrace = inst.policy.params.ReboundThreshold
	}

	if !inst.buyTrail.Active() {
		if adaptive || inst.buyActivationReached(price, tp.Activation) {
			inst.buyTrail.Activate(price)
		}
		return nil
	}
	if inst.buyTrail.Observe(price, retrace) {
		return inst.buyIntent(date, price)
	}
	return nil
}

// buyActivationReached checks the trailing-buy activation move relative to
// the last buy price, falling back to average cost after a sell.
func (inst *Instrument) buyActivationReached(price, activation float64) bool {
	ref := inst.averageCost
	if inst.lastBuyPrice != nil {
		ref = *inst.lastBuyPrice
	}
	return price <= ref*(1-activation)
}

func (inst *Instrument) buyIntent(date time.Time, price float64) *OrderIntent {
	return &OrderIntent{
		Symbol:   inst.symbol,
		Side:     SideBuy,
		Date:     date,
		Price:    price,
		Shares:   inst.lotSizeUSD / price,
		Notional: inst.lotSizeUSD,
	}
}

// ---------------------------------------------------------------------------
// Sell-signal evaluation
// ---------------------------------------------------------------------------

// EvaluateSell decides whether today's price warrants a SELL intent
// closing some of the open lots.
func (inst *Instrument) EvaluateSell(date time.Time, price float64) *OrderIntent {
	if price <= 0 || len(inst.lots) == 0 {
		return nil
	}

	base := inst.policy.params.ProfitTarget

	// Portfolio-level profitability guarantee: the position as a whole
	// must clear the base requirement over average cost. The incremented
	// requirement below never applies here.
	if price <= inst.averageCost*(1+base) {
		return nil
	}

	req := base
	if inst.uptrendSell(price) {
		req = base + inst.policy.GridSize(inst.consecutiveBuys, price)
		// Sustained uptrends must also clear the incremented requirement
		// over the previous sell before realizing more profit.
		if price <= *inst.lastSellPrice*(1+req) {
			return nil
		}
	}

	if inst.policy.params.TrailingSell != nil {
		if !inst.trailingSellTriggered(price, base) {
			return nil
		}
	}

	indexes := inst.selectLots(price, req)
	if len(indexes) == 0 {
		return nil
	}
	return inst.sellIntent(date, price, indexes)
}

// uptrendSell reports whether this would be a consecutive-uptrend sell:
// the prior action was a sell and price exceeds the last sell price.
func (inst *Instrument) uptrendSell(price float64) bool {
	return inst.last == actionSell && inst.lastSellPrice != nil && price > *inst.lastSellPrice
}

// trailingSellTriggered runs the trailing-stop sell machine: arm past the
// activation move beyond the profit gate, ride the high, fire on the
// configured pullback from it. Adaptive (momentum) mode skips activation
// and uses the tighter rebound threshold.
func (inst *Instrument) trailingSellTriggered(price, base float64) bool {
	tp := inst.policy.params.TrailingSell
	retrace := tp.Retrace
	adaptive := inst.policy.sellGate == GateAdaptive
	if adaptive {
		retrace = inst.policy.params.ReboundThreshold
	}

	if !inst.sellTrail.Active() {
		if adaptive || price >= inst.averageCost*(1+base+tp.Activation) {
			inst.sellTrail.Activate(price)
		}
		return false
	}
	return inst.sellTrail.Observe(price, retrace)
}

// selectLots picks the lots a sell at price would close. Lot-level mode
// requires each lot to clear the (possibly incremented) requirement;
// average-based mode treats the whole position as eligible since the gate
// already passed. The highest-priced lots are liquidated first, price
// ties broken oldest-first, capped at MaxLotsPerSell.
func (inst *Instrument) selectLots(price, req float64) []int {
	eligible := make([]int, 0, len(inst.lots))
	for i, lot := range inst.lots {
		if inst.policy.sellScope == SellAverageBased || price >= lot.Price*(1+req) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	// Stable sort keeps insertion (oldest-first) order for equal prices.
	sort.SliceStable(eligible, func(a, b int) bool {
		return inst.lots[eligible[a]].Price > inst.lots[eligible[b]].Price
	})

	max := inst.baseParams.MaxLotsPerSell
	if max > 0 && len(eligible) > max {
		eligible = eligible[:max]
	}
	return eligible
}

func (inst *Instrument) sellIntent(date time.Time, price float64, indexes []int) *OrderIntent {
	shares := 0.0
	for _, i := range indexes {
		shares += inst.lots[i].Shares
	}
	return &OrderIntent{
		Symbol:     inst.symbol,
		Side:       SideSell,
		Date:       date,
		Price:      price,
		Shares:     shares,
		Notional:   shares * price,
		LotIndexes: indexes,
	}
}

// ---------------------------------------------------------------------------
// State updates on execution
// ---------------------------------------------------------------------------

// ApplyBuy records an executed buy: append the lot, recompute average
// cost, disarm the trailing buy, advance the buy counters and clear the
// sell side. Evaluation never mutates state, so a rejected intent leaves
// the instrument (trailing extremum included) exactly as it was.
func (inst *Instrument) ApplyBuy(intent *OrderIntent) {
	inst.lots = append(inst.lots, Lot{
		Price:     intent.Price,
		Shares:    intent.Shares,
		EntryDate: intent.Date,
	})
	inst.recomputeAverageCost()
	inst.buyTrail.Reset()

	price := intent.Price
	inst.lastBuyPrice = &price
	inst.consecutiveBuys++
	inst.lastSellPrice = nil
	inst.consecutiveSells = 0
	inst.last = actionBuy
	inst.buyCount++
}

// ApplySell records an executed sell: realize P&L on the chosen lots,
// remove them, recompute average cost, disarm the trailing sell, advance
// the sell counters and clear the buy side. It returns the removed cost
// basis and the realized P&L so the ledger can be credited.
func (inst *Instrument) ApplySell(intent *OrderIntent) (costBasis, pnl float64) {
	for _, i := range intent.LotIndexes {
		lot := inst.lots[i]
		lotPnL := lot.Shares * (intent.Price - lot.Price)
		costBasis += lot.Shares * lot.Price
		pnl += lotPnL
		inst.trades = append(inst.trades, types.ClosedTrade{
			Symbol:     inst.symbol,
			EntryDate:  lot.EntryDate,
			ExitDate:   intent.Date,
			EntryPrice: lot.Price,
			ExitPrice:  intent.Price,
			Shares:     lot.Shares,
			PnL:        lotPnL,
		})
	}
	inst.removeLots(intent.LotIndexes)
	inst.recomputeAverageCost()
	inst.sellTrail.Reset()
	inst.realizedPnL += pnl

	prior := inst.lastSellPrice
	price := intent.Price
	inst.lastSellPrice = &price
	if prior != nil && intent.Price > *prior {
		inst.consecutiveSells++
	} else {
		inst.consecutiveSells = 1
	}
	inst.lastBuyPrice = nil
	inst.consecutiveBuys = 0
	inst.last = actionSell
	inst.sellCount++
	return costBasis, pnl
}

// removeLots deletes the given open-lot positions, preserving the
// insertion order of the survivors.
func (inst *Instrument) removeLots(indexes []int) {
	drop := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		drop[i] = true
	}
	kept := inst.lots[:0]
	for i, lot := range inst.lots {
		if !drop[i] {
			kept = append(kept, lot)
		}
	}
	inst.lots = kept
}

// recomputeAverageCost refreshes the capital-weighted mean entry price.
// Undefined (zero) when no lots are open.
func (inst *Instrument) recomputeAverageCost() {
	totalShares := 0.0
	totalCost := 0.0
	for _, lot := range inst.lots {
		totalShares += lot.Shares
		totalCost += lot.Shares * lot.Price
	}
	if totalShares == 0 {
		inst.averageCost = 0
		return
	}
	inst.averageCost = totalCost / totalShares
}
