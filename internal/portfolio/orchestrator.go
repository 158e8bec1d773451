package portfolio

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/haiminhng/stock-dca-backtest/internal/errors"
	"github.com/haiminhng/stock-dca-backtest/internal/ledger"
	"github.com/haiminhng/stock-dca-backtest/internal/metrics"
	"github.com/haiminhng/stock-dca-backtest/internal/strategy"
	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

// RunSettings holds the capital parameters shared by every instrument in
// one portfolio run.
type RunSettings struct {
	Start         time.Time
	End           time.Time
	TotalCapital  float64
	MarginPercent float64
	LotSizeUSD    float64
}

// Orchestrator drives the day-by-day replay: valuations, sell intents
// first, buy intents second, one snapshot per day. Instruments are always
// visited in lexicographic symbol order; together with the single-writer
// ledger this makes every run byte-for-byte reproducible, which is part
// of the contract rather than an implementation detail.
type Orchestrator struct {
	settings    RunSettings
	symbols     []string
	instruments map[string]*strategy.Instrument
	prices      map[string]map[time.Time]float64

	ledger    *ledger.Ledger
	lastPrice map[string]float64
	skipped   map[string]int
	snapshots []types.DailySnapshot
}

// NewOrchestrator creates an orchestrator with an empty instrument set.
func NewOrchestrator(settings RunSettings) *Orchestrator {
	return &Orchestrator{
		settings:    settings,
		instruments: make(map[string]*strategy.Instrument),
		prices:      make(map[string]map[time.Time]float64),
		ledger:      ledger.New(settings.TotalCapital, settings.MarginPercent),
		lastPrice:   make(map[string]float64),
		skipped:     make(map[string]int),
	}
}

// AddInstrument registers an instrument and its price series. Dates
// outside the run range are dropped here; gaps inside it are skipped
// per-day during the replay.
func (o *Orchestrator) AddInstrument(inst *strategy.Instrument, series types.PriceSeries) error {
	symbol := inst.Symbol()
	if _, exists := o.instruments[symbol]; exists {
		return errors.NewValidationError("orchestrator", "add_instrument",
			"duplicate symbol "+symbol)
	}
	trimmed := series.Between(o.settings.Start, o.settings.End)
	if len(trimmed) == 0 {
		return errors.NewValidationError("orchestrator", "add_instrument",
			"no prices for "+symbol+" inside the run range")
	}

	o.instruments[symbol] = inst
	o.prices[symbol] = trimmed.Index()
	o.symbols = append(o.symbols, symbol)
	sort.Strings(o.symbols)
	return nil
}

// Run replays every trading day and returns the aggregated result. The
// only error paths are an empty instrument set and a capital-conservation
// violation (a fatal internal defect); order rejections and data gaps are
// ordinary outcomes carried in the result. The caller may abort between
// days through ctx.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if len(o.symbols) == 0 {
		return nil, errors.NewValidationError("orchestrator", "run", "no instruments registered")
	}

	for _, date := range o.tradingDates() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := o.processDay(date); err != nil {
			return nil, err
		}
	}
	return o.buildResult(), nil
}

// tradingDates returns the sorted union of every instrument's dates
// within the run range.
func (o *Orchestrator) tradingDates() []time.Time {
	seen := make(map[time.Time]bool)
	for _, idx := range o.prices {
		for date := range idx {
			seen[date] = true
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// processDay runs the daily algorithm for one date: update valuations and
// profiles, process sells first (freeing capital for same-day buys), then
// buys, then append the snapshot.
func (o *Orchestrator) processDay(date time.Time) error {
	today := make(map[string]float64, len(o.symbols))
	for _, symbol := range o.symbols {
		price, ok := o.prices[symbol][date]
		if !ok {
			o.skipped[symbol]++
			continue
		}
		today[symbol] = price
		o.lastPrice[symbol] = price
		o.instruments[symbol].EvaluateProfile()
	}

	// Sells always succeed at the ledger.
	for i, intent := range o.collectIntents(date, today, strategy.SideSell) {
		if intent == nil {
			continue
		}
		inst := o.instruments[o.symbols[i]]
		costBasis, pnl := inst.ApplySell(intent)
		o.ledger.ExecuteSell(costBasis, pnl)
		if err := o.ledger.CheckInvariant(); err != nil {
			return err
		}
	}

	// Buys are re-evaluated after sells so freed capital is visible, and
	// executed in symbol order against the shared pool. A rejection
	// leaves the instrument untouched; it may re-signal on a later day.
	for i, intent := range o.collectIntents(date, today, strategy.SideBuy) {
		if intent == nil {
			continue
		}
		if rejected := o.ledger.ExecuteBuy(date, intent.Symbol, intent.Notional); rejected != nil {
			continue
		}
		o.instruments[o.symbols[i]].ApplyBuy(intent)
		if err := o.ledger.CheckInvariant(); err != nil {
			return err
		}
	}

	o.snapshots = append(o.snapshots, o.snapshot(date))
	return nil
}

// collectIntents evaluates one side for every instrument trading today.
// Evaluation is embarrassingly parallel (instruments share no state), so
// it fans out per instrument; results land in a slice indexed by symbol
// position, keeping execution order deterministic.
func (o *Orchestrator) collectIntents(date time.Time, today map[string]float64, side strategy.OrderSide) []*strategy.OrderIntent {
	intents := make([]*strategy.OrderIntent, len(o.symbols))
	var wg sync.WaitGroup
	for i, symbol := range o.symbols {
		price, ok := today[symbol]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, inst *strategy.Instrument, price float64) {
			defer wg.Done()
			if side == strategy.SideSell {
				intents[i] = inst.EvaluateSell(date, price)
			} else {
				intents[i] = inst.EvaluateBuy(date, price)
			}
		}(i, o.instruments[symbol], price)
	}
	wg.Wait()
	return intents
}

// snapshot values every instrument at its most recent close (instruments
// without a price today are marked at their last known one).
func (o *Orchestrator) snapshot(date time.Time) types.DailySnapshot {
	values := make(map[string]float64, len(o.symbols))
	total := o.ledger.CashReserve()
	for _, symbol := range o.symbols {
		mv := o.instruments[symbol].MarketValue(o.lastPrice[symbol])
		values[symbol] = mv
		total += mv
	}
	return types.DailySnapshot{
		Date:                date,
		CashReserve:         o.ledger.CashReserve(),
		DeployedCapital:     o.ledger.DeployedCapital(),
		MarketValueBySymbol: values,
		TotalPortfolioValue: total,
	}
}

// buildResult assembles the run output: equity curve, per-instrument
// final states, rejection log and the metrics bundle.
func (o *Orchestrator) buildResult() *Result {
	var allTrades []types.ClosedTrade
	instruments := make([]InstrumentResult, 0, len(o.symbols))
	for _, symbol := range o.symbols {
		inst := o.instruments[symbol]
		finalPrice := o.lastPrice[symbol]
		buys, sells := inst.TradeCounts()
		adjusted := inst.Adjusted()
		instruments = append(instruments, InstrumentResult{
			Symbol:          symbol,
			Lots:            inst.Lots(),
			AverageCost:     inst.AverageCost(),
			FinalPrice:      finalPrice,
			MarketValue:     inst.MarketValue(finalPrice),
			CapitalDeployed: inst.CostBasis(),
			RealizedPnL:     inst.RealizedPnL(),
			UnrealizedPnL:   inst.UnrealizedPnL(finalPrice),
			Buys:            buys,
			Sells:           sells,
			SkippedDays:     o.skipped[symbol],
			Beta:            adjusted.Beta,
			BetaFallback:    adjusted.Fallback,
			Profile:         inst.Profile().String(),
		})
		allTrades = append(allTrades, inst.ClosedTrades()...)
	}

	sort.SliceStable(allTrades, func(i, j int) bool {
		return allTrades[i].ExitDate.Before(allTrades[j].ExitDate)
	})

	return &Result{
		Snapshots:   o.snapshots,
		Instruments: instruments,
		Trades:      allTrades,
		Rejections:  o.ledger.Rejections(),
		Ledger:      o.ledger.Snapshot(),
		Metrics:     metrics.Compute(o.snapshots, allTrades),
	}
}
