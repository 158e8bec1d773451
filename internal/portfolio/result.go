package portfolio

import (
	"github.com/haiminhng/stock-dca-backtest/internal/ledger"
	"github.com/haiminhng/stock-dca-backtest/internal/metrics"
	"github.com/haiminhng/stock-dca-backtest/internal/strategy"
	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

// InstrumentResult is the final per-symbol state of a run.
type InstrumentResult struct {
	Symbol          string         `json:"symbol"`
	Lots            []strategy.Lot `json:"lots"`
	AverageCost     float64        `json:"average_cost"`
	FinalPrice      float64        `json:"final_price"`
	MarketValue     float64        `json:"market_value"`
	CapitalDeployed float64        `json:"capital_deployed"`
	RealizedPnL     float64        `json:"realized_pnl"`
	UnrealizedPnL   float64        `json:"unrealized_pnl"`
	Buys            int            `json:"buys"`
	Sells           int            `json:"sells"`
	SkippedDays     int            `json:"skipped_days"`
	Beta            float64        `json:"beta"`
	BetaFallback    bool           `json:"beta_fallback"`
	Profile         string         `json:"profile"`
}

// Result is the complete output of one portfolio run: the equity curve,
// per-instrument final states, the realized-trade and rejection logs, and
// the metrics bundle. No wire format is prescribed; callers serialize as
// needed.
type Result struct {
	Snapshots   []types.DailySnapshot  `json:"snapshots"`
	Instruments []InstrumentResult     `json:"instruments"`
	Trades      []types.ClosedTrade    `json:"trades"`
	Rejections  []ledger.RejectedOrder `json:"rejections"`
	Ledger      ledger.Snapshot        `json:"ledger"`
	Metrics     metrics.Summary        `json:"metrics"`
}

// FinalValue returns the closing portfolio value, or zero for an empty
// run.
func (r *Result) FinalValue() float64 {
	if len(r.Snapshots) == 0 {
		return 0
	}
	return r.Snapshots[len(r.Snapshots)-1].TotalPortfolioValue
}
