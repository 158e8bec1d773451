package types

import "time"

// DailySnapshot captures the portfolio at the end of one simulated day.
// Snapshots are append-only; the sequence forms the equity curve consumed
// by the metrics engine.
type DailySnapshot struct {
	Date                 time.Time          `json:"date"`
	CashReserve          float64            `json:"cash_reserve"`
	DeployedCapital      float64            `json:"deployed_capital"`
	MarketValueBySymbol  map[string]float64 `json:"market_value_by_symbol"`
	TotalPortfolioValue  float64            `json:"total_portfolio_value"`
}

// ClosedTrade is one fully realized lot sale. Entry fields come from the
// lot that was closed, exit fields from the sell execution.
type ClosedTrade struct {
	Symbol     string    `json:"symbol"`
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Shares     float64   `json:"shares"`
	PnL        float64   `json:"pnl"`
}
