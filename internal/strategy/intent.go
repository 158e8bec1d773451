package strategy

import "time"

// OrderSide is the direction of an order intent.
type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderIntent is a transient order proposal produced by an instrument's
// state machine and consumed the same simulated day. Intents never touch
// capital themselves; the orchestrator submits them to the ledger.
type OrderIntent struct {
	Symbol   string
	Side     OrderSide
	Date     time.Time
	Price    float64
	Shares   float64
	Notional float64
	// LotIndexes are the open-lot positions a sell would close, already
	// ordered for removal. Nil for buys.
	LotIndexes []int
}
