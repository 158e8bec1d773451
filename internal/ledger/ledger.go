package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/haiminhng/stock-dca-backtest/internal/errors"
)

// conservationTolerance bounds the floating-point drift allowed before
// the capital-conservation invariant counts as violated.
const conservationTolerance = 1e-6

// RejectReason distinguishes why a buy could not be funded.
type RejectReason string

const (
	// ReasonMarginLimit means the buy would push deployed capital past
	// the margin-extended capital limit.
	ReasonMarginLimit RejectReason = "would exceed margin/capital limit"
	// ReasonInsufficientCash means the cash reserve cannot cover the
	// notional.
	ReasonInsufficientCash RejectReason = "insufficient cash reserve"
)

// Snapshot is a point-in-time copy of the ledger, attached to rejection
// records and invariant diagnostics.
type Snapshot struct {
	CashReserve      float64 `json:"cash_reserve"`
	DeployedCapital  float64 `json:"deployed_capital"`
	EffectiveCapital float64 `json:"effective_capital"`
	MarginPercent    float64 `json:"margin_percent"`
	Utilization      float64 `json:"utilization"`
}

// RejectedOrder is the persisted record of a buy the ledger refused.
// Never mutated after creation.
type RejectedOrder struct {
	Date      time.Time    `json:"date"`
	Symbol    string       `json:"symbol"`
	Reason    RejectReason `json:"reason"`
	Shortfall float64      `json:"shortfall"`
	Ledger    Snapshot     `json:"ledger"`
}

// Ledger owns the single shared cash/margin pool of a portfolio run. It
// is the only cross-cutting mutable state in the simulation; instrument
// evaluators never see it, they only produce intents.
type Ledger struct {
	totalCapital     float64
	marginPercent    float64
	effectiveCapital float64

	cashReserve     float64
	deployedCapital float64
	realizedPnL     float64

	rejections []RejectedOrder
}

// New creates a ledger for one run. marginPercent must already be
// validated to 0..100; effective capital is computed once.
func New(totalCapital, marginPercent float64) *Ledger {
	return &Ledger{
		totalCapital:     totalCapital,
		marginPercent:    marginPercent,
		effectiveCapital: totalCapital * (1 + marginPercent/100),
		cashReserve:      totalCapital,
	}
}

// CanFund reports whether a buy of the given notional is fundable. The
// margin-limit check runs first so the rejection reason distinguishes a
// capital-limit breach from a plain cash shortage even though both block
// the order.
func (l *Ledger) CanFund(notional float64) (bool, RejectReason, float64) {
	if l.deployedCapital+notional > l.effectiveCapital {
		return false, ReasonMarginLimit, l.deployedCapital + notional - l.effectiveCapital
	}
	if notional > l.cashReserve {
		return false, ReasonInsufficientCash, notional - l.cashReserve
	}
	return true, "", 0
}

// ExecuteBuy funds a buy or records its rejection. Rejections are
// ordinary outcomes, not errors: the returned record is also appended to
// the ledger's rejection log and the intent is simply discarded.
func (l *Ledger) ExecuteBuy(date time.Time, symbol string, notional float64) *RejectedOrder {
	ok, reason, shortfall := l.CanFund(notional)
	if !ok {
		rejected := RejectedOrder{
			Date:      date,
			Symbol:    symbol,
			Reason:    reason,
			Shortfall: shortfall,
			Ledger:    l.Snapshot(),
		}
		l.rejections = append(l.rejections, rejected)
		return &rejected
	}
	l.cashReserve -= notional
	l.deployedCapital += notional
	return nil
}

// ExecuteSell credits the proceeds of a sell. Sells carry no capital
// constraint and always succeed: the lot's original cost basis leaves
// deployed capital and the realized gain or loss flows only through the
// cash reserve.
func (l *Ledger) ExecuteSell(costBasis, realizedPnL float64) {
	l.deployedCapital -= costBasis
	l.cashReserve += costBasis + realizedPnL
	l.realizedPnL += realizedPnL
}

// CheckInvariant verifies capital conservation:
//
//	deployed + cash == totalCapital + cumulative realized P&L
//
// within floating-point tolerance. A violation is an internal-consistency
// defect, not a user-facing condition, and aborts the run.
func (l *Ledger) CheckInvariant() error {
	want := l.totalCapital + l.realizedPnL
	got := l.deployedCapital + l.cashReserve
	if math.Abs(got-want) <= conservationTolerance {
		return nil
	}
	return errors.NewFatalError("ledger", "check_invariant",
		fmt.Sprintf("capital conservation violated: deployed %.6f + cash %.6f != total %.6f + realized %.6f",
			l.deployedCapital, l.cashReserve, l.totalCapital, l.realizedPnL)).
		WithContext("snapshot", l.Snapshot())
}

// Snapshot returns a point-in-time copy of the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	utilization := 0.0
	if l.effectiveCapital > 0 {
		utilization = l.deployedCapital / l.effectiveCapital
	}
	return Snapshot{
		CashReserve:      l.cashReserve,
		DeployedCapital:  l.deployedCapital,
		EffectiveCapital: l.effectiveCapital,
		MarginPercent:    l.marginPercent,
		Utilization:      utilization,
	}
}

// CashReserve returns the uncommitted cash.
func (l *Ledger) CashReserve() float64 { return l.cashReserve }

// DeployedCapital returns the cost basis currently deployed.
func (l *Ledger) DeployedCapital() float64 { return l.deployedCapital }

// EffectiveCapital returns the margin-extended capital limit.
func (l *Ledger) EffectiveCapital() float64 { return l.effectiveCapital }

// RealizedPnL returns the cumulative realized profit and loss credited
// through sells.
func (l *Ledger) RealizedPnL() float64 { return l.realizedPnL }

// Rejections returns the append-only rejection log.
func (l *Ledger) Rejections() []RejectedOrder {
	out := make([]RejectedOrder, len(l.rejections))
	copy(out, l.rejections)
	return out
}
