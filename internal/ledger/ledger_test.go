package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

// TestNew tests the initial ledger state
func TestNew(t *testing.T) {
	l := New(10000.0, 25.0)

	assert.InDelta(t, 10000.0, l.CashReserve(), 1e-9)
	assert.InDelta(t, 0.0, l.DeployedCapital(), 1e-9)
	assert.InDelta(t, 12500.0, l.EffectiveCapital(), 1e-9)
	assert.Empty(t, l.Rejections())
	assert.NoError(t, l.CheckInvariant())
}

// TestLedger_ExecuteBuy_MovesCashToDeployed tests the funded path
func TestLedger_ExecuteBuy_MovesCashToDeployed(t *testing.T) {
	l := New(10000.0, 0)

	rejected := l.ExecuteBuy(testDate, "AAPL", 1000.0)

	assert.Nil(t, rejected)
	assert.InDelta(t, 9000.0, l.CashReserve(), 1e-9)
	assert.InDelta(t, 1000.0, l.DeployedCapital(), 1e-9)
	assert.NoError(t, l.CheckInvariant())
}

// TestLedger_ExecuteBuy_MarginRejection tests that a capital-limit breach
// is reported with the margin reason and the exact shortfall
func TestLedger_ExecuteBuy_MarginRejection(t *testing.T) {
	l := New(100.0, 0)

	rejected := l.ExecuteBuy(testDate, "AAPL", 150.0)

	assert.NotNil(t, rejected)
	assert.Equal(t, ReasonMarginLimit, rejected.Reason)
	assert.InDelta(t, 50.0, rejected.Shortfall, 1e-9)
	assert.Equal(t, "AAPL", rejected.Symbol)
	assert.Equal(t, testDate, rejected.Date)

	// State is untouched by a rejection
	assert.InDelta(t, 100.0, l.CashReserve(), 1e-9)
	assert.InDelta(t, 0.0, l.DeployedCapital(), 1e-9)
	assert.Len(t, l.Rejections(), 1)
	assert.NoError(t, l.CheckInvariant())
}

// TestLedger_ExecuteBuy_CashRejection tests that a plain cash shortage is
// distinguished from a margin breach
func TestLedger_ExecuteBuy_CashRejection(t *testing.T) {
	// 50% margin: effective capital 15000, but only 10000 in cash
	l := New(10000.0, 50.0)
	assert.Nil(t, l.ExecuteBuy(testDate, "AAPL", 9500.0))

	rejected := l.ExecuteBuy(testDate, "MSFT", 1000.0)

	assert.NotNil(t, rejected)
	assert.Equal(t, ReasonInsufficientCash, rejected.Reason)
	assert.InDelta(t, 500.0, rejected.Shortfall, 1e-9)
}

// TestLedger_ExecuteBuy_MarginCheckedBeforeCash tests the check ordering
// when both limits would block the order
func TestLedger_ExecuteBuy_MarginCheckedBeforeCash(t *testing.T) {
	l := New(100.0, 10.0)

	rejected := l.ExecuteBuy(testDate, "AAPL", 500.0)

	assert.NotNil(t, rejected)
	assert.Equal(t, ReasonMarginLimit, rejected.Reason)
	assert.InDelta(t, 390.0, rejected.Shortfall, 1e-9)
}

// TestLedger_ExecuteSell_CreditsProceeds tests that sells move cost basis
// out of deployed capital and the P&L through cash only
func TestLedger_ExecuteSell_CreditsProceeds(t *testing.T) {
	l := New(10000.0, 0)
	assert.Nil(t, l.ExecuteBuy(testDate, "AAPL", 2000.0))

	l.ExecuteSell(2000.0, 350.0)

	assert.InDelta(t, 0.0, l.DeployedCapital(), 1e-9)
	assert.InDelta(t, 10350.0, l.CashReserve(), 1e-9)
	assert.InDelta(t, 350.0, l.RealizedPnL(), 1e-9)
	assert.NoError(t, l.CheckInvariant())
}

// TestLedger_ExecuteSell_LossConservesCapital tests conservation through a
// losing sale
func TestLedger_ExecuteSell_LossConservesCapital(t *testing.T) {
	l := New(10000.0, 0)
	assert.Nil(t, l.ExecuteBuy(testDate, "AAPL", 2000.0))

	l.ExecuteSell(2000.0, -400.0)

	assert.InDelta(t, 9600.0, l.CashReserve(), 1e-9)
	assert.InDelta(t, -400.0, l.RealizedPnL(), 1e-9)
	assert.NoError(t, l.CheckInvariant())
}

// TestLedger_MarginExtendsAfterGains tests that realized gains raise the
// cash reserve so the margin headroom becomes usable
func TestLedger_MarginExtendsAfterGains(t *testing.T) {
	l := New(1000.0, 20.0)
	assert.Nil(t, l.ExecuteBuy(testDate, "AAPL", 1000.0))
	l.ExecuteSell(1000.0, 150.0)

	// Cash is now 1150 and effective capital 1200: a 1150 buy funds
	assert.Nil(t, l.ExecuteBuy(testDate, "AAPL", 1150.0))

	// But deployment can never pass effective capital
	rejected := l.ExecuteBuy(testDate, "AAPL", 100.0)
	assert.NotNil(t, rejected)
	assert.Equal(t, ReasonMarginLimit, rejected.Reason)
	assert.NoError(t, l.CheckInvariant())
}

// TestLedger_RejectionLogAccumulates tests the append-only rejection log
// and that returned copies do not alias internal state
func TestLedger_RejectionLogAccumulates(t *testing.T) {
	l := New(100.0, 0)
	l.ExecuteBuy(testDate, "AAPL", 500.0)
	l.ExecuteBuy(testDate.AddDate(0, 0, 1), "MSFT", 300.0)

	log := l.Rejections()
	assert.Len(t, log, 2)
	assert.Equal(t, "AAPL", log[0].Symbol)
	assert.Equal(t, "MSFT", log[1].Symbol)

	log[0].Symbol = "mutated"
	assert.Equal(t, "AAPL", l.Rejections()[0].Symbol)
}

// TestLedger_Snapshot tests the point-in-time copy and utilization math
func TestLedger_Snapshot(t *testing.T) {
	l := New(10000.0, 25.0)
	assert.Nil(t, l.ExecuteBuy(testDate, "AAPL", 5000.0))

	snap := l.Snapshot()

	assert.InDelta(t, 5000.0, snap.CashReserve, 1e-9)
	assert.InDelta(t, 5000.0, snap.DeployedCapital, 1e-9)
	assert.InDelta(t, 12500.0, snap.EffectiveCapital, 1e-9)
	assert.InDelta(t, 25.0, snap.MarginPercent, 1e-9)
	assert.InDelta(t, 0.4, snap.Utilization, 1e-9)
}

// TestLedger_CheckInvariant_DetectsCorruption tests that a fatal error
// surfaces when the books stop balancing
func TestLedger_CheckInvariant_DetectsCorruption(t *testing.T) {
	l := New(10000.0, 0)
	l.cashReserve -= 5.0

	err := l.CheckInvariant()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "capital conservation violated")
}
