package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

// snapshotSeries builds a daily equity curve from raw values
func snapshotSeries(values ...float64) []types.DailySnapshot {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snaps := make([]types.DailySnapshot, len(values))
	for i, v := range values {
		snaps[i] = types.DailySnapshot{
			Date:                base.AddDate(0, 0, i),
			TotalPortfolioValue: v,
		}
	}
	return snaps
}

func tradeWithPnL(pnl float64) types.ClosedTrade {
	return types.ClosedTrade{Symbol: "TEST", PnL: pnl}
}

// TestTotalReturn tests the simple end-over-start return
func TestTotalReturn(t *testing.T) {
	assert.InDelta(t, 0.10, TotalReturn([]float64{10000, 10500, 11000}), 1e-9)
	assert.InDelta(t, -0.20, TotalReturn([]float64{10000, 8000}), 1e-9)
	assert.InDelta(t, 0.0, TotalReturn([]float64{10000}), 1e-9)
	assert.InDelta(t, 0.0, TotalReturn(nil), 1e-9)
}

// TestCAGR tests compound annualization over the calendar span
func TestCAGR(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	snaps := []types.DailySnapshot{
		{Date: base, TotalPortfolioValue: 10000},
		{Date: base.AddDate(2, 0, 0), TotalPortfolioValue: 14400},
	}

	// 44% over two years compounds to ~20% per year
	assert.InDelta(t, 0.20, CAGR(snaps), 0.001)
	assert.InDelta(t, 0.0, CAGR(snaps[:1]), 1e-9)
}

// TestMaxDrawdown tests the peak-to-trough decline and its duration
func TestMaxDrawdown(t *testing.T) {
	snaps := snapshotSeries(10000, 11000, 9900, 8800, 10500, 12000, 11400)

	dd, days := MaxDrawdown(snaps)

	// Peak 11000 on day 1, trough 8800 on day 3
	assert.InDelta(t, 0.2, dd, 1e-9)
	assert.Equal(t, 2, days)
}

// TestMaxDrawdown_MonotonicRise tests the no-drawdown case
func TestMaxDrawdown_MonotonicRise(t *testing.T) {
	dd, days := MaxDrawdown(snapshotSeries(100, 110, 120, 130))

	assert.InDelta(t, 0.0, dd, 1e-9)
	assert.Equal(t, 0, days)
}

// TestDailyReturns tests the day-over-day conversion
func TestDailyReturns(t *testing.T) {
	returns := DailyReturns([]float64{100, 110, 99})

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
	assert.Nil(t, DailyReturns([]float64{100}))
}

// TestVolatility tests sqrt-252 annualization of the daily deviation
func TestVolatility(t *testing.T) {
	// Constant returns have zero deviation
	assert.InDelta(t, 0.0, Volatility([]float64{0.01, 0.01, 0.01}), 1e-9)

	returns := []float64{0.02, -0.02}
	assert.InDelta(t, math.Sqrt(252)*0.02, Volatility(returns), 1e-9)
}

// TestSharpeRatio tests annualized mean over annualized volatility and the
// zero-volatility guard
func TestSharpeRatio(t *testing.T) {
	assert.InDelta(t, 0.0, SharpeRatio([]float64{0.01, 0.01}), 1e-9)

	returns := []float64{0.02, -0.01}
	expected := mean(returns) * 252 / Volatility(returns)
	assert.InDelta(t, expected, SharpeRatio(returns), 1e-9)
	assert.Greater(t, SharpeRatio(returns), 0.0)
}

// TestSortinoRatio tests that only downside returns feed the denominator
func TestSortinoRatio(t *testing.T) {
	// No losing days: undefined, reported as zero
	assert.InDelta(t, 0.0, SortinoRatio([]float64{0.01, 0.02}), 1e-9)

	returns := []float64{0.03, -0.01, 0.02, -0.02}
	downside := math.Sqrt(252) * math.Sqrt((0.01*0.01+0.02*0.02)/2)
	expected := mean(returns) * 252 / downside
	assert.InDelta(t, expected, SortinoRatio(returns), 1e-9)
}

// TestProfitFactor tests gross profit over gross loss including the
// no-loss infinity
func TestProfitFactor(t *testing.T) {
	trades := []types.ClosedTrade{tradeWithPnL(300), tradeWithPnL(-100), tradeWithPnL(-50)}
	assert.InDelta(t, 2.0, ProfitFactor(trades), 1e-9)

	assert.True(t, math.IsInf(ProfitFactor([]types.ClosedTrade{tradeWithPnL(100)}), 1))
	assert.InDelta(t, 0.0, ProfitFactor(nil), 1e-9)
}

// TestWinRate tests the winning-trade percentage
func TestWinRate(t *testing.T) {
	trades := []types.ClosedTrade{tradeWithPnL(10), tradeWithPnL(-5), tradeWithPnL(20), tradeWithPnL(5)}
	assert.InDelta(t, 75.0, WinRate(trades), 1e-9)
	assert.InDelta(t, 0.0, WinRate(nil), 1e-9)
}

// TestSuitabilityScore tests the clamped component bounds
func TestSuitabilityScore(t *testing.T) {
	// A flat, inactive run sits at the neutral baseline
	s := Summary{}
	assert.InDelta(t, 50.0, SuitabilityScore(s, 0, 100), 1e-9)

	// Strong return, no drawdown, busy trade log saturates the scale
	s = Summary{TotalReturn: 1.0}
	assert.InDelta(t, 100.0, SuitabilityScore(s, 100, 100), 1e-9)

	// Deep drawdown with heavy losses floors the penalty components
	s = Summary{TotalReturn: -1.0, MaxDrawdown: 0.6}
	assert.InDelta(t, 0.0, SuitabilityScore(s, 0, 100), 1e-9)

	assert.InDelta(t, 0.0, SuitabilityScore(Summary{}, 0, 0), 1e-9)
}

// TestCompute tests that the bundle wires every metric from one input
func TestCompute(t *testing.T) {
	snaps := snapshotSeries(10000, 10400, 10100, 10800)
	trades := []types.ClosedTrade{tradeWithPnL(500), tradeWithPnL(-200)}

	s := Compute(snaps, trades)

	assert.InDelta(t, 0.08, s.TotalReturn, 1e-9)
	assert.Greater(t, s.CAGR, 0.0)
	assert.Greater(t, s.MaxDrawdown, 0.0)
	assert.Greater(t, s.Volatility, 0.0)
	assert.InDelta(t, 2.5, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)
	assert.Greater(t, s.SuitabilityScore, 0.0)
}
