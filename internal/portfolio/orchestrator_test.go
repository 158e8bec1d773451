package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haiminhng/stock-dca-backtest/internal/ledger"
	"github.com/haiminhng/stock-dca-backtest/internal/strategy"
	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

var runStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seriesFrom builds a daily series starting at runStart; a zero close
// leaves a gap on that day
func seriesFrom(closes ...float64) types.PriceSeries {
	var series types.PriceSeries
	for i, close := range closes {
		if close == 0 {
			continue
		}
		series = append(series, types.PricePoint{Date: runStart.AddDate(0, 0, i), Close: close})
	}
	return series
}

func testSettings(totalCapital, marginPercent float64, days int) RunSettings {
	return RunSettings{
		Start:         runStart,
		End:           runStart.AddDate(0, 0, days-1),
		TotalCapital:  totalCapital,
		MarginPercent: marginPercent,
		LotSizeUSD:    1000.0,
	}
}

func neutralInstrument(symbol string) *strategy.Instrument {
	return strategy.NewInstrument(symbol, strategy.AdjustParams(strategy.DefaultParams(), nil, 1.0), 1000.0)
}

// TestOrchestrator_Run_NoInstruments tests the empty-set validation
func TestOrchestrator_Run_NoInstruments(t *testing.T) {
	orch := NewOrchestrator(testSettings(10000, 0, 5))

	result, err := orch.Run(context.Background())

	assert.Error(t, err)
	assert.Nil(t, result)
}

// TestOrchestrator_AddInstrument_Validation tests duplicate symbols and
// out-of-range series
func TestOrchestrator_AddInstrument_Validation(t *testing.T) {
	orch := NewOrchestrator(testSettings(10000, 0, 3))

	assert.NoError(t, orch.AddInstrument(neutralInstrument("AAA"), seriesFrom(100, 101, 102)))
	assert.Error(t, orch.AddInstrument(neutralInstrument("AAA"), seriesFrom(100, 101, 102)))

	outside := types.PriceSeries{{Date: runStart.AddDate(0, 0, 30), Close: 100}}
	assert.Error(t, orch.AddInstrument(neutralInstrument("BBB"), outside))
}

// TestOrchestrator_Run_SingleInstrumentCycle tests a full buy, average
// down, take profit, re-enter cycle
func TestOrchestrator_Run_SingleInstrumentCycle(t *testing.T) {
	orch := NewOrchestrator(testSettings(10000, 0, 5))
	assert.NoError(t, orch.AddInstrument(neutralInstrument("AAA"), seriesFrom(100, 95, 89, 120, 118)))

	result, err := orch.Run(context.Background())

	assert.NoError(t, err)
	assert.Len(t, result.Snapshots, 5)
	assert.Len(t, result.Instruments, 1)

	inst := result.Instruments[0]
	// Bootstrap at 100, grid buy at 89, both sold at 120, re-entry at 118
	assert.Equal(t, 3, inst.Buys)
	assert.Equal(t, 1, inst.Sells)
	assert.Len(t, result.Trades, 2)
	assert.Greater(t, inst.RealizedPnL, 0.0)
	assert.Len(t, inst.Lots, 1)
	assert.InDelta(t, 118.0, inst.FinalPrice, 1e-9)
	assert.True(t, inst.BetaFallback)

	// Capital conservation at the ledger
	assert.InDelta(t, 10000.0+inst.RealizedPnL,
		result.Ledger.CashReserve+result.Ledger.DeployedCapital, 1e-6)
}

// TestOrchestrator_Run_SellsFreeCapitalForSameDayBuys tests that sell
// proceeds fund buys on the same simulated day
func TestOrchestrator_Run_SellsFreeCapitalForSameDayBuys(t *testing.T) {
	orch := NewOrchestrator(testSettings(2000, 0, 2))
	assert.NoError(t, orch.AddInstrument(neutralInstrument("AAA"), seriesFrom(100, 89)))
	assert.NoError(t, orch.AddInstrument(neutralInstrument("ZZZ"), seriesFrom(100, 106)))

	result, err := orch.Run(context.Background())
	assert.NoError(t, err)

	var aaa, zzz InstrumentResult
	for _, inst := range result.Instruments {
		if inst.Symbol == "AAA" {
			aaa = inst
		} else {
			zzz = inst
		}
	}

	// ZZZ takes profit on day two; without those proceeds the shared pool
	// is fully deployed and AAA's grid buy could not fund
	assert.Equal(t, 1, zzz.Sells)
	assert.Empty(t, zzz.Lots)
	assert.Equal(t, 2, aaa.Buys)
	assert.Len(t, aaa.Lots, 2)

	// ZZZ's own same-day re-entry is the one rejection, blocked by the
	// capital limit
	assert.Len(t, result.Rejections, 1)
	assert.Equal(t, "ZZZ", result.Rejections[0].Symbol)
	assert.Equal(t, ledger.ReasonMarginLimit, result.Rejections[0].Reason)

	assert.InDelta(t, 2000.0+zzz.RealizedPnL,
		result.Ledger.CashReserve+result.Ledger.DeployedCapital, 1e-6)
}

// TestOrchestrator_Run_RejectionLeavesInstrumentUntouched tests that a
// rejected buy does not advance instrument state
func TestOrchestrator_Run_RejectionLeavesInstrumentUntouched(t *testing.T) {
	// Capital funds only the first of two bootstrap buys
	orch := NewOrchestrator(testSettings(1000, 0, 1))
	assert.NoError(t, orch.AddInstrument(neutralInstrument("AAA"), seriesFrom(100)))
	assert.NoError(t, orch.AddInstrument(neutralInstrument("BBB"), seriesFrom(50)))

	result, err := orch.Run(context.Background())
	assert.NoError(t, err)

	assert.Len(t, result.Rejections, 1)
	assert.Equal(t, "BBB", result.Rejections[0].Symbol)
	for _, inst := range result.Instruments {
		if inst.Symbol == "BBB" {
			assert.Empty(t, inst.Lots)
			assert.Equal(t, 0, inst.Buys)
		}
	}
}

// TestOrchestrator_Run_RejectedTrailingBuyResignals tests that a rejected
// trailing-buy trigger keeps the stop armed with its extremum, so the
// same conditions keep signalling on later days
func TestOrchestrator_Run_RejectedTrailingBuyResignals(t *testing.T) {
	params := strategy.DefaultParams()
	params.TrailingBuy = &strategy.TrailingParams{Activation: 0.05, Retrace: 0.03}
	inst := strategy.NewInstrument("AAA", strategy.AdjustParams(params, nil, 1.0), 1000.0)

	// Capital covers only the bootstrap lot; the trailing trigger arms at
	// 94, rides the low to 90 and fires on every 93 close
	orch := NewOrchestrator(testSettings(1000, 0, 6))
	assert.NoError(t, orch.AddInstrument(inst, seriesFrom(100, 94, 90, 93, 93, 93)))

	result, err := orch.Run(context.Background())
	assert.NoError(t, err)

	assert.Len(t, result.Rejections, 3)
	for i, rej := range result.Rejections {
		assert.Equal(t, "AAA", rej.Symbol)
		assert.Equal(t, runStart.AddDate(0, 0, 3+i), rej.Date)
	}
	assert.Equal(t, 1, result.Instruments[0].Buys)
	assert.Len(t, result.Instruments[0].Lots, 1)
}

// TestOrchestrator_Run_MissingDatesSkipAndMarkAtLastClose tests gap
// handling and last-known-price valuation
func TestOrchestrator_Run_MissingDatesSkipAndMarkAtLastClose(t *testing.T) {
	orch := NewOrchestrator(testSettings(10000, 0, 3))
	assert.NoError(t, orch.AddInstrument(neutralInstrument("AAA"), seriesFrom(100, 99, 98)))
	assert.NoError(t, orch.AddInstrument(neutralInstrument("GGG"), seriesFrom(50, 0, 50)))

	result, err := orch.Run(context.Background())
	assert.NoError(t, err)

	for _, inst := range result.Instruments {
		if inst.Symbol == "GGG" {
			assert.Equal(t, 1, inst.SkippedDays)
		}
	}

	// Day two marks GGG at its day-one close
	snap := result.Snapshots[1]
	assert.InDelta(t, 1000.0, snap.MarketValueBySymbol["GGG"], 1e-6)
	assert.InDelta(t, 8000.0+10.0*99.0+1000.0, snap.TotalPortfolioValue, 1e-6)
}

// TestOrchestrator_Run_Deterministic tests byte-for-byte reproducibility
// across repeated runs with identical inputs
func TestOrchestrator_Run_Deterministic(t *testing.T) {
	build := func() *Orchestrator {
		orch := NewOrchestrator(testSettings(5000, 10, 6))
		assert.NoError(t, orch.AddInstrument(neutralInstrument("AAA"), seriesFrom(100, 89, 120, 95, 130, 110)))
		assert.NoError(t, orch.AddInstrument(neutralInstrument("BBB"), seriesFrom(50, 44, 60, 0, 65, 55)))
		assert.NoError(t, orch.AddInstrument(neutralInstrument("CCC"), seriesFrom(200, 178, 240, 190, 260, 220)))
		return orch
	}

	first, err := build().Run(context.Background())
	assert.NoError(t, err)
	second, err := build().Run(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, first.Snapshots, second.Snapshots)
	assert.Equal(t, first.Trades, second.Trades)
	assert.Equal(t, first.Instruments, second.Instruments)
	assert.Equal(t, first.Rejections, second.Rejections)
	assert.Equal(t, first.Ledger, second.Ledger)
}

// TestOrchestrator_Run_ContextCancellation tests the between-days abort
func TestOrchestrator_Run_ContextCancellation(t *testing.T) {
	orch := NewOrchestrator(testSettings(10000, 0, 3))
	assert.NoError(t, orch.AddInstrument(neutralInstrument("AAA"), seriesFrom(100, 99, 98)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orch.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}
