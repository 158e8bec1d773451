package portfolio

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haiminhng/stock-dca-backtest/internal/strategy"
)

func optimizerFixture() []OptimizerInstrument {
	return []OptimizerInstrument{
		{
			Symbol:          "AAA",
			Series:          seriesFrom(100, 89, 120, 95, 130, 110),
			Params:          strategy.DefaultParams(),
			BetaCoefficient: 1.0,
		},
		{
			Symbol:          "BBB",
			Series:          seriesFrom(50, 44, 60, 48, 65, 55),
			Params:          strategy.DefaultParams(),
			BetaCoefficient: 1.0,
		},
	}
}

// TestCombinations tests the cross-product expansion
func TestCombinations(t *testing.T) {
	combos := Combinations([]float64{0.05, 0.10}, []float64{0.03, 0.05}, []bool{false, true})
	assert.Len(t, combos, 8)

	// An empty adaptive list defaults to off
	combos = Combinations([]float64{0.05, 0.10}, []float64{0.03, 0.05}, nil)
	assert.Len(t, combos, 4)
	for _, combo := range combos {
		assert.False(t, combo.AdaptiveSell)
	}
}

// TestOptimizer_Run tests a small sweep end to end
func TestOptimizer_Run(t *testing.T) {
	opt := NewOptimizer(testSettings(10000, 0, 6), optimizerFixture(), 2)
	combos := Combinations([]float64{0.05, 0.10}, []float64{0.03, 0.05}, nil)

	results, err := opt.Run(context.Background(), combos)

	assert.NoError(t, err)
	assert.Len(t, results, 4)
	for _, res := range results {
		assert.NoError(t, res.Err)
		assert.Greater(t, res.FinalValue, 0.0)
	}

	// Ranked best first by total return
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Metrics.TotalReturn, results[i].Metrics.TotalReturn)
	}
}

// TestOptimizer_Run_DeterministicAcrossWorkerCounts tests that the worker
// pool never changes the outcome, only the wall-clock time
func TestOptimizer_Run_DeterministicAcrossWorkerCounts(t *testing.T) {
	combos := Combinations([]float64{0.05, 0.10, 0.15}, []float64{0.03, 0.08}, []bool{false, true})

	serial, err := NewOptimizer(testSettings(10000, 0, 6), optimizerFixture(), 1).Run(context.Background(), combos)
	assert.NoError(t, err)
	parallel, err := NewOptimizer(testSettings(10000, 0, 6), optimizerFixture(), 4).Run(context.Background(), combos)
	assert.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

// TestOptimizer_Run_ProgressCallback tests the per-combination completion
// hook
func TestOptimizer_Run_ProgressCallback(t *testing.T) {
	opt := NewOptimizer(testSettings(10000, 0, 6), optimizerFixture(), 2)
	var done atomic.Int64
	opt.OnRunDone = func(OptimizationResult) { done.Add(1) }

	combos := Combinations([]float64{0.05, 0.10}, []float64{0.05}, nil)
	_, err := opt.Run(context.Background(), combos)

	assert.NoError(t, err)
	assert.Equal(t, int64(len(combos)), done.Load())
}

// TestOptimizer_Run_CancelledContext tests that cancellation aborts the
// sweep with an error instead of partial results
func TestOptimizer_Run_CancelledContext(t *testing.T) {
	opt := NewOptimizer(testSettings(10000, 0, 6), optimizerFixture(), 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := opt.Run(ctx, Combinations([]float64{0.05}, []float64{0.05}, nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}
