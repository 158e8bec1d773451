package portfolio

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/haiminhng/stock-dca-backtest/internal/metrics"
	"github.com/haiminhng/stock-dca-backtest/internal/strategy"
	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

// Combination is one parameter set of a batch optimization sweep.
type Combination struct {
	GridSpacing  float64 `json:"grid_spacing"`
	ProfitTarget float64 `json:"profit_target"`
	AdaptiveSell bool    `json:"adaptive_sell"`
}

// OptimizationResult pairs a combination with the metrics its run
// produced.
type OptimizationResult struct {
	Combination Combination     `json:"combination"`
	Metrics     metrics.Summary `json:"metrics"`
	FinalValue  float64         `json:"final_value"`
	Err         error           `json:"-"`
}

// OptimizerInstrument is the immutable per-symbol input each sweep run
// starts from.
type OptimizerInstrument struct {
	Symbol          string
	Series          types.PriceSeries
	Params          strategy.StrategyParams
	Beta            *float64
	BetaCoefficient float64
}

// Optimizer runs the same portfolio across a cross-product of parameter
// combinations and ranks the outcomes. Runs are independent replays, so
// they execute on a bounded worker pool; each worker builds its own
// orchestrator and instruments so no state crosses runs.
type Optimizer struct {
	settings    RunSettings
	instruments []OptimizerInstrument
	workerCount int

	// OnRunDone, when set, is called once per finished combination. It
	// must be safe for concurrent use.
	OnRunDone func(OptimizationResult)
}

// NewOptimizer creates a sweep runner. workerCount <= 0 defaults to the
// number of CPUs.
func NewOptimizer(settings RunSettings, instruments []OptimizerInstrument, workerCount int) *Optimizer {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &Optimizer{
		settings:    settings,
		instruments: instruments,
		workerCount: workerCount,
	}
}

// Combinations expands the given value lists into their cross-product.
func Combinations(gridSpacings, profitTargets []float64, adaptiveSell []bool) []Combination {
	if len(adaptiveSell) == 0 {
		adaptiveSell = []bool{false}
	}
	combos := make([]Combination, 0, len(gridSpacings)*len(profitTargets)*len(adaptiveSell))
	for _, spacing := range gridSpacings {
		for _, target := range profitTargets {
			for _, adaptive := range adaptiveSell {
				combos = append(combos, Combination{
					GridSpacing:  spacing,
					ProfitTarget: target,
					AdaptiveSell: adaptive,
				})
			}
		}
	}
	return combos
}

// Run executes every combination and returns the results sorted by total
// return, best first. Individual run failures are carried in the result
// slice; only a cancelled context aborts the sweep.
func (opt *Optimizer) Run(ctx context.Context, combos []Combination) ([]OptimizationResult, error) {
	jobs := make(chan int, len(combos))
	results := make([]OptimizationResult, len(combos))

	var wg sync.WaitGroup
	for w := 0; w < opt.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}
				results[idx] = opt.runOne(ctx, combos[idx])
				if opt.OnRunDone != nil {
					opt.OnRunDone(results[idx])
				}
			}
		}()
	}
	for idx := range combos {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Metrics.TotalReturn > results[j].Metrics.TotalReturn
	})
	return results, nil
}

// runOne replays the portfolio once with the combination applied on top
// of every instrument's base parameters.
func (opt *Optimizer) runOne(ctx context.Context, combo Combination) OptimizationResult {
	orch := NewOrchestrator(opt.settings)
	for _, in := range opt.instruments {
		params := in.Params.Clone()
		params.GridSpacing = combo.GridSpacing
		params.ProfitTarget = combo.ProfitTarget
		params.EnableAdaptiveSell = combo.AdaptiveSell

		adjusted := strategy.AdjustParams(params, in.Beta, in.BetaCoefficient)
		inst := strategy.NewInstrument(in.Symbol, adjusted, opt.settings.LotSizeUSD)
		if err := orch.AddInstrument(inst, in.Series); err != nil {
			return OptimizationResult{
				Combination: combo,
				Err:         fmt.Errorf("combination %+v: %w", combo, err),
			}
		}
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return OptimizationResult{Combination: combo, Err: err}
	}
	return OptimizationResult{
		Combination: combo,
		Metrics:     result.Metrics,
		FinalValue:  result.FinalValue(),
	}
}
