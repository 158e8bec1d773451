package config

import (
	"fmt"
	"math"
	"time"

	"github.com/haiminhng/stock-dca-backtest/internal/errors"
	"github.com/haiminhng/stock-dca-backtest/internal/strategy"
)

// Validate rejects invalid configuration before the run starts. Every
// error names the offending field; nothing about a valid config can fail
// later inside the simulation loop.
func (c *RunConfig) Validate() error {
	start, err := time.Parse(DateFormat, c.StartDate)
	if err != nil {
		return configErr("start_date must be YYYY-MM-DD, got %q", c.StartDate)
	}
	end, err := time.Parse(DateFormat, c.EndDate)
	if err != nil {
		return configErr("end_date must be YYYY-MM-DD, got %q", c.EndDate)
	}
	if end.Before(start) {
		return configErr("end_date %s precedes start_date %s", c.EndDate, c.StartDate)
	}

	if !isFinite(c.TotalCapital) || c.TotalCapital <= 0 {
		return configErr("total_capital must be a positive number, got %v", c.TotalCapital)
	}
	if !isFinite(c.MarginPercent) || c.MarginPercent < 0 || c.MarginPercent > 100 {
		return configErr("margin_percent must be between 0 and 100, got %v", c.MarginPercent)
	}
	if !isFinite(c.LotSizeUSD) || c.LotSizeUSD <= 0 {
		return configErr("lot_size_usd must be a positive number, got %v", c.LotSizeUSD)
	}
	if !isFinite(c.BetaCoefficient) || c.BetaCoefficient <= 0 {
		return configErr("beta_coefficient must be a positive number, got %v", c.BetaCoefficient)
	}

	if len(c.Instruments) == 0 {
		return configErr("instruments must list at least one symbol")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.Symbol == "" {
			return configErr("instruments[%d].symbol is empty", i)
		}
		if seen[inst.Symbol] {
			return configErr("instruments[%d].symbol %q is duplicated", i, inst.Symbol)
		}
		seen[inst.Symbol] = true
		if inst.Beta != nil && (!isFinite(*inst.Beta) || *inst.Beta <= 0) {
			return configErr("instruments[%d].beta must be a positive number, got %v", i, *inst.Beta)
		}
		if err := validateParams(fmt.Sprintf("instruments[%d]", i), c.ParamsFor(inst)); err != nil {
			return err
		}
	}
	return nil
}

// validateParams checks one instrument's effective (override-applied)
// parameter set.
func validateParams(scope string, p strategy.StrategyParams) error {
	if !isFinite(p.GridSpacing) || p.GridSpacing <= 0 || p.GridSpacing >= 1 {
		return configErr("%s: grid_spacing must be in (0, 1), got %v", scope, p.GridSpacing)
	}
	if !isFinite(p.ProfitTarget) || p.ProfitTarget <= 0 || p.ProfitTarget >= 1 {
		return configErr("%s: profit_target must be in (0, 1), got %v", scope, p.ProfitTarget)
	}
	if p.EnableIncrementalBuyGrid && p.IncrementalGridMultiplier < 1 {
		return configErr("%s: incremental_grid_multiplier must be >= 1, got %v", scope, p.IncrementalGridMultiplier)
	}
	if (p.EnableAdaptiveBuy || p.EnableAdaptiveSell) && (p.ReboundThreshold <= 0 || p.ReboundThreshold >= 1) {
		return configErr("%s: rebound_threshold must be in (0, 1) when adaptive mode is enabled, got %v", scope, p.ReboundThreshold)
	}
	if p.MaxLots < 0 {
		return configErr("%s: max_lots must be >= 0, got %d", scope, p.MaxLots)
	}
	if p.MaxLotsPerSell < 0 {
		return configErr("%s: max_lots_per_sell must be >= 0, got %d", scope, p.MaxLotsPerSell)
	}
	if p.MaxLots > 0 && p.MaxLotsPerSell > p.MaxLots {
		return configErr("%s: max_lots_per_sell (%d) exceeds max_lots (%d)", scope, p.MaxLotsPerSell, p.MaxLots)
	}
	if p.DynamicGrid != nil && p.DynamicGrid.ReferencePrice <= 0 {
		return configErr("%s: dynamic_grid.reference_price must be positive, got %v", scope, p.DynamicGrid.ReferencePrice)
	}
	if err := validateTrailing(scope+".trailing_buy", p.TrailingBuy); err != nil {
		return err
	}
	return validateTrailing(scope+".trailing_sell", p.TrailingSell)
}

func validateTrailing(scope string, t *strategy.TrailingParams) error {
	if t == nil {
		return nil
	}
	if t.Activation <= 0 || t.Activation >= 1 {
		return configErr("%s.activation must be in (0, 1), got %v", scope, t.Activation)
	}
	if t.Retrace <= 0 || t.Retrace >= 1 {
		return configErr("%s.retrace must be in (0, 1), got %v", scope, t.Retrace)
	}
	return nil
}

func configErr(format string, args ...interface{}) error {
	return errors.NewConfigError("config", "validate", fmt.Sprintf(format, args...))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
