package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/haiminhng/stock-dca-backtest/internal/strategy"
)

// DateFormat is the layout for the config date fields.
const DateFormat = "2006-01-02"

// Default capital settings used when fields are omitted.
const (
	DefaultTotalCapital = 10000.0
	DefaultLotSizeUSD   = 1000.0
	DefaultBetaCoeff    = 1.0
)

// InstrumentConfig configures one instrument of a portfolio run.
type InstrumentConfig struct {
	Symbol   string `json:"symbol"`
	DataFile string `json:"data_file"`
	// Beta is the instrument's supplied volatility coefficient. Absent
	// means the neutral 1.0 fallback (annotated in the result).
	Beta *float64 `json:"beta,omitempty"`
	// Overrides replace individual base strategy parameters for this
	// instrument only.
	Overrides *ParamOverrides `json:"overrides,omitempty"`
}

// ParamOverrides is the per-instrument override map. Nil fields leave the
// base parameter in place.
type ParamOverrides struct {
	GridSpacing               *float64                    `json:"grid_spacing,omitempty"`
	ProfitTarget              *float64                    `json:"profit_target,omitempty"`
	EnableIncrementalBuyGrid  *bool                       `json:"enable_incremental_buy_grid,omitempty"`
	IncrementalGridMultiplier *float64                    `json:"incremental_grid_multiplier,omitempty"`
	EnableAdaptiveBuy         *bool                       `json:"enable_adaptive_buy,omitempty"`
	EnableAdaptiveSell        *bool                       `json:"enable_adaptive_sell,omitempty"`
	ReboundThreshold          *float64                    `json:"rebound_threshold,omitempty"`
	EnableAverageBasedGrid    *bool                       `json:"enable_average_based_grid,omitempty"`
	EnableAverageBasedSell    *bool                       `json:"enable_average_based_sell,omitempty"`
	MaxLots                   *int                        `json:"max_lots,omitempty"`
	MaxLotsPerSell            *int                        `json:"max_lots_per_sell,omitempty"`
	DynamicGrid               *strategy.DynamicGridParams `json:"dynamic_grid,omitempty"`
	TrailingBuy               *strategy.TrailingParams    `json:"trailing_buy,omitempty"`
	TrailingSell              *strategy.TrailingParams    `json:"trailing_sell,omitempty"`
	Profile                   *strategy.ProfileParams     `json:"profile,omitempty"`
}

// RunConfig is the JSON portfolio configuration for one backtest run.
type RunConfig struct {
	Description string `json:"description"`

	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	TotalCapital    float64 `json:"total_capital"`
	MarginPercent   float64 `json:"margin_percent"`
	LotSizeUSD      float64 `json:"lot_size_usd"`
	BetaCoefficient float64 `json:"beta_coefficient"`

	Strategy    strategy.StrategyParams `json:"strategy"`
	Instruments []InstrumentConfig      `json:"instruments"`
}

// Load reads and validates a portfolio configuration. Relative paths are
// also tried under configs/portfolios/, matching the repository layout.
func Load(configFile string) (*RunConfig, error) {
	if !filepath.IsAbs(configFile) {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			alt := filepath.Join("configs", "portfolios", configFile)
			if _, err := os.Stat(alt); err == nil {
				configFile = alt
			}
		}
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg := &RunConfig{
		TotalCapital:    DefaultTotalCapital,
		LotSizeUSD:      DefaultLotSizeUSD,
		BetaCoefficient: DefaultBetaCoeff,
		Strategy:        strategy.DefaultParams(),
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DateRange parses the configured run range. Validate has already
// checked the formats.
func (c *RunConfig) DateRange() (start, end time.Time) {
	start, _ = time.Parse(DateFormat, c.StartDate)
	end, _ = time.Parse(DateFormat, c.EndDate)
	return start, end
}

// ParamsFor resolves the effective base parameters for one instrument by
// applying its override map to the shared strategy block.
func (c *RunConfig) ParamsFor(inst InstrumentConfig) strategy.StrategyParams {
	params := c.Strategy.Clone()
	o := inst.Overrides
	if o == nil {
		return params
	}
	if o.GridSpacing != nil {
		params.GridSpacing = *o.GridSpacing
	}
	if o.ProfitTarget != nil {
		params.ProfitTarget = *o.ProfitTarget
	}
	if o.EnableIncrementalBuyGrid != nil {
		params.EnableIncrementalBuyGrid = *o.EnableIncrementalBuyGrid
	}
	if o.IncrementalGridMultiplier != nil {
		params.IncrementalGridMultiplier = *o.IncrementalGridMultiplier
	}
	if o.EnableAdaptiveBuy != nil {
		params.EnableAdaptiveBuy = *o.EnableAdaptiveBuy
	}
	if o.EnableAdaptiveSell != nil {
		params.EnableAdaptiveSell = *o.EnableAdaptiveSell
	}
	if o.ReboundThreshold != nil {
		params.ReboundThreshold = *o.ReboundThreshold
	}
	if o.EnableAverageBasedGrid != nil {
		params.EnableAverageBasedGrid = *o.EnableAverageBasedGrid
	}
	if o.EnableAverageBasedSell != nil {
		params.EnableAverageBasedSell = *o.EnableAverageBasedSell
	}
	if o.MaxLots != nil {
		params.MaxLots = *o.MaxLots
	}
	if o.MaxLotsPerSell != nil {
		params.MaxLotsPerSell = *o.MaxLotsPerSell
	}
	if o.DynamicGrid != nil {
		dg := *o.DynamicGrid
		params.DynamicGrid = &dg
	}
	if o.TrailingBuy != nil {
		tb := *o.TrailingBuy
		params.TrailingBuy = &tb
	}
	if o.TrailingSell != nil {
		ts := *o.TrailingSell
		params.TrailingSell = &ts
	}
	if o.Profile != nil {
		pr := *o.Profile
		params.Profile = &pr
	}
	return params
}
