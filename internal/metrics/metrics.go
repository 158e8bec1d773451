package metrics

import (
	"math"

	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

// tradingDaysPerYear annualizes daily return statistics.
const tradingDaysPerYear = 252

// Summary bundles every metric computed from one run. All values are
// deterministic given the snapshot sequence and trade log.
type Summary struct {
	TotalReturn      float64 `json:"total_return"`
	CAGR             float64 `json:"cagr"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	MaxDrawdownDays  int     `json:"max_drawdown_days"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	ProfitFactor     float64 `json:"profit_factor"`
	WinRate          float64 `json:"win_rate"`
	SuitabilityScore float64 `json:"suitability_score"`
}

// Compute evaluates the full metrics bundle over an equity curve and the
// realized-trade log.
func Compute(snapshots []types.DailySnapshot, trades []types.ClosedTrade) Summary {
	values := equityValues(snapshots)
	returns := DailyReturns(values)
	dd, ddDays := MaxDrawdown(snapshots)

	s := Summary{
		TotalReturn:     TotalReturn(values),
		CAGR:            CAGR(snapshots),
		MaxDrawdown:     dd,
		MaxDrawdownDays: ddDays,
		Volatility:      Volatility(returns),
		SharpeRatio:     SharpeRatio(returns),
		SortinoRatio:    SortinoRatio(returns),
		ProfitFactor:    ProfitFactor(trades),
		WinRate:         WinRate(trades),
	}
	s.SuitabilityScore = SuitabilityScore(s, len(trades), len(snapshots))
	return s
}

func equityValues(snapshots []types.DailySnapshot) []float64 {
	values := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		values[i] = snap.TotalPortfolioValue
	}
	return values
}

// TotalReturn is the simple return over the whole series.
func TotalReturn(values []float64) float64 {
	if len(values) < 2 || values[0] == 0 {
		return 0
	}
	return (values[len(values)-1] - values[0]) / values[0]
}

// CAGR is the compound annual growth rate, (final/initial)^(1/years) - 1.
func CAGR(snapshots []types.DailySnapshot) float64 {
	if len(snapshots) < 2 {
		return 0
	}
	first := snapshots[0]
	last := snapshots[len(snapshots)-1]
	if first.TotalPortfolioValue <= 0 {
		return 0
	}
	years := last.Date.Sub(first.Date).Hours() / (24 * 365.25)
	if years <= 0 {
		return 0
	}
	return math.Pow(last.TotalPortfolioValue/first.TotalPortfolioValue, 1.0/years) - 1.0
}

// MaxDrawdown returns the largest peak-to-trough decline of the equity
// curve and its duration in calendar days (peak date to trough date).
func MaxDrawdown(snapshots []types.DailySnapshot) (float64, int) {
	if len(snapshots) == 0 {
		return 0, 0
	}

	peak := snapshots[0]
	maxDD := 0.0
	maxDays := 0
	for _, snap := range snapshots[1:] {
		if snap.TotalPortfolioValue > peak.TotalPortfolioValue {
			peak = snap
			continue
		}
		if peak.TotalPortfolioValue <= 0 {
			continue
		}
		dd := (peak.TotalPortfolioValue - snap.TotalPortfolioValue) / peak.TotalPortfolioValue
		if dd > maxDD {
			maxDD = dd
			maxDays = int(snap.Date.Sub(peak.Date).Hours() / 24)
		}
	}
	return maxDD, maxDays
}

// DailyReturns converts an equity series into day-over-day returns.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}
	return returns
}

// Volatility is the annualized standard deviation of daily returns.
func Volatility(returns []float64) float64 {
	return math.Sqrt(tradingDaysPerYear) * stdDev(returns)
}

// SharpeRatio is the annualized mean daily return over annualized
// volatility, assuming a zero risk-free rate. Zero when volatility is
// zero.
func SharpeRatio(returns []float64) float64 {
	vol := Volatility(returns)
	if vol == 0 {
		return 0
	}
	return mean(returns) * tradingDaysPerYear / vol
}

// SortinoRatio is the annualized mean daily return over the annualized
// downside deviation, computed only over negative daily returns. Zero
// when there is no downside.
func SortinoRatio(returns []float64) float64 {
	downsideVariance := 0.0
	downsideCount := 0
	for _, r := range returns {
		if r < 0 {
			downsideVariance += r * r
			downsideCount++
		}
	}
	if downsideCount == 0 || downsideVariance == 0 {
		return 0
	}
	downside := math.Sqrt(tradingDaysPerYear) * math.Sqrt(downsideVariance/float64(downsideCount))
	return mean(returns) * tradingDaysPerYear / downside
}

// ProfitFactor is gross realized profit over gross realized loss.
// Infinite when there are profits but no losses.
func ProfitFactor(trades []types.ClosedTrade) float64 {
	totalProfit := 0.0
	totalLoss := 0.0
	for _, trade := range trades {
		if trade.PnL > 0 {
			totalProfit += trade.PnL
		} else {
			totalLoss += math.Abs(trade.PnL)
		}
	}
	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

// WinRate is the percentage of realized trades closed at a profit.
func WinRate(trades []types.ClosedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, trade := range trades {
		if trade.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// SuitabilityScore is a 0-100 heuristic of how well the grid-DCA style
// fit the traded series: rewarded by return and realized trade activity,
// penalized by drawdown.
func SuitabilityScore(s Summary, tradeCount, dayCount int) float64 {
	if dayCount == 0 {
		return 0
	}

	score := 50.0
	score += clamp(s.TotalReturn*100, -25, 25)
	score -= clamp(s.MaxDrawdown*100, 0, 25)

	// Grid strategies want regular realized cycles; reward up to one
	// trade per ten trading days.
	activity := float64(tradeCount) / float64(dayCount) * 10
	score += clamp(activity*25, 0, 25)

	return clamp(score, 0, 100)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
