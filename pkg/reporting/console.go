package reporting

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/haiminhng/stock-dca-backtest/internal/portfolio"
)

// ConsoleReporter prints run results to stdout.
type ConsoleReporter struct{}

// NewConsoleReporter creates a console reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// OutputResults prints the portfolio summary, the per-instrument
// breakdown table and the rejection log.
func (r *ConsoleReporter) OutputResults(result *portfolio.Result) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("📊 PORTFOLIO BACKTEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	m := result.Metrics
	fmt.Printf("💰 Final Value:        $%.2f\n", result.FinalValue())
	fmt.Printf("💰 Cash Reserve:       $%.2f\n", result.Ledger.CashReserve)
	fmt.Printf("💰 Deployed Capital:   $%.2f\n", result.Ledger.DeployedCapital)
	fmt.Printf("📈 Total Return:       %.2f%%\n", m.TotalReturn*100)
	fmt.Printf("📈 CAGR:               %.2f%%\n", m.CAGR*100)
	fmt.Printf("📉 Max Drawdown:       %.2f%% (%d days)\n", m.MaxDrawdown*100, m.MaxDrawdownDays)
	fmt.Printf("📊 Volatility:         %.2f%%\n", m.Volatility*100)
	fmt.Printf("📊 Sharpe Ratio:       %.2f\n", m.SharpeRatio)
	fmt.Printf("📊 Sortino Ratio:      %.2f\n", m.SortinoRatio)
	fmt.Printf("💹 Profit Factor:      %.2f\n", m.ProfitFactor)
	fmt.Printf("✅ Win Rate:           %.1f%%\n", m.WinRate)
	fmt.Printf("🎯 Capital Util:       %.1f%%\n", result.Ledger.Utilization*100)
	fmt.Printf("🎯 Suitability Score:  %.1f\n", m.SuitabilityScore)
	fmt.Printf("🔄 Realized Trades:    %d\n", len(result.Trades))
	fmt.Printf("🚫 Rejected Orders:    %d\n", len(result.Rejections))

	r.printInstrumentTable(result)
	r.printRejections(result)
}

func (r *ConsoleReporter) printInstrumentTable(result *portfolio.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Symbol", "Lots", "Avg Cost", "Market Value", "Realized P&L", "Unrealized P&L", "Buys", "Sells", "Beta", "Profile"})

	for _, inst := range result.Instruments {
		beta := fmt.Sprintf("%.2f", inst.Beta)
		if inst.BetaFallback {
			beta += " (fallback)"
		}
		t.AppendRow(table.Row{
			inst.Symbol,
			len(inst.Lots),
			fmt.Sprintf("$%.2f", inst.AverageCost),
			fmt.Sprintf("$%.2f", inst.MarketValue),
			colorPnL(inst.RealizedPnL),
			colorPnL(inst.UnrealizedPnL),
			inst.Buys,
			inst.Sells,
			beta,
			inst.Profile,
		})
	}
	fmt.Println()
	t.Render()
}

func (r *ConsoleReporter) printRejections(result *portfolio.Result) {
	if len(result.Rejections) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Rejected Orders")
	t.AppendHeader(table.Row{"Date", "Symbol", "Reason", "Shortfall"})

	for _, rej := range result.Rejections {
		t.AppendRow(table.Row{
			rej.Date.Format("2006-01-02"),
			rej.Symbol,
			string(rej.Reason),
			fmt.Sprintf("$%.2f", rej.Shortfall),
		})
	}
	fmt.Println()
	t.Render()
}

// OutputOptimization prints a ranked sweep summary, best first.
func (r *ConsoleReporter) OutputOptimization(results []portfolio.OptimizationResult, top int) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("🏆 BATCH OPTIMIZATION: %d COMBINATIONS\n", len(results))
	fmt.Println(strings.Repeat("=", 50))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rank", "Grid", "Profit", "Adaptive Sell", "Return", "Sharpe", "Max DD"})

	for i, res := range results {
		if top > 0 && i >= top {
			break
		}
		if res.Err != nil {
			t.AppendRow(table.Row{i + 1, pct(res.Combination.GridSpacing), pct(res.Combination.ProfitTarget),
				res.Combination.AdaptiveSell, "ERROR", res.Err.Error(), ""})
			continue
		}
		t.AppendRow(table.Row{
			i + 1,
			pct(res.Combination.GridSpacing),
			pct(res.Combination.ProfitTarget),
			res.Combination.AdaptiveSell,
			pct(res.Metrics.TotalReturn),
			fmt.Sprintf("%.2f", res.Metrics.SharpeRatio),
			pct(res.Metrics.MaxDrawdown),
		})
	}
	fmt.Println()
	t.Render()
}

func colorPnL(v float64) string {
	s := fmt.Sprintf("$%.2f", v)
	if v < 0 {
		return text.FgRed.Sprint(s)
	}
	if v > 0 {
		return text.FgGreen.Sprint(s)
	}
	return s
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
