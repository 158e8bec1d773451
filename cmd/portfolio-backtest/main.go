package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	bterrors "github.com/haiminhng/stock-dca-backtest/internal/errors"
	"github.com/haiminhng/stock-dca-backtest/internal/logger"
	"github.com/haiminhng/stock-dca-backtest/internal/monitoring"
	"github.com/haiminhng/stock-dca-backtest/internal/portfolio"
	"github.com/haiminhng/stock-dca-backtest/internal/strategy"
	"github.com/haiminhng/stock-dca-backtest/pkg/config"
	"github.com/haiminhng/stock-dca-backtest/pkg/data"
	"github.com/haiminhng/stock-dca-backtest/pkg/reporting"
	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

const (
	AppName    = "Portfolio Backtest"
	AppVersion = "1.0.0"

	DefaultOutputDir  = "results"
	DefaultTopResults = 20
)

func main() {
	flags := NewPortfolioFlags()
	flag.Parse()

	if err := ValidatePortfolioFlags(flags); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	if *flags.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}
	if *flags.ShowHelp {
		printUsageHelp()
		return
	}

	printHeader()
	loadEnvironment(*flags.EnvFile)

	cfg, err := config.Load(*flags.ConfigFile)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	if cfg.Description != "" {
		fmt.Printf("📋 %s\n", cfg.Description)
	}

	series, err := loadPriceData(cfg)
	if err != nil {
		log.Fatalf("❌ Data error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flags.Optimize {
		runOptimization(ctx, cfg, series, flags)
	} else {
		runBacktest(ctx, cfg, series, flags)
	}
}

func printHeader() {
	fmt.Printf("🎯 %s v%s\n", strings.ToUpper(AppName), AppVersion)
	fmt.Printf("%s\n\n", strings.Repeat("=", 50))
}

func printUsageHelp() {
	fmt.Printf("%s v%s - Grid-Based DCA Portfolio Backtesting\n\n", AppName, AppVersion)
	fmt.Printf("USAGE:\n  %s [OPTIONS]\n\n", filepath.Base(flag.CommandLine.Name()))
	PrintUsageExamples()
	flag.PrintDefaults()
}

func loadEnvironment(envFile string) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", envFile, err)
	}
}

// loadPriceData reads every instrument's CSV series once, keyed by symbol.
func loadPriceData(cfg *config.RunConfig) (map[string]types.PriceSeries, error) {
	provider := data.NewCSVProvider()
	series := make(map[string]types.PriceSeries, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		s, err := provider.LoadSeries(inst.DataFile)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", inst.Symbol, err)
		}
		series[inst.Symbol] = s
		fmt.Printf("📈 %s: %d price rows loaded\n", inst.Symbol, len(s))
	}
	return series, nil
}

func errorCategory(err error) string {
	var berr *bterrors.BacktestError
	if stderrors.As(err, &berr) {
		return string(berr.Category)
	}
	return "unknown"
}

func runSettings(cfg *config.RunConfig) portfolio.RunSettings {
	start, end := cfg.DateRange()
	return portfolio.RunSettings{
		Start:         start,
		End:           end,
		TotalCapital:  cfg.TotalCapital,
		MarginPercent: cfg.MarginPercent,
		LotSizeUSD:    cfg.LotSizeUSD,
	}
}

func runBacktest(ctx context.Context, cfg *config.RunConfig, series map[string]types.PriceSeries, flags *PortfolioFlags) {
	orch := portfolio.NewOrchestrator(runSettings(cfg))
	for _, instCfg := range cfg.Instruments {
		params := cfg.ParamsFor(instCfg)
		adjusted := strategy.AdjustParams(params, instCfg.Beta, cfg.BetaCoefficient)
		inst := strategy.NewInstrument(instCfg.Symbol, adjusted, cfg.LotSizeUSD)
		if err := orch.AddInstrument(inst, series[instCfg.Symbol]); err != nil {
			log.Fatalf("❌ Setup error: %v", err)
		}
	}

	started := time.Now()
	result, err := orch.Run(ctx)
	if err != nil {
		monitoring.RecordRun("failed", time.Since(started).Seconds())
		monitoring.RecordError(errorCategory(err))
		log.Fatalf("❌ Backtest error: %v", err)
	}
	monitoring.RecordRun("ok", time.Since(started).Seconds())
	for _, inst := range result.Instruments {
		monitoring.RecordOrders(inst.Symbol, "buy", inst.Buys)
		monitoring.RecordOrders(inst.Symbol, "sell", inst.Sells)
	}
	for _, rej := range result.Rejections {
		monitoring.RecordRejection(rej.Symbol, string(rej.Reason))
	}
	fmt.Printf("\n⏱️  Completed in %s\n", time.Since(started).Round(time.Millisecond))

	reporting.NewConsoleReporter().OutputResults(result)

	if !*flags.ConsoleOnly {
		writeRunLog(result, *flags.OutputDir, *flags.ConfigFile)
	}

	if *flags.PrintJSON {
		if err := reporting.NewJSONReporter().PrintResult(result); err != nil {
			log.Fatalf("❌ JSON output error: %v", err)
		}
	}
	if !*flags.ConsoleOnly {
		writeResultFiles(result, *flags.OutputDir)
	}
}

// writeRunLog appends the full trade and rejection record to a per-run
// log file.
func writeRunLog(result *portfolio.Result, outputDir, configFile string) {
	runName := strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	runLog, err := logger.NewLogger(filepath.Join(outputDir, "logs"), runName)
	if err != nil {
		log.Printf("⚠️  Could not open run log: %v", err)
		return
	}
	defer runLog.Close()

	for _, inst := range result.Instruments {
		runLog.Info("%s: %d buys, %d sells, %d skipped days, realized P&L %.2f",
			inst.Symbol, inst.Buys, inst.Sells, inst.SkippedDays, inst.RealizedPnL)
	}
	for _, trade := range result.Trades {
		runLog.Trade("%s %s -> %s entry %.2f exit %.2f shares %.4f pnl %.2f",
			trade.Symbol, trade.EntryDate.Format("2006-01-02"), trade.ExitDate.Format("2006-01-02"),
			trade.EntryPrice, trade.ExitPrice, trade.Shares, trade.PnL)
	}
	for _, rej := range result.Rejections {
		runLog.Reject("%s %s: %s (shortfall %.2f)",
			rej.Date.Format("2006-01-02"), rej.Symbol, rej.Reason, rej.Shortfall)
	}
	runLog.Info("final value %.2f, total return %.2f%%, max drawdown %.2f%%",
		result.FinalValue(), result.Metrics.TotalReturn*100, result.Metrics.MaxDrawdown*100)
}

func writeResultFiles(result *portfolio.Result, outputDir string) {
	stamp := time.Now().Format("20060102_150405")
	csvReporter := reporting.NewCSVReporter()

	tradesPath := filepath.Join(outputDir, fmt.Sprintf("trades_%s.csv", stamp))
	if err := csvReporter.WriteTradesCSV(result, tradesPath); err != nil {
		log.Printf("⚠️  Could not write trades CSV: %v", err)
	} else {
		fmt.Printf("💾 Trades written to %s\n", tradesPath)
	}

	equityPath := filepath.Join(outputDir, fmt.Sprintf("equity_%s.csv", stamp))
	if err := csvReporter.WriteEquityCSV(result, equityPath); err != nil {
		log.Printf("⚠️  Could not write equity CSV: %v", err)
	} else {
		fmt.Printf("💾 Equity curve written to %s\n", equityPath)
	}

	xlsxPath := filepath.Join(outputDir, fmt.Sprintf("backtest_%s.xlsx", stamp))
	if err := reporting.NewExcelReporter().WriteResultXLSX(result, xlsxPath); err != nil {
		log.Printf("⚠️  Could not write Excel workbook: %v", err)
	} else {
		fmt.Printf("💾 Workbook written to %s\n", xlsxPath)
	}

	jsonPath := filepath.Join(outputDir, fmt.Sprintf("backtest_%s.json", stamp))
	if err := reporting.NewJSONReporter().WriteResultJSON(result, jsonPath); err != nil {
		log.Printf("⚠️  Could not write JSON result: %v", err)
	} else {
		fmt.Printf("💾 Result JSON written to %s\n", jsonPath)
	}
}

func runOptimization(ctx context.Context, cfg *config.RunConfig, series map[string]types.PriceSeries, flags *PortfolioFlags) {
	gridValues, _ := parseFloatList(*flags.GridValues)
	profitValues, _ := parseFloatList(*flags.ProfitValues)
	adaptiveSell := []bool{false}
	if *flags.SweepAdaptive {
		adaptiveSell = []bool{false, true}
	}
	combos := portfolio.Combinations(gridValues, profitValues, adaptiveSell)

	instruments := make([]portfolio.OptimizerInstrument, 0, len(cfg.Instruments))
	symbols := make([]string, 0, len(cfg.Instruments))
	for _, instCfg := range cfg.Instruments {
		instruments = append(instruments, portfolio.OptimizerInstrument{
			Symbol:          instCfg.Symbol,
			Series:          series[instCfg.Symbol],
			Params:          cfg.ParamsFor(instCfg),
			Beta:            instCfg.Beta,
			BetaCoefficient: cfg.BetaCoefficient,
		})
		symbols = append(symbols, instCfg.Symbol)
	}

	optimizer := portfolio.NewOptimizer(runSettings(cfg), instruments, *flags.Workers)

	if *flags.MetricsAddr != "" {
		checker := monitoring.NewStatusChecker(len(combos), symbols)
		optimizer.OnRunDone = func(res portfolio.OptimizationResult) {
			checker.RunCompleted()
			if res.Err != nil {
				checker.RecordFailure(res.Err.Error())
			}
		}
		errCh := monitoring.Serve(*flags.MetricsAddr, checker)
		go func() {
			if err := <-errCh; err != nil {
				log.Printf("⚠️  Metrics server stopped: %v", err)
			}
		}()
		fmt.Printf("📡 Metrics available at http://%s/metrics\n", *flags.MetricsAddr)
	}

	fmt.Printf("🔄 Sweeping %d combinations...\n", len(combos))

	started := time.Now()
	results, err := optimizer.Run(ctx, combos)
	if err != nil {
		monitoring.RecordRun("failed", time.Since(started).Seconds())
		monitoring.RecordError(errorCategory(err))
		log.Fatalf("❌ Optimization error: %v", err)
	}
	monitoring.RecordRun("ok", time.Since(started).Seconds())
	fmt.Printf("⏱️  Completed in %s\n", time.Since(started).Round(time.Millisecond))

	reporting.NewConsoleReporter().OutputOptimization(results, *flags.TopResults)
}
