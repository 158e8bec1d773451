package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// PortfolioFlags holds all command line flags for the portfolio backtest command
type PortfolioFlags struct {
	// Configuration
	ConfigFile *string
	EnvFile    *string

	// Optimization options
	Optimize      *bool
	GridValues    *string // Comma-separated grid spacings to sweep
	ProfitValues  *string // Comma-separated profit targets to sweep
	SweepAdaptive *bool   // Also sweep adaptive sell on/off
	Workers       *int
	TopResults    *int

	// Output options
	OutputDir   *string
	ConsoleOnly *bool
	PrintJSON   *bool

	// Monitoring
	MetricsAddr *string

	// Help and version
	ShowVersion *bool
	ShowHelp    *bool
}

// NewPortfolioFlags creates and registers all command line flags
func NewPortfolioFlags() *PortfolioFlags {
	return &PortfolioFlags{
		// Configuration
		ConfigFile: flag.String("config", "", "Path to portfolio configuration file (required)"),
		EnvFile:    flag.String("env", ".env", "Path to environment file"),

		// Optimization options
		Optimize:      flag.Bool("optimize", false, "Run a parameter sweep instead of a single backtest"),
		GridValues:    flag.String("grid-values", "0.03,0.05,0.08,0.10", "Grid spacings to sweep (comma-separated)"),
		ProfitValues:  flag.String("profit-values", "0.03,0.05,0.08", "Profit targets to sweep (comma-separated)"),
		SweepAdaptive: flag.Bool("sweep-adaptive", false, "Sweep adaptive sell on and off"),
		Workers:       flag.Int("workers", 0, "Sweep worker count (0 = all CPUs)"),
		TopResults:    flag.Int("top", DefaultTopResults, "Number of sweep results to display"),

		// Output options
		OutputDir:   flag.String("output", DefaultOutputDir, "Directory for result files"),
		ConsoleOnly: flag.Bool("console-only", false, "Skip writing result files"),
		PrintJSON:   flag.Bool("json", false, "Print the full result as JSON to stdout"),

		// Monitoring
		MetricsAddr: flag.String("metrics-addr", "", "Expose /metrics and /healthz on this address (e.g. :9090)"),

		// Help and version
		ShowVersion: flag.Bool("version", false, "Show version information"),
		ShowHelp:    flag.Bool("help", false, "Show detailed help"),
	}
}

// ValidatePortfolioFlags checks flag combinations before any work starts
func ValidatePortfolioFlags(flags *PortfolioFlags) error {
	if *flags.ShowVersion || *flags.ShowHelp {
		return nil
	}
	if *flags.ConfigFile == "" {
		return fmt.Errorf("missing required -config flag")
	}
	if *flags.Workers < 0 {
		return fmt.Errorf("invalid -workers value %d", *flags.Workers)
	}
	if *flags.TopResults < 0 {
		return fmt.Errorf("invalid -top value %d", *flags.TopResults)
	}
	if *flags.Optimize {
		if _, err := parseFloatList(*flags.GridValues); err != nil {
			return fmt.Errorf("invalid -grid-values: %w", err)
		}
		if _, err := parseFloatList(*flags.ProfitValues); err != nil {
			return fmt.Errorf("invalid -profit-values: %w", err)
		}
	}
	return nil
}

// PrintUsageExamples prints common invocations
func PrintUsageExamples() {
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Single portfolio backtest")
	fmt.Println("  portfolio-backtest -config tech_portfolio.json")
	fmt.Println()
	fmt.Println("  # Parameter sweep with 8 workers, show top 10")
	fmt.Println("  portfolio-backtest -config tech_portfolio.json -optimize -workers 8 -top 10")
	fmt.Println()
	fmt.Println("  # Console output only, no result files")
	fmt.Println("  portfolio-backtest -config tech_portfolio.json -console-only")
	fmt.Println()
}

func parseFloatList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", part)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return values, nil
}
