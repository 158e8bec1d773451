package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/haiminhng/stock-dca-backtest/internal/portfolio"
)

// CSVReporter writes the realized-trade log and the equity curve to CSV
// files.
type CSVReporter struct{}

// NewCSVReporter creates a CSV reporter.
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

// WriteTradesCSV writes one row per realized lot sale.
func (r *CSVReporter) WriteTradesCSV(result *portfolio.Result, path string) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"symbol", "entry_date", "exit_date", "entry_price", "exit_price", "shares", "pnl"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, trade := range result.Trades {
		row := []string{
			trade.Symbol,
			trade.EntryDate.Format("2006-01-02"),
			trade.ExitDate.Format("2006-01-02"),
			formatFloat(trade.EntryPrice),
			formatFloat(trade.ExitPrice),
			formatFloat(trade.Shares),
			formatFloat(trade.PnL),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write trade row: %w", err)
		}
	}
	return w.Error()
}

// WriteEquityCSV writes the daily snapshot sequence.
func (r *CSVReporter) WriteEquityCSV(result *portfolio.Result, path string) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := []string{"date", "cash_reserve", "deployed_capital", "total_value"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, snap := range result.Snapshots {
		row := []string{
			snap.Date.Format("2006-01-02"),
			formatFloat(snap.CashReserve),
			formatFloat(snap.DeployedCapital),
			formatFloat(snap.TotalPortfolioValue),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}
	return w.Error()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
