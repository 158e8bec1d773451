package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/haiminhng/stock-dca-backtest/internal/portfolio"
)

// ExcelReporter writes a multi-sheet workbook with the run summary, the
// per-instrument breakdown, the realized trades and the equity curve.
type ExcelReporter struct{}

// NewExcelReporter creates an Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	currency int
	percent  int
}

// WriteResultXLSX writes the workbook to path.
func (r *ExcelReporter) WriteResultXLSX(result *portfolio.Result, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const instrumentsSheet = "Instruments"
	const tradesSheet = "Trades"
	const equitySheet = "Equity Curve"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(instrumentsSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, result, styles); err != nil {
		return err
	}
	if err := r.writeInstrumentsSheet(fx, instrumentsSheet, result, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, result, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return styles, err
	}
	styles.currency, err = fx.NewStyle(&excelize.Style{NumFmt: 177}) // $#,##0.00
	if err != nil {
		return styles, err
	}
	styles.percent, err = fx.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, result *portfolio.Result, styles excelStyles) error {
	m := result.Metrics
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Final Value", result.FinalValue()},
		{"Cash Reserve", result.Ledger.CashReserve},
		{"Deployed Capital", result.Ledger.DeployedCapital},
		{"Total Return", m.TotalReturn},
		{"CAGR", m.CAGR},
		{"Max Drawdown", m.MaxDrawdown},
		{"Max Drawdown Days", m.MaxDrawdownDays},
		{"Volatility", m.Volatility},
		{"Sharpe Ratio", m.SharpeRatio},
		{"Sortino Ratio", m.SortinoRatio},
		{"Profit Factor", m.ProfitFactor},
		{"Win Rate %", m.WinRate},
		{"Suitability Score", m.SuitabilityScore},
		{"Realized Trades", len(result.Trades)},
		{"Rejected Orders", len(result.Rejections)},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetRowStyle(sheet, 1, 1, styles.header)
}

func (r *ExcelReporter) writeInstrumentsSheet(fx *excelize.File, sheet string, result *portfolio.Result, styles excelStyles) error {
	header := []interface{}{"Symbol", "Open Lots", "Avg Cost", "Final Price", "Market Value",
		"Capital Deployed", "Realized P&L", "Unrealized P&L", "Buys", "Sells", "Skipped Days", "Beta", "Beta Fallback", "Profile"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, inst := range result.Instruments {
		row := []interface{}{inst.Symbol, len(inst.Lots), inst.AverageCost, inst.FinalPrice, inst.MarketValue,
			inst.CapitalDeployed, inst.RealizedPnL, inst.UnrealizedPnL, inst.Buys, inst.Sells,
			inst.SkippedDays, inst.Beta, inst.BetaFallback, inst.Profile}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetRowStyle(sheet, 1, 1, styles.header)
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, result *portfolio.Result, styles excelStyles) error {
	header := []interface{}{"Symbol", "Entry Date", "Exit Date", "Entry Price", "Exit Price", "Shares", "P&L"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, trade := range result.Trades {
		row := []interface{}{
			trade.Symbol,
			trade.EntryDate.Format("2006-01-02"),
			trade.ExitDate.Format("2006-01-02"),
			trade.EntryPrice,
			trade.ExitPrice,
			trade.Shares,
			trade.PnL,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetRowStyle(sheet, 1, 1, styles.header)
}

func (r *ExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, result *portfolio.Result, styles excelStyles) error {
	header := []interface{}{"Date", "Cash Reserve", "Deployed Capital", "Total Value"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, snap := range result.Snapshots {
		row := []interface{}{
			snap.Date.Format("2006-01-02"),
			snap.CashReserve,
			snap.DeployedCapital,
			snap.TotalPortfolioValue,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return fx.SetRowStyle(sheet, 1, 1, styles.header)
}
