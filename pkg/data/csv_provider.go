package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/haiminhng/stock-dca-backtest/internal/errors"
	"github.com/haiminhng/stock-dca-backtest/pkg/types"
)

// Provider loads a daily close series for one instrument.
type Provider interface {
	LoadSeries(source string) (types.PriceSeries, error)
	GetName() string
}

// CSVProvider reads {date, close} rows from a CSV file with a header
// line. Dates must be YYYY-MM-DD; rows are sorted ascending after load so
// unordered files still work.
type CSVProvider struct {
	dateColumn  int
	closeColumn int
}

// NewCSVProvider creates a provider for the default two-column layout.
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{dateColumn: 0, closeColumn: 1}
}

// NewCSVProviderWithColumns creates a provider for files that carry the
// date and close in other positions (e.g. full OHLCV exports).
func NewCSVProviderWithColumns(dateColumn, closeColumn int) *CSVProvider {
	return &CSVProvider{dateColumn: dateColumn, closeColumn: closeColumn}
}

// GetName returns the provider name.
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadSeries loads and validates one price series.
func (p *CSVProvider) LoadSeries(source string) (types.PriceSeries, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, errors.WrapDataError(err, "csv_provider", "open")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, errors.WrapDataError(fmt.Errorf("reading header of %s: %w", source, err), "csv_provider", "read")
	}

	minColumns := p.closeColumn
	if p.dateColumn > minColumns {
		minColumns = p.dateColumn
	}
	minColumns++

	var series types.PriceSeries
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapDataError(fmt.Errorf("reading %s at line %d: %w", source, line+1, err), "csv_provider", "read")
		}
		line++

		if len(record) < minColumns {
			return nil, errors.WrapDataError(
				fmt.Errorf("%s line %d: expected at least %d columns, got %d", source, line, minColumns, len(record)),
				"csv_provider", "parse")
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[p.dateColumn]))
		if err != nil {
			return nil, errors.WrapDataError(
				fmt.Errorf("%s line %d: invalid date %q", source, line, record[p.dateColumn]),
				"csv_provider", "parse")
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(record[p.closeColumn]), 64)
		if err != nil || close <= 0 {
			return nil, errors.WrapDataError(
				fmt.Errorf("%s line %d: invalid close %q", source, line, record[p.closeColumn]),
				"csv_provider", "parse")
		}

		series = append(series, types.PricePoint{Date: types.Day(date), Close: close})
	}

	if len(series) == 0 {
		return nil, errors.WrapDataError(fmt.Errorf("%s contains no price rows", source), "csv_provider", "parse")
	}
	series.Sort()
	return series, nil
}
