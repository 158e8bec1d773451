package reporting

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/haiminhng/stock-dca-backtest/internal/portfolio"
)

// JSONReporter serializes the full run result.
type JSONReporter struct{}

// NewJSONReporter creates a JSON reporter.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

// FormatResult renders the result as indented JSON.
func (r *JSONReporter) FormatResult(result *portfolio.Result) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return data, nil
}

// WriteResultJSON writes the result to path.
func (r *JSONReporter) WriteResultJSON(result *portfolio.Result, path string) error {
	data, err := r.FormatResult(result)
	if err != nil {
		return err
	}
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// PrintResult dumps the JSON result to stdout, for piping into other
// tools.
func (r *JSONReporter) PrintResult(result *portfolio.Result) error {
	data, err := r.FormatResult(result)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
