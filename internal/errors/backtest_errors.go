package errors

import "fmt"

// ErrorCategory classifies the conditions that can prevent a backtest from
// producing a result. Recoverable conditions (order rejections, missing
// prices, beta fallbacks) are surfaced as data in the run result and never
// pass through this package.
type ErrorCategory string

const (
	// ErrorCategoryConfig marks invalid configuration rejected before the
	// run starts.
	ErrorCategoryConfig ErrorCategory = "CONFIG"

	// ErrorCategoryValidation marks invalid caller input detected during
	// setup (bad date ranges, unparsable numbers, empty series).
	ErrorCategoryValidation ErrorCategory = "VALIDATION"

	// ErrorCategoryData marks unreadable or malformed price data.
	ErrorCategoryData ErrorCategory = "DATA"

	// ErrorCategoryFatal marks an internal-consistency violation (a
	// programming defect, not a user-facing condition). The run aborts.
	ErrorCategoryFatal ErrorCategory = "FATAL"
)

// BacktestError is a categorized error with the component and operation
// where it originated, plus optional diagnostic context.
type BacktestError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface.
func (e *BacktestError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for errors.Is / errors.As chains.
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// IsFatal reports whether the error indicates an internal defect that must
// abort the run rather than a rejected input.
func (e *BacktestError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal
}

// WithContext attaches a diagnostic key/value pair to the error.
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewConfigError reports configuration rejected up front. The message must
// name the offending field.
func NewConfigError(component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  ErrorCategoryConfig,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// NewValidationError reports invalid caller input detected during setup.
func NewValidationError(component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  ErrorCategoryValidation,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// NewFatalError reports an internal-consistency violation.
func NewFatalError(component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  ErrorCategoryFatal,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// WrapDataError wraps a lower-level data loading failure.
func WrapDataError(err error, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}
	return &BacktestError{
		Category:   ErrorCategoryData,
		Component:  component,
		Operation:  operation,
		Message:    "data load failed",
		Underlying: err,
	}
}
