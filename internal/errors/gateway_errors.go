package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies a failure so callers can decide how to react
type ErrorCategory string

const (
	// Fatal at startup
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryCredentials   ErrorCategory = "CREDENTIALS"

	// Per-symbol, per-cycle failures
	ErrorCategoryDataInsufficient ErrorCategory = "DATA_INSUFFICIENT"
	ErrorCategoryNetwork          ErrorCategory = "NETWORK"
	ErrorCategoryTimeout          ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit        ErrorCategory = "RATE_LIMIT"
	ErrorCategoryBroker           ErrorCategory = "BROKER"
	ErrorCategoryOrder            ErrorCategory = "ORDER"
	ErrorCategoryCircuitOpen      ErrorCategory = "CIRCUIT_OPEN"
	ErrorCategoryStorage          ErrorCategory = "STORAGE"
	ErrorCategoryUnknown          ErrorCategory = "UNKNOWN"
)

// GatewayError is the typed failure returned by broker, data and storage calls
type GatewayError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error
func (e *GatewayError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether a later cycle may succeed
func (e *GatewayError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal reports whether the process should stop
func (e *GatewayError) IsFatal() bool {
	return e.Category == ErrorCategoryConfiguration || e.Category == ErrorCategoryCredentials
}

// New creates a categorized error without an underlying cause
func New(category ErrorCategory, component, operation, message string) *GatewayError {
	return &GatewayError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// Wrap attaches a category to an existing error. Returns nil for a nil err.
func Wrap(err error, category ErrorCategory, component, operation string) *GatewayError {
	if err == nil {
		return nil
	}
	return &GatewayError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds a key/value pair to the error
func (e *GatewayError) WithContext(key string, value interface{}) *GatewayError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable overrides the retryable flag
func (e *GatewayError) WithRetryable(retryable bool) *GatewayError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryConfiguration, ErrorCategoryCredentials, ErrorCategoryDataInsufficient:
		return false
	default:
		return true
	}
}

// CategoryOf returns the category of the first GatewayError in err's chain,
// or UNKNOWN.
func CategoryOf(err error) ErrorCategory {
	var gwErr *GatewayError
	if stderrors.As(err, &gwErr) {
		return gwErr.Category
	}
	return ErrorCategoryUnknown
}

// IsCategory reports whether err carries the given category
func IsCategory(err error, category ErrorCategory) bool {
	return err != nil && CategoryOf(err) == category
}

// Categorize turns an arbitrary error into a GatewayError
func Categorize(err error, component, operation string) *GatewayError {
	if err == nil {
		return nil
	}

	var gwErr *GatewayError
	if stderrors.As(err, &gwErr) {
		return gwErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrorCategoryTimeout, component, operation)
	}
	if stderrors.Is(err, context.Canceled) {
		return Wrap(err, ErrorCategoryTimeout, component, operation).WithRetryable(false)
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return Wrap(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") || strings.Contains(errMsg, "eof") {
		return Wrap(err, ErrorCategoryNetwork, component, operation)
	}

	if strings.Contains(errMsg, "api key") || strings.Contains(errMsg, "api secret") ||
		strings.Contains(errMsg, "authentication") || strings.Contains(errMsg, "unauthorized") {
		return Wrap(err, ErrorCategoryCredentials, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return Wrap(err, ErrorCategoryRateLimit, component, operation)
	}

	if strings.Contains(errMsg, "insufficient data") || strings.Contains(errMsg, "not enough bars") {
		return Wrap(err, ErrorCategoryDataInsufficient, component, operation)
	}

	if strings.Contains(errMsg, "insufficient") || strings.Contains(errMsg, "balance") {
		return Wrap(err, ErrorCategoryOrder, component, operation).WithRetryable(false)
	}

	return Wrap(err, ErrorCategoryUnknown, component, operation)
}

func NewDataInsufficientError(component, operation string, have, need int) *GatewayError {
	return New(ErrorCategoryDataInsufficient, component, operation,
		fmt.Sprintf("insufficient data: have %d bars, need %d", have, need)).
		WithContext("have", have).
		WithContext("need", need)
}

func NewNetworkError(component, operation string, err error) *GatewayError {
	return Wrap(err, ErrorCategoryNetwork, component, operation)
}

func NewTimeoutError(component, operation string, err error) *GatewayError {
	return Wrap(err, ErrorCategoryTimeout, component, operation)
}

func NewBrokerError(component, operation string, err error) *GatewayError {
	return Wrap(err, ErrorCategoryBroker, component, operation)
}

func NewOrderError(component, operation, message string) *GatewayError {
	return New(ErrorCategoryOrder, component, operation, message).WithRetryable(false)
}

func NewStorageError(component, operation string, err error) *GatewayError {
	return Wrap(err, ErrorCategoryStorage, component, operation)
}

func NewConfigurationError(component, operation, message string) *GatewayError {
	return New(ErrorCategoryConfiguration, component, operation, message)
}

func NewCredentialsError(component, operation, message string) *GatewayError {
	return New(ErrorCategoryCredentials, component, operation, message)
}

// ErrorStats tracks error counts by category
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*GatewayError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*GatewayError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *GatewayError) {
	if err == nil {
		return
	}
	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// Last returns the most recent error, or nil
func (es *ErrorStats) Last() *GatewayError {
	if len(es.RecentErrors) == 0 {
		return nil
	}
	return es.RecentErrors[len(es.RecentErrors)-1]
}
