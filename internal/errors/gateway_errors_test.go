package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorCategoryNetwork, "bybit", "GetLatestPrice"))
}

func TestGatewayError_UnwrapAndCategory(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := NewNetworkError("bybit", "GetLatestPrice", cause)

	wrapped := fmt.Errorf("evaluate AAPL: %w", err)

	assert.True(t, stderrors.Is(wrapped, cause))
	assert.Equal(t, ErrorCategoryNetwork, CategoryOf(wrapped))
	assert.True(t, IsCategory(wrapped, ErrorCategoryNetwork))
	assert.False(t, IsCategory(wrapped, ErrorCategoryDataInsufficient))
	assert.True(t, err.IsRetryable())
	assert.Contains(t, err.Error(), "NETWORK")
}

func TestCategoryOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCategoryUnknown, CategoryOf(fmt.Errorf("boom")))
	assert.False(t, IsCategory(nil, ErrorCategoryUnknown))
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCategory
	}{
		{"deadline", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"wrapped deadline", fmt.Errorf("get price: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"connection", fmt.Errorf("connection reset by peer"), ErrorCategoryNetwork},
		{"auth", fmt.Errorf("invalid api key"), ErrorCategoryCredentials},
		{"rate", fmt.Errorf("Too Many Requests"), ErrorCategoryRateLimit},
		{"bars", fmt.Errorf("insufficient data for RSI"), ErrorCategoryDataInsufficient},
		{"cash", fmt.Errorf("insufficient cash"), ErrorCategoryOrder},
		{"other", fmt.Errorf("something odd"), ErrorCategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err, "test", "op")
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.Category)
		})
	}
}

func TestCategorize_KeepsExistingGatewayError(t *testing.T) {
	orig := NewOrderError("paper", "SubmitMarketOrder", "already holding AAPL")
	got := Categorize(fmt.Errorf("outer: %w", orig), "bot", "evaluate")
	assert.Same(t, orig, got)
}

func TestDataInsufficientError(t *testing.T) {
	err := NewDataInsufficientError("strategy", "GetSignal", 10, 15)
	assert.False(t, err.IsRetryable())
	assert.False(t, err.IsFatal())
	assert.Equal(t, 10, err.Context["have"])
	assert.Contains(t, err.Error(), "have 10 bars, need 15")
}

func TestIsFatal(t *testing.T) {
	assert.True(t, NewConfigurationError("config", "validate", "bad").IsFatal())
	assert.True(t, NewCredentialsError("bybit", "connect", "missing key").IsFatal())
	assert.False(t, NewStorageError("state", "save", fmt.Errorf("disk full")).IsFatal())
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	assert.Nil(t, stats.Last())

	stats.RecordError(NewNetworkError("a", "b", fmt.Errorf("x")))
	stats.RecordError(NewTimeoutError("a", "b", fmt.Errorf("y")))
	stats.RecordError(NewNetworkError("a", "b", fmt.Errorf("z")))
	stats.RecordError(nil)

	assert.Equal(t, 3, stats.TotalErrors)
	assert.Equal(t, 2, stats.ErrorsByCategory[ErrorCategoryNetwork])
	assert.Len(t, stats.RecentErrors, 2)
	assert.Equal(t, ErrorCategoryNetwork, stats.Last().Category)
}
