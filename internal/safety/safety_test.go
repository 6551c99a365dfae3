package safety

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("price", CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Minute})
	cb.now = func() time.Time { return clock }

	var transitions []string
	cb.SetStateChangeCallback(func(name string, from, to CircuitBreakerState) {
		transitions = append(transitions, fmt.Sprintf("%s:%s->%s", name, from, to))
	})

	fail := func() error { return fmt.Errorf("connection refused") }
	assert.Error(t, cb.Call(fail))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Error(t, cb.Call(fail))
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.False(t, called)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryCircuitOpen))

	clock = clock.Add(61 * time.Second)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())

	assert.Equal(t, []string{
		"price:CLOSED->OPEN",
		"price:OPEN->HALF_OPEN",
		"price:HALF_OPEN->CLOSED",
	}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("orders", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Minute})
	cb.now = func() time.Time { return clock }

	_ = cb.Call(func() error { return fmt.Errorf("boom") })
	clock = clock.Add(2 * time.Minute)
	_ = cb.Call(func() error { return fmt.Errorf("boom again") })

	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_ShouldTripFiltersErrors(t *testing.T) {
	cb := NewCircuitBreaker("bars", CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip: func(err error) bool {
			return !boterrors.IsCategory(err, boterrors.ErrorCategoryDataInsufficient)
		},
	})

	err := cb.Call(func() error { return boterrors.NewDataInsufficientError("s", "op", 3, 15) })
	assert.Error(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker("x", CircuitBreakerConfig{FailureThreshold: 1})
	_ = cb.Call(func() error { return fmt.Errorf("boom") })
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreakerManager(t *testing.T) {
	m := NewCircuitBreakerManager(CircuitBreakerConfig{FailureThreshold: 1}, nil)

	a := m.GetOrCreate("GetLatestPrice")
	assert.Same(t, a, m.GetOrCreate("GetLatestPrice"))

	_ = a.Call(func() error { return fmt.Errorf("boom") })
	assert.Equal(t, []string{"GetLatestPrice"}, m.OpenCircuits())
}

func TestRateLimiter_AllowAndRefill(t *testing.T) {
	clock := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter("bybit", 2, 1)
	rl.now = func() time.Time { return clock }
	rl.lastRefill = clock

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	clock = clock.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter("slow", 1, 0.001)
	require.True(t, rl.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_WaitReturnsImmediatelyWhenTokenAvailable(t *testing.T) {
	rl := NewRateLimiter("fast", 5, 5)
	assert.NoError(t, rl.Wait(context.Background()))
}

func TestValidation(t *testing.T) {
	assert.True(t, ValidatePrice(101.5, "AAPL").Valid)
	assert.False(t, ValidatePrice(0, "AAPL").Valid)
	assert.False(t, ValidatePrice(math.NaN(), "AAPL").Valid)
	assert.Equal(t, "INVALID_PRICE_INF", ValidatePrice(math.Inf(1), "AAPL").Code)

	assert.True(t, ValidateQuantity(1, "AAPL").Valid)
	assert.False(t, ValidateQuantity(-1, "AAPL").Valid)
	assert.Error(t, ValidateQuantity(0, "AAPL").Err())
	assert.NoError(t, ValidateQuantity(3, "AAPL").Err())

	assert.True(t, ValidateSymbol("F").Valid)
	assert.True(t, ValidateSymbol("BRK.B").Valid)
	assert.True(t, ValidateSymbol("BTCUSDT").Valid)
	assert.False(t, ValidateSymbol("").Valid)
	assert.False(t, ValidateSymbol("AA PL").Valid)
}
