package exchange

import (
	"context"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/safety"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// GuardConfig bounds every outbound call
type GuardConfig struct {
	CallTimeout      time.Duration
	RequestsPerSec   float64
	Burst            int
	FailureThreshold uint32
	OpenTimeout      time.Duration
	// OnStateChange is told about circuit transitions, keyed by operation name
	OnStateChange func(name string, from, to safety.CircuitBreakerState)
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 15 * time.Second
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 10
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = time.Minute
	}
	return c
}

// guard applies rate limiting, a circuit breaker per operation and a hard
// deadline to each call. A call that ignores ctx is abandoned at the deadline.
type guard struct {
	component string
	timeout   time.Duration
	limiter   *safety.RateLimiter
	breakers  *safety.CircuitBreakerManager
}

func newGuard(component string, cfg GuardConfig) *guard {
	cfg = cfg.withDefaults()
	return &guard{
		component: component,
		timeout:   cfg.CallTimeout,
		limiter:   safety.NewRateLimiter(component, cfg.Burst, cfg.RequestsPerSec),
		breakers: safety.NewCircuitBreakerManager(safety.CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			Timeout:          cfg.OpenTimeout,
			ShouldTrip:       tripsCircuit,
		}, cfg.OnStateChange),
	}
}

// tripsCircuit counts infrastructure failures only; business rejections and
// short history say nothing about the dependency's health.
func tripsCircuit(err error) bool {
	switch boterrors.CategoryOf(err) {
	case boterrors.ErrorCategoryDataInsufficient, boterrors.ErrorCategoryOrder:
		return false
	}
	return true
}

func (g *guard) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return boterrors.Categorize(err, g.component, op)
	}

	err := g.breakers.GetOrCreate(op).Call(func() error {
		done := make(chan error, 1)
		go func() { done <- fn(ctx) }()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return boterrors.NewTimeoutError(g.component, op, ctx.Err())
		}
	})
	if err != nil {
		return boterrors.Categorize(err, g.component, op)
	}
	return nil
}

// Guarded wraps a BrokerGateway with the call guard
type Guarded struct {
	inner BrokerGateway
	guard *guard
}

// NewGuarded wraps inner
func NewGuarded(inner BrokerGateway, cfg GuardConfig) *Guarded {
	return &Guarded{inner: inner, guard: newGuard(inner.GetName(), cfg)}
}

func (g *Guarded) GetName() string {
	return g.inner.GetName()
}

// OpenCircuits lists operations whose breaker is open
func (g *Guarded) OpenCircuits() []string {
	return g.guard.breakers.OpenCircuits()
}

func (g *Guarded) GetOpenPositions(ctx context.Context) ([]Position, error) {
	var out []Position
	err := g.guard.call(ctx, "GetOpenPositions", func(ctx context.Context) error {
		var err error
		out, err = g.inner.GetOpenPositions(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Guarded) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := g.guard.call(ctx, "GetLatestPrice", func(ctx context.Context) error {
		var err error
		price, err = g.inner.GetLatestPrice(ctx, symbol)
		if err != nil {
			return err
		}
		return priceErr(g.guard.component, symbol, price)
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

func (g *Guarded) SubmitMarketOrder(ctx context.Context, req OrderRequest) (*OrderAck, error) {
	if res := safety.ValidateSymbol(req.Symbol); !res.Valid {
		return nil, boterrors.NewOrderError(g.guard.component, "SubmitMarketOrder", res.Message)
	}
	if res := safety.ValidateQuantity(req.Quantity, req.Symbol); !res.Valid {
		return nil, boterrors.NewOrderError(g.guard.component, "SubmitMarketOrder", res.Message)
	}

	var ack *OrderAck
	err := g.guard.call(ctx, "SubmitMarketOrder", func(ctx context.Context) error {
		var err error
		ack, err = g.inner.SubmitMarketOrder(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ack, nil
}

func (g *Guarded) GetAccount(ctx context.Context) (*types.Account, error) {
	var acct *types.Account
	err := g.guard.call(ctx, "GetAccount", func(ctx context.Context) error {
		var err error
		acct, err = g.inner.GetAccount(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// GuardedMarketData wraps a MarketData source with the call guard
type GuardedMarketData struct {
	inner MarketData
	guard *guard
}

// NewGuardedMarketData wraps inner under the given component name
func NewGuardedMarketData(component string, inner MarketData, cfg GuardConfig) *GuardedMarketData {
	return &GuardedMarketData{inner: inner, guard: newGuard(component, cfg)}
}

// OpenCircuits lists operations whose breaker is open
func (m *GuardedMarketData) OpenCircuits() []string {
	return m.guard.breakers.OpenCircuits()
}

func (m *GuardedMarketData) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := m.guard.call(ctx, "GetLatestPrice", func(ctx context.Context) error {
		var err error
		price, err = m.inner.GetLatestPrice(ctx, symbol)
		if err != nil {
			return err
		}
		return priceErr(m.guard.component, symbol, price)
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

func (m *GuardedMarketData) GetDailyBars(ctx context.Context, symbol string, days int) ([]types.OHLCV, error) {
	var bars []types.OHLCV
	err := m.guard.call(ctx, "GetDailyBars", func(ctx context.Context) error {
		var err error
		bars, err = m.inner.GetDailyBars(ctx, symbol, days)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

func priceErr(component, symbol string, price float64) error {
	if res := safety.ValidatePrice(price, symbol); !res.Valid {
		return boterrors.New(boterrors.ErrorCategoryBroker, component, "GetLatestPrice", res.Message)
	}
	return nil
}
