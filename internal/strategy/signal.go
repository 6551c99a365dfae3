package strategy

import (
	"context"
	"strings"

	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// Signal is a fresh BUY/SELL/HOLD recommendation
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// MinBars is the history below which every strategy holds
const MinBars = 15

// DefaultHistoryDays is the calendar-day lookback requested from a BarSource
const DefaultHistoryDays = 60

// Decision is the outcome of evaluating a strategy on a bar series
type Decision struct {
	Signal Signal
	Price  float64
	Reason string
}

// Strategy turns daily bars (oldest first) into a Decision. Implementations
// hold no state across calls.
type Strategy interface {
	Evaluate(bars []types.OHLCV) (*Decision, error)
	GetName() string
}

// BarSource provides daily history
type BarSource interface {
	GetDailyBars(ctx context.Context, symbol string, days int) ([]types.OHLCV, error)
}

// SignalProvider is what the decision loop consumes
type SignalProvider interface {
	GetSignal(ctx context.Context, symbol string) (Signal, error)
}

// New returns the strategy registered under name. Unknown names fall back
// to hybrid and report ok=false.
func New(name string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hybrid":
		return NewHybrid(), true
	case "rsi":
		return NewRSIStrategy(), true
	case "sma":
		return NewSMAStrategy(), true
	default:
		return NewHybrid(), false
	}
}

// Names lists the registered strategies
func Names() []string {
	return []string{"hybrid", "rsi", "sma"}
}
