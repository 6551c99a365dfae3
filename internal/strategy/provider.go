package strategy

import (
	"context"
	"fmt"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
)

// BarProvider is a SignalProvider that evaluates a Strategy over bars
// fetched from a BarSource.
type BarProvider struct {
	source      BarSource
	strategy    Strategy
	historyDays int
}

// NewBarProvider wires a strategy to its data. historyDays <= 0 uses the default.
func NewBarProvider(source BarSource, strategy Strategy, historyDays int) *BarProvider {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &BarProvider{
		source:      source,
		strategy:    strategy,
		historyDays: historyDays,
	}
}

// Strategy returns the wrapped strategy
func (p *BarProvider) Strategy() Strategy {
	return p.strategy
}

// GetSignal returns HOLD when history is short, whether the source reports
// it as an error or returns too few bars.
func (p *BarProvider) GetSignal(ctx context.Context, symbol string) (Signal, error) {
	decision, err := p.Evaluate(ctx, symbol)
	if err != nil {
		return SignalHold, err
	}
	return decision.Signal, nil
}

// Evaluate returns the full decision including the indicator summary
func (p *BarProvider) Evaluate(ctx context.Context, symbol string) (*Decision, error) {
	bars, err := p.source.GetDailyBars(ctx, symbol, p.historyDays)
	if err != nil {
		if boterrors.IsCategory(err, boterrors.ErrorCategoryDataInsufficient) {
			return hold(0, err.Error()), nil
		}
		return nil, fmt.Errorf("bars for %s: %w", symbol, err)
	}

	decision, err := p.strategy.Evaluate(bars)
	if err != nil {
		return nil, fmt.Errorf("%s strategy on %s: %w", p.strategy.GetName(), symbol, err)
	}
	return decision, nil
}
