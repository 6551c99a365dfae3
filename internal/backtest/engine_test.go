package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/equity-signal-bot/internal/risk"
	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// scripted emits a fixed signal for the bar at a given index
type scripted map[int]strategy.Signal

func (s scripted) Evaluate(bars []types.OHLCV) (*strategy.Decision, error) {
	last := bars[len(bars)-1]
	return &strategy.Decision{Signal: s[len(bars)-1], Price: last.Close}, nil
}

func (s scripted) GetName() string { return "scripted" }

func makeBars(closes ...float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = types.OHLCV{Timestamp: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return out
}

func newEngine(t *testing.T, strat strategy.Strategy, mut func(*Config)) *BacktestEngine {
	t.Helper()
	cfg := Config{Symbol: "AAPL", InitialBalance: 1000, Risk: risk.DefaultConfig()}
	if mut != nil {
		mut(&cfg)
	}
	e, err := NewBacktestEngine(cfg, strat)
	require.NoError(t, err)
	return e
}

func TestRun_ExitReasons(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		sigs   scripted
		reason string
		pnl    float64
	}{
		{"take profit", []float64{100, 100, 106}, scripted{1: strategy.SignalBuy}, ReasonTakeProfit, 60},
		{"stop loss beats sell", []float64{100, 100, 96}, scripted{1: strategy.SignalBuy, 2: strategy.SignalSell}, ReasonStopLoss, -40},
		{"signal sell", []float64{100, 100, 100.5}, scripted{1: strategy.SignalBuy, 2: strategy.SignalSell}, ReasonSignalSell, 5},
		{"intraday profit", []float64{100, 100, 103.5}, scripted{1: strategy.SignalBuy}, ReasonIntradayProfit, 35},
		{"end of data", []float64{100, 100, 100.5}, scripted{1: strategy.SignalBuy}, ReasonEndOfData, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newEngine(t, tt.sigs, nil).Run(makeBars(tt.closes...))
			require.Len(t, res.Trades, 1)
			assert.Equal(t, tt.reason, res.Trades[0].ExitReason)
			assert.InDelta(t, tt.pnl, res.Trades[0].PnL, 1e-9)
			assert.InDelta(t, 1000+tt.pnl, res.EndBalance, 1e-9)
		})
	}
}

func TestRun_NoSecondEntryWhileHolding(t *testing.T) {
	sigs := scripted{0: strategy.SignalBuy, 1: strategy.SignalBuy, 2: strategy.SignalBuy}
	res := newEngine(t, sigs, nil).Run(makeBars(100, 100.2, 100.4))

	require.Len(t, res.Trades, 1)
	assert.Equal(t, 100.0, res.Trades[0].EntryPrice)
	assert.InDelta(t, 10.0, res.Trades[0].Quantity, 1e-9)
}

func TestRun_ReentersAfterExit(t *testing.T) {
	sigs := scripted{0: strategy.SignalBuy, 2: strategy.SignalBuy}
	res := newEngine(t, sigs, nil).Run(makeBars(100, 96, 96, 98))

	require.Len(t, res.Trades, 2)
	assert.Equal(t, ReasonStopLoss, res.Trades[0].ExitReason)
	assert.Equal(t, ReasonIntradayProfit, res.Trades[1].ExitReason)
	assert.Equal(t, 1, res.WinningTrades)
	assert.Equal(t, 1, res.LosingTrades)
	assert.InDelta(t, 50.0, res.WinRate, 1e-9)
}

func TestRun_Commission(t *testing.T) {
	sigs := scripted{0: strategy.SignalBuy, 1: strategy.SignalSell}
	res := newEngine(t, sigs, func(c *Config) { c.Commission = 0.01 }).Run(makeBars(100, 100.5))

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.InDelta(t, 9.9, tr.Quantity, 1e-9)
	assert.InDelta(t, 10+9.9495, tr.Commission, 1e-9)
	assert.InDelta(t, -14.9995, tr.PnL, 1e-9)
	assert.InDelta(t, 985.0005, res.EndBalance, 1e-9)
	assert.InDelta(t, 0.5, tr.PnLPct, 1e-9)
}

func TestRun_ReplaysOnlyTrailingDays(t *testing.T) {
	// the early buy falls outside the window
	sigs := scripted{0: strategy.SignalBuy, 8: strategy.SignalBuy}
	res := newEngine(t, sigs, func(c *Config) { c.Days = 3 }).Run(makeBars(100, 100, 100, 100, 100, 100, 100, 100, 100, 100))

	assert.Equal(t, 3, res.Bars)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), res.StartTime)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), res.Trades[0].EntryTime)
}

func TestRun_EmptyData(t *testing.T) {
	res := newEngine(t, scripted{}, nil).Run(nil)
	assert.Equal(t, 1000.0, res.EndBalance)
	assert.Zero(t, res.TotalTrades)
}

func TestRun_MaxDrawdown(t *testing.T) {
	sigs := scripted{0: strategy.SignalBuy}
	res := newEngine(t, sigs, func(c *Config) { c.Risk.StopLossPct = 0.5 }).Run(makeBars(100, 98, 99))
	assert.InDelta(t, 0.02, res.MaxDrawdown, 1e-9)
}

func TestRun_HybridOnFlatSeriesNeverTrades(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 50
	}
	strat, ok := strategy.New("hybrid")
	require.True(t, ok)

	res := newEngine(t, strat, nil).Run(makeBars(closes...))
	assert.Empty(t, res.Trades)
	assert.Equal(t, "hybrid", res.Strategy)
}

func TestNewBacktestEngine_Validation(t *testing.T) {
	_, err := NewBacktestEngine(Config{InitialBalance: 0, Risk: risk.DefaultConfig()}, scripted{})
	assert.Error(t, err)
	_, err = NewBacktestEngine(Config{InitialBalance: 100, Commission: 1, Risk: risk.DefaultConfig()}, scripted{})
	assert.Error(t, err)
	_, err = NewBacktestEngine(Config{InitialBalance: 100}, scripted{})
	assert.Error(t, err, "zero risk config is invalid")
	_, err = NewBacktestEngine(Config{InitialBalance: 100, Risk: risk.DefaultConfig()}, nil)
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	res := &BacktestResults{Trades: []Trade{
		{EntryPrice: 100, ExitPrice: 110, PnL: 100, PnLPct: 10, ExitReason: ReasonTakeProfit},
		{EntryPrice: 100, ExitPrice: 95, PnL: -50, PnLPct: -5, ExitReason: ReasonStopLoss},
		{EntryPrice: 100, ExitPrice: 102, PnL: 20, PnLPct: 2, ExitReason: ReasonTakeProfit},
	}}
	res.UpdateMetrics()

	assert.Equal(t, 3, res.TotalTrades)
	assert.InDelta(t, 66.666, res.WinRate, 1e-2)
	assert.InDelta(t, 7.0/3, res.AvgPnLPct, 1e-9)
	assert.InDelta(t, 2.4, res.ProfitFactor, 1e-9)
	assert.Greater(t, res.SharpeRatio, 0.0)
	assert.Equal(t, map[string]int{ReasonTakeProfit: 2, ReasonStopLoss: 1}, res.ExitReasons())
}

func TestMetrics_AllWinnersHaveInfiniteProfitFactor(t *testing.T) {
	res := &BacktestResults{Trades: []Trade{{EntryPrice: 100, ExitPrice: 101, PnL: 10}}}
	assert.True(t, math.IsInf(res.CalculateProfitFactor(), 1))
	assert.Zero(t, res.CalculateSharpeRatio())
	assert.Zero(t, (&BacktestResults{}).CalculateWinRate())
}

func TestWorkerPool_RunsEveryJob(t *testing.T) {
	jobs := []BacktestJob{
		{Config: Config{Symbol: "MSFT", InitialBalance: 1000, Risk: risk.DefaultConfig()}, Data: makeBars(100, 100, 106), Strategy: scripted{1: strategy.SignalBuy}},
		{Config: Config{Symbol: "AAPL", InitialBalance: 1000, Risk: risk.DefaultConfig()}, Data: makeBars(100, 100), Strategy: scripted{}},
		{Config: Config{Symbol: "BAD", InitialBalance: -1}, Strategy: scripted{}},
	}

	results := NewWorkerPool(2).Run(context.Background(), jobs)
	require.Len(t, results, 3)

	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Empty(t, results[0].Results.Trades)
	assert.Equal(t, "BAD", results[1].Symbol)
	assert.Error(t, results[1].Error)
	assert.Equal(t, "MSFT", results[2].Symbol)
	assert.Len(t, results[2].Results.Trades, 1)
}
