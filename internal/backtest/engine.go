package backtest

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/equity-signal-bot/internal/risk"
	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// DefaultDays is how many trailing bars a backtest replays
const DefaultDays = 90

// Exit reasons beyond the live ones
const (
	ReasonStopLoss       = "stop-loss"
	ReasonTakeProfit     = "take-profit"
	ReasonSignalSell     = "signal-sell"
	ReasonIntradayProfit = "intraday-profit"
	ReasonEndOfData      = "end-of-data"
)

// Config controls a single-symbol replay
type Config struct {
	Symbol         string
	InitialBalance float64
	Commission     float64 // fraction of notional per side
	Days           int     // trailing bars replayed; <= 0 means DefaultDays
	Risk           risk.Config
}

// BacktestEngine replays a strategy bar by bar, long-only with at most one
// position, applying the live exit rules at each daily close.
type BacktestEngine struct {
	config   Config
	strategy strategy.Strategy
	risk     *risk.Engine
}

// BacktestResults holds the outcome of one replay
type BacktestResults struct {
	Symbol        string
	Strategy      string
	StartTime     time.Time
	EndTime       time.Time
	Bars          int
	StartBalance  float64
	EndBalance    float64
	TotalReturn   float64 // fraction
	MaxDrawdown   float64 // fraction
	SharpeRatio   float64
	ProfitFactor  float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percent
	AvgPnLPct     float64
	Trades        []Trade
}

// Trade is one closed round trip
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PnL        float64
	PnLPct     float64
	Commission float64
	ExitReason string
}

// NewBacktestEngine validates the risk settings
func NewBacktestEngine(config Config, strat strategy.Strategy) (*BacktestEngine, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if config.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive, got %.2f", config.InitialBalance)
	}
	if config.Commission < 0 || config.Commission >= 1 {
		return nil, fmt.Errorf("commission must be in [0,1), got %.4f", config.Commission)
	}
	if config.Days <= 0 {
		config.Days = DefaultDays
	}
	engine, err := risk.NewEngine(config.Risk)
	if err != nil {
		return nil, err
	}
	return &BacktestEngine{config: config, strategy: strat, risk: engine}, nil
}

// Run replays the trailing Days bars of data. Earlier bars only feed the
// indicators. A position still open at the last bar is closed there.
func (b *BacktestEngine) Run(data []types.OHLCV) *BacktestResults {
	results := &BacktestResults{
		Symbol:       b.config.Symbol,
		Strategy:     b.strategy.GetName(),
		StartBalance: b.config.InitialBalance,
		EndBalance:   b.config.InitialBalance,
		Trades:       make([]Trade, 0),
	}
	if len(data) == 0 {
		return results
	}

	start := len(data) - b.config.Days
	if start < 0 {
		start = 0
	}
	results.Bars = len(data) - start
	results.StartTime = data[start].Timestamp
	results.EndTime = data[len(data)-1].Timestamp

	balance := b.config.InitialBalance
	maxValue := balance

	var open *Trade
	for i := start; i < len(data); i++ {
		price := data[i].Close
		decision, err := b.strategy.Evaluate(data[:i+1])
		signal := strategy.SignalHold
		if err == nil && decision != nil {
			signal = decision.Signal
		}

		switch {
		case open != nil:
			if reason := b.exitReason(open.EntryPrice, price, signal); reason != "" {
				balance += b.close(open, data[i].Timestamp, price, reason)
				results.Trades = append(results.Trades, *open)
				open = nil
			}
		case signal == strategy.SignalBuy && b.risk.AllowEntry(0):
			open, balance = b.open(balance, data[i].Timestamp, price)
		}

		value := balance
		if open != nil {
			value += open.Quantity * price
		}
		if value > maxValue {
			maxValue = value
		}
		if dd := (maxValue - value) / maxValue; dd > results.MaxDrawdown {
			results.MaxDrawdown = dd
		}
	}

	if open != nil {
		last := data[len(data)-1]
		balance += b.close(open, last.Timestamp, last.Close, ReasonEndOfData)
		results.Trades = append(results.Trades, *open)
	}

	results.EndBalance = balance
	results.TotalReturn = (balance - b.config.InitialBalance) / b.config.InitialBalance
	results.UpdateMetrics()
	return results
}

// exitReason applies the exit rules in priority order
func (b *BacktestEngine) exitReason(entry, price float64, signal strategy.Signal) string {
	switch {
	case b.risk.ShouldStopLoss(entry, price):
		return ReasonStopLoss
	case b.risk.ShouldTakeProfit(entry, price):
		return ReasonTakeProfit
	case signal == strategy.SignalSell:
		return ReasonSignalSell
	case b.risk.ShouldTakeIntradayProfit(entry, price, b.risk.Config().IntradayProfitPct):
		return ReasonIntradayProfit
	}
	return ""
}

// open spends the whole balance
func (b *BacktestEngine) open(balance float64, at time.Time, price float64) (*Trade, float64) {
	commission := balance * b.config.Commission
	quantity := (balance - commission) / price
	return &Trade{
		EntryTime:  at,
		EntryPrice: price,
		Quantity:   quantity,
		Commission: commission,
	}, 0
}

// close fills the exit side of t and returns the proceeds
func (b *BacktestEngine) close(t *Trade, at time.Time, price float64, reason string) float64 {
	gross := t.Quantity * price
	commission := gross * b.config.Commission
	cost := t.Quantity*t.EntryPrice + t.Commission

	t.ExitTime = at
	t.ExitPrice = price
	t.ExitReason = reason
	t.Commission += commission
	t.PnL = gross - commission - cost
	t.PnLPct = risk.PnLPercent(t.EntryPrice, price)
	return gross - commission
}
