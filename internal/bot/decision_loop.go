package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/internal/logger"
	"github.com/ducminhle1904/equity-signal-bot/internal/monitoring"
	"github.com/ducminhle1904/equity-signal-bot/internal/notifications"
	"github.com/ducminhle1904/equity-signal-bot/internal/risk"
	"github.com/ducminhle1904/equity-signal-bot/internal/state"
	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
)

// Action is what the loop did for a symbol in one cycle
type Action string

const (
	ActionNone Action = "NONE"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Reason explains an action; it is also the orders metric label
type Reason string

const (
	ReasonStopLoss       Reason = "stop-loss"
	ReasonTakeProfit     Reason = "take-profit"
	ReasonSignalSell     Reason = "signal-sell"
	ReasonIntradayProfit Reason = "intraday-profit"
	ReasonSignalBuy      Reason = "signal-buy"
)

// PositionState is FLAT or LONG
type PositionState string

const (
	StateFlat PositionState = "FLAT"
	StateLong PositionState = "LONG"
)

// Outcome reports one symbol's evaluation
type Outcome struct {
	Symbol string
	Price  float64
	Signal strategy.Signal
	State  PositionState // state after the action
	Action Action
	Reason Reason
	Entry  float64
	PnLPct float64
	Err    error
}

// LoopConfig holds order parameters and call bounds
type LoopConfig struct {
	OrderQty    float64
	TimeInForce exchange.TimeInForce
	CallTimeout time.Duration
}

// Dependencies are the collaborators of a DecisionLoop. Notifier and
// Health are optional.
type Dependencies struct {
	Broker   exchange.BrokerGateway
	Signals  strategy.SignalProvider
	Risk     *risk.Engine
	Store    *state.PositionStore
	Logger   *logger.Logger
	Notifier notifications.Notifier
	Health   *monitoring.HealthChecker
}

// DecisionLoop runs the per-symbol FLAT/LONG state machine. A symbol is
// LONG only when the store has its entry price and the broker holds it.
type DecisionLoop struct {
	deps Dependencies
	cfg  LoopConfig
}

// NewDecisionLoop validates the wiring
func NewDecisionLoop(deps Dependencies, cfg LoopConfig) (*DecisionLoop, error) {
	if deps.Broker == nil || deps.Signals == nil || deps.Risk == nil || deps.Store == nil || deps.Logger == nil {
		return nil, boterrors.NewConfigurationError("bot", "NewDecisionLoop", "broker, signals, risk, store and logger are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NopNotifier{}
	}
	if cfg.OrderQty <= 0 {
		cfg.OrderQty = 1
	}
	if cfg.TimeInForce == "" {
		cfg.TimeInForce = exchange.TimeInForceDay
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	return &DecisionLoop{deps: deps, cfg: cfg}, nil
}

// RunCycle reconciles the store against the broker and then evaluates each
// symbol in order. It fails only when the broker's positions cannot be read
// or ctx is cancelled; per-symbol failures are reported in the outcomes.
func (l *DecisionLoop) RunCycle(ctx context.Context, symbols []string) ([]Outcome, error) {
	started := time.Now()
	defer func() { monitoring.ObserveCycle(time.Since(started)) }()

	held, err := l.brokerHoldings(ctx)
	if err != nil {
		l.recordError("GetOpenPositions", err)
		return nil, fmt.Errorf("read broker positions: %w", err)
	}
	monitoring.SetOpenPositions(len(held))

	// the store logs each dropped symbol
	if _, err := l.deps.Store.Reconcile(held); err != nil {
		l.recordError("Reconcile", err)
	}

	openCount := len(held)
	outcomes := make([]Outcome, 0, len(symbols))
	for _, raw := range symbols {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		symbol := normalizeSymbol(raw)
		if symbol == "" {
			continue
		}
		_, isHeld := held[symbol]
		out := l.evaluate(ctx, symbol, isHeld, openCount)
		switch out.Action {
		case ActionBuy:
			held[symbol] = struct{}{}
			openCount++
		case ActionSell:
			delete(held, symbol)
			openCount--
		}
		outcomes = append(outcomes, out)
	}

	if l.deps.Health != nil {
		l.deps.Health.RecordCycle(time.Now())
	}
	return outcomes, nil
}

// EvaluateSymbol runs a single symbol against a fresh broker view. It does
// not reconcile.
func (l *DecisionLoop) EvaluateSymbol(ctx context.Context, symbol string) (Outcome, error) {
	symbol = normalizeSymbol(symbol)
	held, err := l.brokerHoldings(ctx)
	if err != nil {
		l.recordError("GetOpenPositions", err)
		return Outcome{Symbol: symbol, Action: ActionNone, Err: err}, err
	}
	_, isHeld := held[symbol]
	out := l.evaluate(ctx, symbol, isHeld, len(held))
	return out, out.Err
}

// normalizeSymbol matches the spelling used by the store and the broker view
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (l *DecisionLoop) brokerHoldings(ctx context.Context) (map[string]struct{}, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	positions, err := l.deps.Broker.GetOpenPositions(callCtx)
	if err != nil {
		return nil, err
	}
	return exchange.OpenSymbols(positions), nil
}

func (l *DecisionLoop) evaluate(ctx context.Context, symbol string, held bool, openCount int) Outcome {
	out := Outcome{Symbol: symbol, Action: ActionNone, Signal: strategy.SignalHold, State: StateFlat}

	price, err := l.latestPrice(ctx, symbol)
	if err != nil {
		l.recordError("GetLatestPrice", err)
		l.deps.Logger.Error("%s: price unavailable, skipping: %v", symbol, err)
		out.Err = err
		return out
	}
	out.Price = price
	monitoring.UpdatePrice(symbol, price)

	signal, err := l.signal(ctx, symbol)
	if err != nil {
		// risk exits still apply without a signal
		l.recordError("GetSignal", err)
		l.deps.Logger.Warning("%s: signal unavailable, treating as HOLD: %v", symbol, err)
	}
	out.Signal = signal

	entry, hasEntry := l.deps.Store.GetEntry(symbol)
	out.Entry = entry

	switch {
	case hasEntry && held:
		out.State = StateLong
		l.evaluateLong(ctx, &out)

	case held:
		// held at the broker with no recorded entry: the entry price is lost
		// and is never guessed, so risk exits cannot run
		l.deps.Logger.Warning("%s: held at broker without a recorded entry price, no action", symbol)

	case signal == strategy.SignalBuy:
		if !l.deps.Risk.AllowEntry(openCount) {
			l.deps.Logger.Info("%s: BUY signal blocked, %d open position(s) (max %d)",
				symbol, openCount, l.deps.Risk.Config().MaxPositionSize)
			return out
		}
		l.enter(ctx, &out)
	}
	return out
}

// evaluateLong applies the exit rules; the first that fires wins
func (l *DecisionLoop) evaluateLong(ctx context.Context, out *Outcome) {
	entry, price := out.Entry, out.Price
	r := l.deps.Risk

	var reason Reason
	switch {
	case r.ShouldStopLoss(entry, price):
		reason = ReasonStopLoss
	case r.ShouldTakeProfit(entry, price):
		reason = ReasonTakeProfit
	case out.Signal == strategy.SignalSell:
		reason = ReasonSignalSell
	case r.ShouldTakeIntradayProfit(entry, price, r.Config().IntradayProfitPct):
		reason = ReasonIntradayProfit
	}

	out.PnLPct = risk.PnLPercent(entry, price)
	if reason == "" {
		l.deps.Logger.PnL(out.Symbol, entry, price)
		return
	}
	l.exit(ctx, out, reason)
}

func (l *DecisionLoop) enter(ctx context.Context, out *Outcome) {
	if err := l.submit(ctx, out.Symbol, exchange.OrderSideBuy); err != nil {
		out.Err = err
		return
	}

	out.Action, out.Reason, out.State = ActionBuy, ReasonSignalBuy, StateLong
	out.Entry = out.Price
	if err := l.deps.Store.RecordEntry(out.Symbol, out.Price); err != nil {
		// the order is live; reconciliation repairs the open/closed fact only
		l.recordError("RecordEntry", err)
		l.deps.Logger.Error("%s: bought but entry not persisted: %v", out.Symbol, err)
		if errors.Is(err, state.ErrDuplicateEntry) {
			out.Entry, _ = l.deps.Store.GetEntry(out.Symbol)
		}
		out.Err = err
	}
	l.report(ctx, out)
}

func (l *DecisionLoop) exit(ctx context.Context, out *Outcome, reason Reason) {
	if err := l.submit(ctx, out.Symbol, exchange.OrderSideSell); err != nil {
		out.Err = err
		return
	}

	out.Action, out.Reason, out.State = ActionSell, reason, StateFlat
	if err := l.deps.Store.ClearEntry(out.Symbol); err != nil {
		l.recordError("ClearEntry", err)
		l.deps.Logger.Error("%s: sold but entry removal not persisted: %v", out.Symbol, err)
		out.Err = err
	}
	l.report(ctx, out)
}

func (l *DecisionLoop) submit(ctx context.Context, symbol string, side exchange.OrderSide) error {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	ack, err := l.deps.Broker.SubmitMarketOrder(callCtx, exchange.OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Quantity:    l.cfg.OrderQty,
		TimeInForce: l.cfg.TimeInForce,
	})
	if err != nil {
		l.recordError("SubmitMarketOrder", err)
		l.deps.Logger.Error("%s: %s order failed: %v", symbol, side, err)
		return err
	}
	l.deps.Logger.Info("%s: %s order accepted, id %s", symbol, side, ack.OrderID)
	return nil
}

// report writes the trade record, counts the order and sends the alert
func (l *DecisionLoop) report(ctx context.Context, out *Outcome) {
	rec := logger.TradeRecord{
		Action: string(out.Action),
		Symbol: out.Symbol,
		Price:  out.Price,
		Reason: string(out.Reason),
	}

	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	acct, err := l.deps.Broker.GetAccount(callCtx)
	cancel()
	if err == nil && acct != nil {
		rec.Cash, rec.Equity = &acct.Cash, &acct.Equity
	}
	l.deps.Logger.Trade(rec)
	monitoring.RecordOrder(out.Symbol, string(out.Action), string(out.Reason))

	msg := fmt.Sprintf("%s %s @ %.2f (%s)", out.Action, out.Symbol, out.Price, out.Reason)
	if out.Action == ActionSell {
		msg += fmt.Sprintf(", %s %+.2f%%", logger.DirectionLabel(out.PnLPct), out.PnLPct)
	}
	level := notifications.LevelSuccess
	if out.Reason == ReasonStopLoss {
		level = notifications.LevelWarning
	}
	l.notify(ctx, level, msg)
}

func (l *DecisionLoop) notify(ctx context.Context, level, msg string) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()
	if err := l.deps.Notifier.SendAlert(callCtx, level, msg); err != nil {
		l.deps.Logger.Warning("notification failed: %v", err)
	}
}

func (l *DecisionLoop) latestPrice(ctx context.Context, symbol string) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()
	return l.deps.Broker.GetLatestPrice(callCtx, symbol)
}

func (l *DecisionLoop) signal(ctx context.Context, symbol string) (strategy.Signal, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()
	sig, err := l.deps.Signals.GetSignal(callCtx, symbol)
	if err != nil {
		return strategy.SignalHold, err
	}
	return sig, nil
}

func (l *DecisionLoop) recordError(operation string, err error) {
	gerr := boterrors.Categorize(err, "bot", operation)
	if l.deps.Health != nil {
		l.deps.Health.RecordError(gerr)
	} else if gerr != nil {
		monitoring.RecordError(string(gerr.Category))
	}
}
