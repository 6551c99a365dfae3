package bot

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/internal/logger"
	"github.com/ducminhle1904/equity-signal-bot/internal/risk"
	"github.com/ducminhle1904/equity-signal-bot/internal/state"
	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

type fakeBroker struct {
	mu           sync.Mutex
	prices       map[string]float64
	holdings     map[string]float64 // symbol -> broker avg entry
	positionsErr error
	priceErr     map[string]error
	orderErr     error
	orders       []exchange.OrderRequest
	positionsHit int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		prices:   make(map[string]float64),
		holdings: make(map[string]float64),
		priceErr: make(map[string]error),
	}
}

func (b *fakeBroker) GetName() string { return "fake" }

func (b *fakeBroker) GetOpenPositions(ctx context.Context) ([]exchange.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positionsHit++
	if b.positionsErr != nil {
		return nil, b.positionsErr
	}
	var out []exchange.Position
	for sym, avg := range b.holdings {
		out = append(out, exchange.Position{Symbol: sym, Quantity: 1, AvgEntry: avg, CurrentPrice: b.prices[sym]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (b *fakeBroker) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.priceErr[symbol]; err != nil {
		return 0, err
	}
	price, ok := b.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return price, nil
}

func (b *fakeBroker) SubmitMarketOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderAck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.orderErr != nil {
		return nil, b.orderErr
	}
	b.orders = append(b.orders, req)
	switch req.Side {
	case exchange.OrderSideBuy:
		b.holdings[req.Symbol] = b.prices[req.Symbol]
	case exchange.OrderSideSell:
		delete(b.holdings, req.Symbol)
	}
	return &exchange.OrderAck{OrderID: fmt.Sprintf("ord-%d", len(b.orders)), Symbol: req.Symbol, Side: req.Side, Quantity: req.Quantity}, nil
}

func (b *fakeBroker) GetAccount(ctx context.Context) (*types.Account, error) {
	return &types.Account{Cash: 1000, Equity: 1500, Currency: "USD"}, nil
}

type fakeSignals struct {
	mu      sync.Mutex
	signals map[string]strategy.Signal
	errs    map[string]error
	calls   int
}

func newFakeSignals() *fakeSignals {
	return &fakeSignals{signals: make(map[string]strategy.Signal), errs: make(map[string]error)}
}

func (f *fakeSignals) GetSignal(ctx context.Context, symbol string) (strategy.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[symbol]; err != nil {
		return strategy.SignalHold, err
	}
	return f.signals[symbol], nil
}

type harness struct {
	broker  *fakeBroker
	signals *fakeSignals
	store   *state.PositionStore
	log     *logger.Logger
	loop    *DecisionLoop
}

func newHarness(t *testing.T, riskCfg risk.Config) *harness {
	t.Helper()
	dir := t.TempDir()

	log, err := logger.NewLogger(logger.Config{Dir: filepath.Join(dir, "logs"), KeepDays: 15, Console: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	engine, err := risk.NewEngine(riskCfg)
	require.NoError(t, err)

	h := &harness{
		broker:  newFakeBroker(),
		signals: newFakeSignals(),
		store:   state.NewPositionStore(state.NewFileKV(filepath.Join(dir, "entries.json"), false), log),
		log:     log,
	}
	h.loop, err = NewDecisionLoop(Dependencies{
		Broker:  h.broker,
		Signals: h.signals,
		Risk:    engine,
		Store:   h.store,
		Logger:  log,
	}, LoopConfig{OrderQty: 1, TimeInForce: exchange.TimeInForceDay, CallTimeout: time.Second})
	require.NoError(t, err)
	return h
}

// long puts symbol in a LONG state at entry
func (h *harness) long(t *testing.T, symbol string, entry float64) {
	t.Helper()
	h.broker.holdings[symbol] = entry
	require.NoError(t, h.store.RecordEntry(symbol, entry))
}
