// Package paper simulates a cash account that fills market orders at the
// latest price of a MarketData source.
package paper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type holding struct {
	qty      decimal.Decimal
	avgEntry decimal.Decimal
}

// Fill is one executed paper order
type Fill struct {
	OrderID     string
	Symbol      string
	Side        exchange.OrderSide
	Quantity    float64
	Price       float64
	RealizedPnL float64
}

// Broker is an in-memory long-only broker. It holds at most one position per
// symbol; state is lost on restart.
type Broker struct {
	market exchange.MarketData

	mu       sync.Mutex
	cash     decimal.Decimal
	holdings map[string]*holding
	realized decimal.Decimal
	fills    []Fill
}

// NewBroker starts with startingCash and prices from market
func NewBroker(market exchange.MarketData, startingCash float64) *Broker {
	return &Broker{
		market:   market,
		cash:     decimal.NewFromFloat(startingCash),
		holdings: make(map[string]*holding),
	}
}

func (b *Broker) GetName() string {
	return "paper"
}

// GetLatestPrice delegates to the market data source
func (b *Broker) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	return b.market.GetLatestPrice(ctx, strings.ToUpper(symbol))
}

// GetDailyBars delegates to the market data source
func (b *Broker) GetDailyBars(ctx context.Context, symbol string, days int) ([]types.OHLCV, error) {
	return b.market.GetDailyBars(ctx, strings.ToUpper(symbol), days)
}

// GetOpenPositions marks every holding to the latest price. A holding whose
// price cannot be read is still reported, at its entry price.
func (b *Broker) GetOpenPositions(ctx context.Context) ([]exchange.Position, error) {
	b.mu.Lock()
	symbols := make([]string, 0, len(b.holdings))
	snapshot := make(map[string]holding, len(b.holdings))
	for symbol, h := range b.holdings {
		symbols = append(symbols, symbol)
		snapshot[symbol] = *h
	}
	b.mu.Unlock()
	sort.Strings(symbols)

	positions := make([]exchange.Position, 0, len(symbols))
	for _, symbol := range symbols {
		h := snapshot[symbol]
		avg := h.avgEntry.InexactFloat64()
		current := avg
		if price, err := b.market.GetLatestPrice(ctx, symbol); err == nil && price > 0 {
			current = price
		}
		positions = append(positions, exchange.Position{
			Symbol:       symbol,
			Quantity:     h.qty.InexactFloat64(),
			AvgEntry:     avg,
			CurrentPrice: current,
		})
	}
	return positions, nil
}

// SubmitMarketOrder fills immediately at the latest price
func (b *Broker) SubmitMarketOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderAck, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Quantity <= 0 {
		return nil, boterrors.NewOrderError("paper", "SubmitMarketOrder", fmt.Sprintf("invalid quantity %v", req.Quantity))
	}

	price, err := b.market.GetLatestPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, boterrors.New(boterrors.ErrorCategoryBroker, "paper", "SubmitMarketOrder",
			fmt.Sprintf("no valid price for %s", symbol))
	}

	qty := decimal.NewFromFloat(req.Quantity)
	px := decimal.NewFromFloat(price)

	b.mu.Lock()
	defer b.mu.Unlock()

	fill := Fill{
		OrderID:  uuid.NewString(),
		Symbol:   symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    price,
	}

	switch req.Side {
	case exchange.OrderSideBuy:
		if _, held := b.holdings[symbol]; held {
			return nil, boterrors.NewOrderError("paper", "SubmitMarketOrder", fmt.Sprintf("already holding %s", symbol))
		}
		cost := qty.Mul(px)
		if cost.GreaterThan(b.cash) {
			return nil, boterrors.NewOrderError("paper", "SubmitMarketOrder",
				fmt.Sprintf("insufficient cash: need %s, have %s", cost.StringFixed(2), b.cash.StringFixed(2)))
		}
		b.cash = b.cash.Sub(cost)
		b.holdings[symbol] = &holding{qty: qty, avgEntry: px}

	case exchange.OrderSideSell:
		h, held := b.holdings[symbol]
		if !held {
			return nil, boterrors.NewOrderError("paper", "SubmitMarketOrder", fmt.Sprintf("no position in %s", symbol))
		}
		// sells close the whole position; the request qty is capped at what is held
		sellQty := decimal.Min(qty, h.qty)
		pnl := px.Sub(h.avgEntry).Mul(sellQty)
		b.cash = b.cash.Add(sellQty.Mul(px))
		b.realized = b.realized.Add(pnl)
		h.qty = h.qty.Sub(sellQty)
		if !h.qty.IsPositive() {
			delete(b.holdings, symbol)
		}
		fill.Quantity = sellQty.InexactFloat64()
		fill.RealizedPnL = pnl.InexactFloat64()

	default:
		return nil, boterrors.NewOrderError("paper", "SubmitMarketOrder", fmt.Sprintf("unknown side %q", req.Side))
	}

	b.fills = append(b.fills, fill)

	return &exchange.OrderAck{
		OrderID:       fill.OrderID,
		ClientOrderID: fill.OrderID,
		Symbol:        symbol,
		Side:          req.Side,
		Quantity:      fill.Quantity,
		FillPrice:     price,
		Status:        "filled",
	}, nil
}

// GetAccount values holdings at their latest price
func (b *Broker) GetAccount(ctx context.Context) (*types.Account, error) {
	positions, err := b.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	cash := b.cash
	b.mu.Unlock()

	equity := cash
	for _, p := range positions {
		equity = equity.Add(decimal.NewFromFloat(p.Quantity).Mul(decimal.NewFromFloat(p.CurrentPrice)))
	}

	return &types.Account{
		Cash:        cash.InexactFloat64(),
		Equity:      equity.InexactFloat64(),
		BuyingPower: cash.InexactFloat64(),
		Currency:    "USD",
	}, nil
}

// RealizedPnL is the sum of closed trade profits
func (b *Broker) RealizedPnL() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realized.InexactFloat64()
}

// Fills returns executed orders in order
func (b *Broker) Fills() []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Fill, len(b.fills))
	copy(out, b.fills)
	return out
}
