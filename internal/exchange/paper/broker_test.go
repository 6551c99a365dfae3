package paper

import (
	"context"
	"testing"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	prices map[string]float64
}

func (f *fakeMarket) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	p, ok := f.prices[symbol]
	if !ok {
		return 0, boterrors.NewDataInsufficientError("fake", "GetLatestPrice", 0, 1)
	}
	return p, nil
}

func (f *fakeMarket) GetDailyBars(ctx context.Context, symbol string, days int) ([]types.OHLCV, error) {
	return []types.OHLCV{{Close: f.prices[symbol]}}, nil
}

var _ exchange.BrokerGateway = (*Broker)(nil)

func buy(symbol string, qty float64) exchange.OrderRequest {
	return exchange.OrderRequest{Symbol: symbol, Side: exchange.OrderSideBuy, Quantity: qty, TimeInForce: exchange.TimeInForceDay}
}

func sell(symbol string, qty float64) exchange.OrderRequest {
	return exchange.OrderRequest{Symbol: symbol, Side: exchange.OrderSideSell, Quantity: qty, TimeInForce: exchange.TimeInForceDay}
}

func TestBroker_BuyThenSellRealizesPnL(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"AAPL": 100}}
	b := NewBroker(market, 1000)
	ctx := context.Background()

	ack, err := b.SubmitMarketOrder(ctx, buy("aapl", 2))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ack.Symbol)
	assert.Equal(t, 100.0, ack.FillPrice)
	assert.NotEmpty(t, ack.OrderID)

	positions, err := b.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 2.0, positions[0].Quantity)

	market.prices["AAPL"] = 110
	acct, err := b.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 800.0, acct.Cash)
	assert.Equal(t, 1020.0, acct.Equity)

	_, err = b.SubmitMarketOrder(ctx, sell("AAPL", 2))
	require.NoError(t, err)
	assert.Equal(t, 20.0, b.RealizedPnL())

	positions, err = b.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
	assert.Len(t, b.Fills(), 2)
}

func TestBroker_RejectsSecondBuy(t *testing.T) {
	b := NewBroker(&fakeMarket{prices: map[string]float64{"AAPL": 100}}, 1000)

	_, err := b.SubmitMarketOrder(context.Background(), buy("AAPL", 1))
	require.NoError(t, err)

	_, err = b.SubmitMarketOrder(context.Background(), buy("AAPL", 1))
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryOrder))
}

func TestBroker_RejectsInsufficientCash(t *testing.T) {
	b := NewBroker(&fakeMarket{prices: map[string]float64{"AAPL": 100}}, 50)

	_, err := b.SubmitMarketOrder(context.Background(), buy("AAPL", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient cash")
}

func TestBroker_SellWithoutPosition(t *testing.T) {
	b := NewBroker(&fakeMarket{prices: map[string]float64{"AAPL": 100}}, 1000)

	_, err := b.SubmitMarketOrder(context.Background(), sell("AAPL", 1))
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryOrder))
}

func TestBroker_MissingPricePropagates(t *testing.T) {
	b := NewBroker(&fakeMarket{prices: map[string]float64{}}, 1000)

	_, err := b.SubmitMarketOrder(context.Background(), buy("AAPL", 1))
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryDataInsufficient))
}
