package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ducminhle1904/equity-signal-bot/internal/config"
	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_ValidateConfig(t *testing.T) {
	f := NewFactory()

	assert.NoError(t, f.ValidateConfig(config.BrokerConfig{Name: "paper", Paper: config.PaperConfig{StartingCash: 1}}))

	err := f.ValidateConfig(config.BrokerConfig{Name: "alpaca"})
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryConfiguration))

	err = f.ValidateConfig(config.BrokerConfig{Name: "bybit"})
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryCredentials))

	err = f.ValidateConfig(config.BrokerConfig{Name: "bybit", Bybit: config.BybitConfig{APIKey: "k", APISecret: "s", Demo: true, Testnet: true}})
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryConfiguration))
}

func TestFactory_PaperOverCSV(t *testing.T) {
	dir := t.TempDir()
	csv := "Date,Open,High,Low,Close,Volume\n2024-01-02,100,101,99,100.5,1000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"), []byte(csv), 0644))

	gws, err := NewFactory().Create(config.BrokerConfig{
		Name:  "paper",
		Paper: config.PaperConfig{StartingCash: 1000, DataDir: dir},
	}, exchange.GuardConfig{CallTimeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, gws.Paper)
	assert.Equal(t, "paper", gws.Broker.GetName())

	ctx := context.Background()
	price, err := gws.Market.GetLatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 100.5, price)

	ack, err := gws.Broker.SubmitMarketOrder(ctx, exchange.OrderRequest{Symbol: "AAPL", Side: exchange.OrderSideBuy, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 100.5, ack.FillPrice)

	positions, err := gws.Broker.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Contains(t, exchange.OpenSymbols(positions), "AAPL")
}

func TestFactory_BybitBuildsGuardedGateway(t *testing.T) {
	gws, err := NewFactory().Create(config.BrokerConfig{
		Name:  "bybit",
		Bybit: config.BybitConfig{APIKey: "k", APISecret: "s", Demo: true, Category: "linear"},
	}, exchange.GuardConfig{})
	require.NoError(t, err)
	assert.Equal(t, "bybit", gws.Broker.GetName())
	assert.Nil(t, gws.Paper)
}
