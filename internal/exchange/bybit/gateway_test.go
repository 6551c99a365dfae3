package bybit

import (
	"testing"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ exchange.BrokerGateway = (*Gateway)(nil)
	_ exchange.MarketData    = (*Client)(nil)
)

func TestParseTickerPrice(t *testing.T) {
	raw := []byte(`{"category":"linear","list":[{"symbol":"BTCUSDT","lastPrice":"64250.50","markPrice":"64251.00"}]}`)

	price, err := parseTickerPrice(raw, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 64250.5, price)

	_, err = parseTickerPrice([]byte(`{"list":[]}`), "NOPEUSDT")
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryBroker))
}

func TestParseKlines_SortsOldestFirst(t *testing.T) {
	raw := []byte(`{"symbol":"ETHUSDT","list":[
		["1704240000000","2350","2400","2300","2380","1200.5","2850000"],
		["1704153600000","2300","2360","2280","2350","1100","2580000"]
	]}`)

	bars, err := parseKlines(raw)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, 2350.0, bars[0].Close)
	assert.Equal(t, 2380.0, bars[1].Close)
	assert.Equal(t, 1200.5, bars[1].Volume)
}

func TestParseKlines_RejectsShortRow(t *testing.T) {
	_, err := parseKlines([]byte(`{"list":[["1704153600000","2300"]]}`))
	assert.Error(t, err)
}

func TestParsePositions_KeepsOpenLongs(t *testing.T) {
	raw := []byte(`{"list":[
		{"symbol":"BTCUSDT","side":"Buy","size":"0.010","avgPrice":"60000","markPrice":"61200"},
		{"symbol":"ETHUSDT","side":"Sell","size":"1","avgPrice":"2400","markPrice":"2380"},
		{"symbol":"SOLUSDT","side":"","size":"0","avgPrice":"0","markPrice":"140"}
	]}`)

	positions, err := parsePositions(raw)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, "BTCUSDT", p.Symbol)
	assert.Equal(t, 0.01, p.Quantity)
	assert.Equal(t, 60000.0, p.AvgEntry)
	assert.InDelta(t, 2.0, p.UnrealizedPnLPercent(), 1e-9)
}

func TestParseAccount(t *testing.T) {
	raw := []byte(`{"list":[{"totalEquity":"10250.75","totalAvailableBalance":"8000.25","totalWalletBalance":"10000"}]}`)

	acct, err := parseAccount(raw)
	require.NoError(t, err)
	assert.Equal(t, 10250.75, acct.Equity)
	assert.Equal(t, 8000.25, acct.Cash)

	_, err = parseAccount([]byte(`{"list":[]}`))
	assert.Error(t, err)
}

func TestApplyLotSize(t *testing.T) {
	lot := lotSize{
		MinQty: decimal.RequireFromString("0.001"),
		MaxQty: decimal.RequireFromString("100"),
		Step:   decimal.RequireFromString("0.001"),
	}

	qty, err := applyLotSize(decimal.RequireFromString("0.0129"), lot)
	require.NoError(t, err)
	assert.Equal(t, "0.012", qty.String())

	qty, err = applyLotSize(decimal.NewFromInt(250), lot)
	require.NoError(t, err)
	assert.Equal(t, "100", qty.String())

	_, err = applyLotSize(decimal.RequireFromString("0.0004"), lot)
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryOrder))
}

func TestParseLotSize(t *testing.T) {
	raw := []byte(`{"list":[{"symbol":"BTCUSDT","lotSizeFilter":{"maxOrderQty":"190","minOrderQty":"0.001","qtyStep":"0.001"}}]}`)

	lot, err := parseLotSize(raw, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, lot.Step.Equal(decimal.RequireFromString("0.001")))
	assert.True(t, lot.MaxQty.Equal(decimal.NewFromInt(190)))

	_, err = parseLotSize([]byte(`{"list":[]}`), "NOPE")
	assert.Error(t, err)
}

func TestAPIError_Categories(t *testing.T) {
	tests := []struct {
		code     int
		category boterrors.ErrorCategory
	}{
		{ErrCodeInvalidAPIKey, boterrors.ErrorCategoryCredentials},
		{ErrCodeRateLimitExceeded, boterrors.ErrorCategoryRateLimit},
		{ErrCodeServerTimeout, boterrors.ErrorCategoryTimeout},
		{ErrCodeInsufficientBalance, boterrors.ErrorCategoryOrder},
		{ErrCodeSymbolNotFound, boterrors.ErrorCategoryBroker},
	}

	for _, tt := range tests {
		err := apiError("PlaceOrder", tt.code, "msg")
		assert.Equal(t, tt.category, err.Category, "code %d", tt.code)
	}
	assert.False(t, apiError("PlaceOrder", ErrCodeInsufficientBalance, "").IsRetryable())
}

func TestTimeInForceParam(t *testing.T) {
	assert.Equal(t, "IOC", timeInForceParam(exchange.TimeInForceDay))
	assert.Equal(t, "GTC", timeInForceParam(exchange.TimeInForceGTC))
	assert.Equal(t, "FOK", timeInForceParam(exchange.TimeInForceFOK))
	assert.Equal(t, "Sell", sideParam(exchange.OrderSideSell))
}

func TestNewGateway_RequiresCredentials(t *testing.T) {
	_, err := NewGateway(Config{})
	require.Error(t, err)
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryCredentials))

	_, err = NewGateway(Config{APIKey: "k", APISecret: "s", Category: "spot"})
	assert.True(t, boterrors.IsCategory(err, boterrors.ErrorCategoryConfiguration))

	gw, err := NewGateway(Config{APIKey: "k", APISecret: "s", Demo: true})
	require.NoError(t, err)
	assert.Equal(t, "demo", gw.GetEnvironment())
	assert.Equal(t, "bybit", gw.GetName())
}
