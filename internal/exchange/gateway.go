package exchange

import (
	"context"
	"strings"

	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// BrokerGateway is the broker-side view the decision engine consumes.
// Every method blocks and must honour ctx cancellation.
type BrokerGateway interface {
	GetName() string

	GetOpenPositions(ctx context.Context) ([]Position, error)
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
	SubmitMarketOrder(ctx context.Context, req OrderRequest) (*OrderAck, error)
	GetAccount(ctx context.Context) (*types.Account, error)
}

// MarketData serves prices and daily history
type MarketData interface {
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
	GetDailyBars(ctx context.Context, symbol string, days int) ([]types.OHLCV, error)
}

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// TimeInForce represents how long an order remains active
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "DAY"
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// ParseTimeInForce maps a config string to a TimeInForce, defaulting to DAY
func ParseTimeInForce(s string) TimeInForce {
	tif, _ := LookupTimeInForce(s)
	return tif
}

// LookupTimeInForce is ParseTimeInForce that reports unknown input. Empty
// input is DAY.
func LookupTimeInForce(s string) (TimeInForce, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DAY":
		return TimeInForceDay, true
	case "GTC":
		return TimeInForceGTC, true
	case "IOC":
		return TimeInForceIOC, true
	case "FOK":
		return TimeInForceFOK, true
	default:
		return TimeInForceDay, false
	}
}

// OrderRequest describes a market order
type OrderRequest struct {
	Symbol      string
	Side        OrderSide
	Quantity    float64
	TimeInForce TimeInForce
}

// OrderAck is the broker's acknowledgement of a submitted order
type OrderAck struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	Quantity      float64
	// FillPrice is zero when the broker has not reported a fill yet
	FillPrice float64
	Status    string
}

// Position is one holding as reported by the broker
type Position struct {
	Symbol       string
	Quantity     float64
	AvgEntry     float64
	CurrentPrice float64
}

// UnrealizedPnLPercent uses the broker's average entry
func (p Position) UnrealizedPnLPercent() float64 {
	if p.AvgEntry <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.AvgEntry) / p.AvgEntry * 100
}

// OpenSymbols turns a position list into a set of upper-case symbols
func OpenSymbols(positions []Position) map[string]struct{} {
	out := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if p.Quantity > 0 {
			out[strings.ToUpper(p.Symbol)] = struct{}{}
		}
	}
	return out
}
