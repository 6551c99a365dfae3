package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Gateway trades long-only on Bybit USDT perpetuals
type Gateway struct {
	*Client
}

// NewGateway returns a BrokerGateway over Bybit. Orders need the linear category.
func NewGateway(config Config) (*Gateway, error) {
	if config.APIKey == "" || config.APISecret == "" {
		return nil, boterrors.NewCredentialsError("bybit", "NewGateway", "BYBIT_API_KEY and BYBIT_API_SECRET are required")
	}
	client := NewClient(config)
	if client.category != "linear" {
		return nil, boterrors.NewConfigurationError("bybit", "NewGateway",
			fmt.Sprintf("category %q cannot report positions, use linear", client.category))
	}
	return &Gateway{Client: client}, nil
}

func sideParam(side exchange.OrderSide) string {
	if side == exchange.OrderSideSell {
		return "Sell"
	}
	return "Buy"
}

// timeInForceParam maps to Bybit values. Bybit has no DAY orders; a market
// order fills immediately or not at all, so DAY becomes IOC.
func timeInForceParam(tif exchange.TimeInForce) string {
	switch tif {
	case exchange.TimeInForceGTC:
		return "GTC"
	case exchange.TimeInForceFOK:
		return "FOK"
	default:
		return "IOC"
	}
}

// SubmitMarketOrder places a market order. Sells are reduce-only so they can
// never open a short.
func (g *Gateway) SubmitMarketOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderAck, error) {
	symbol := strings.ToUpper(req.Symbol)

	lot, err := g.lotSizeFor(ctx, symbol)
	if err != nil {
		return nil, err
	}
	qty, err := applyLotSize(decimal.NewFromFloat(req.Quantity), lot)
	if err != nil {
		return nil, err
	}

	linkID := uuid.NewString()
	params := map[string]interface{}{
		"category":    g.category,
		"symbol":      symbol,
		"side":        sideParam(req.Side),
		"orderType":   "Market",
		"qty":         qty.String(),
		"timeInForce": timeInForceParam(req.TimeInForce),
		"orderLinkId": linkID,
	}
	if req.Side == exchange.OrderSideSell {
		params["reduceOnly"] = true
	}

	result, err := g.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return nil, boterrors.Categorize(fmt.Errorf("failed to place order: %w", err), "bybit", "SubmitMarketOrder")
	}
	raw, err := resultJSON(result, "SubmitMarketOrder")
	if err != nil {
		return nil, err
	}

	return &exchange.OrderAck{
		OrderID:       gjson.GetBytes(raw, "orderId").String(),
		ClientOrderID: linkID,
		Symbol:        symbol,
		Side:          req.Side,
		Quantity:      qty.InexactFloat64(),
		Status:        "submitted",
	}, nil
}

type positionRow struct {
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Size      string `json:"size"`
	AvgPrice  string `json:"avgPrice"`
	MarkPrice string `json:"markPrice"`
}

// GetOpenPositions lists long positions with non-zero size
func (g *Gateway) GetOpenPositions(ctx context.Context) ([]exchange.Position, error) {
	params := map[string]interface{}{
		"category":   g.category,
		"settleCoin": "USDT",
	}

	result, err := g.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, boterrors.Categorize(fmt.Errorf("failed to get positions: %w", err), "bybit", "GetOpenPositions")
	}
	raw, err := resultJSON(result, "GetOpenPositions")
	if err != nil {
		return nil, err
	}
	return parsePositions(raw)
}

func parsePositions(raw []byte) ([]exchange.Position, error) {
	var payload struct {
		List []positionRow `json:"list"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, boterrors.NewBrokerError("bybit", "GetOpenPositions", fmt.Errorf("failed to unmarshal positions: %w", err))
	}

	positions := make([]exchange.Position, 0, len(payload.List))
	for _, row := range payload.List {
		if row.Side != "Buy" {
			continue
		}
		size, err := parseNumber(row.Size)
		if err != nil || size <= 0 {
			continue
		}
		avg, _ := parseNumber(row.AvgPrice)
		mark, _ := parseNumber(row.MarkPrice)

		positions = append(positions, exchange.Position{
			Symbol:       row.Symbol,
			Quantity:     size,
			AvgEntry:     avg,
			CurrentPrice: mark,
		})
	}
	return positions, nil
}
