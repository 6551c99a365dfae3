package bybit

import (
	"context"
	"fmt"
	"strings"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// lotSize is the quantity filter of one instrument
type lotSize struct {
	MinQty decimal.Decimal
	MaxQty decimal.Decimal
	Step   decimal.Decimal
}

// lotSizeFor returns the cached lot size filter, fetching it on first use
func (c *Client) lotSizeFor(ctx context.Context, symbol string) (lotSize, error) {
	symbol = strings.ToUpper(symbol)

	c.lotMu.Lock()
	lot, ok := c.lots[symbol]
	c.lotMu.Unlock()
	if ok {
		return lot, nil
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}
	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
	if err != nil {
		return lotSize{}, boterrors.Categorize(fmt.Errorf("failed to fetch instrument info: %w", err), "bybit", "GetInstrumentInfo")
	}
	raw, err := resultJSON(result, "GetInstrumentInfo")
	if err != nil {
		return lotSize{}, err
	}

	lot, err = parseLotSize(raw, symbol)
	if err != nil {
		return lotSize{}, err
	}

	c.lotMu.Lock()
	c.lots[symbol] = lot
	c.lotMu.Unlock()
	return lot, nil
}

func parseLotSize(raw []byte, symbol string) (lotSize, error) {
	filter := gjson.GetBytes(raw, "list.0.lotSizeFilter")
	if !filter.Exists() {
		return lotSize{}, boterrors.New(boterrors.ErrorCategoryBroker, "bybit", "GetInstrumentInfo",
			fmt.Sprintf("instrument %s not found", symbol))
	}

	field := func(name string) decimal.Decimal {
		d, err := decimal.NewFromString(filter.Get(name).String())
		if err != nil {
			return decimal.Zero
		}
		return d
	}

	step := field("qtyStep")
	if step.IsZero() {
		// spot instruments publish basePrecision instead of qtyStep
		step = field("basePrecision")
	}

	return lotSize{
		MinQty: field("minOrderQty"),
		MaxQty: field("maxOrderQty"),
		Step:   step,
	}, nil
}

// applyLotSize floors qty to the step and checks the bounds
func applyLotSize(qty decimal.Decimal, lot lotSize) (decimal.Decimal, error) {
	if lot.Step.IsPositive() {
		qty = qty.Div(lot.Step).Floor().Mul(lot.Step)
	}
	if lot.MinQty.IsPositive() && qty.LessThan(lot.MinQty) {
		return decimal.Zero, boterrors.NewOrderError("bybit", "SubmitMarketOrder",
			fmt.Sprintf("quantity %s below minimum %s", qty, lot.MinQty))
	}
	if lot.MaxQty.IsPositive() && qty.GreaterThan(lot.MaxQty) {
		qty = lot.MaxQty
	}
	return qty, nil
}
