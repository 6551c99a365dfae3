package bybit

import (
	"context"
	"fmt"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
	"github.com/tidwall/gjson"
)

// GetAccount reads the unified wallet totals
func (c *Client) GetAccount(ctx context.Context) (*types.Account, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, boterrors.Categorize(fmt.Errorf("failed to get account balance: %w", err), "bybit", "GetAccount")
	}
	raw, err := resultJSON(result, "GetAccount")
	if err != nil {
		return nil, err
	}
	return parseAccount(raw)
}

func parseAccount(raw []byte) (*types.Account, error) {
	acct := gjson.GetBytes(raw, "list.0")
	if !acct.Exists() {
		return nil, boterrors.New(boterrors.ErrorCategoryBroker, "bybit", "GetAccount", "no account data found")
	}

	equity, err := parseNumber(acct.Get("totalEquity").String())
	if err != nil {
		return nil, boterrors.NewBrokerError("bybit", "GetAccount", err)
	}
	available, err := parseNumber(acct.Get("totalAvailableBalance").String())
	if err != nil {
		return nil, boterrors.NewBrokerError("bybit", "GetAccount", err)
	}

	return &types.Account{
		Cash:        available,
		Equity:      equity,
		BuyingPower: available,
		Currency:    "USD",
	}, nil
}
