package bybit

import (
	"encoding/json"
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/shopspring/decimal"
)

// resultJSON unwraps a v5 response and returns the raw "result" object
func resultJSON(response interface{}, operation string) ([]byte, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok || serverResp == nil {
		return nil, boterrors.New(boterrors.ErrorCategoryBroker, "bybit", operation,
			fmt.Sprintf("unexpected response type %T", response))
	}

	if serverResp.RetCode != 0 {
		return nil, apiError(operation, serverResp.RetCode, serverResp.RetMsg)
	}

	raw, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, boterrors.NewBrokerError("bybit", operation, fmt.Errorf("failed to marshal result: %w", err))
	}
	return raw, nil
}

// parseNumber parses Bybit's decimal strings; empty means zero
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
