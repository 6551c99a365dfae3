package bybit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
	"github.com/tidwall/gjson"
)

const maxKlineLimit = 1000

// GetLatestPrice returns the last traded price from the ticker endpoint
func (c *Client) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   strings.ToUpper(symbol),
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return 0, boterrors.Categorize(fmt.Errorf("failed to get latest price: %w", err), "bybit", "GetLatestPrice")
	}

	raw, err := resultJSON(result, "GetLatestPrice")
	if err != nil {
		return 0, err
	}
	return parseTickerPrice(raw, symbol)
}

func parseTickerPrice(raw []byte, symbol string) (float64, error) {
	last := gjson.GetBytes(raw, "list.0.lastPrice")
	if !last.Exists() {
		return 0, boterrors.New(boterrors.ErrorCategoryBroker, "bybit", "GetLatestPrice",
			fmt.Sprintf("no ticker returned for %s", symbol))
	}
	price, err := parseNumber(last.String())
	if err != nil {
		return 0, boterrors.NewBrokerError("bybit", "GetLatestPrice", fmt.Errorf("bad lastPrice %q: %w", last.String(), err))
	}
	return price, nil
}

// GetDailyBars returns up to days daily candles, oldest first
func (c *Client) GetDailyBars(ctx context.Context, symbol string, days int) ([]types.OHLCV, error) {
	if days <= 0 {
		days = 60
	}
	if days > maxKlineLimit {
		days = maxKlineLimit
	}

	params := map[string]interface{}{
		"category": c.category,
		"symbol":   strings.ToUpper(symbol),
		"interval": "D",
		"limit":    days,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, boterrors.Categorize(fmt.Errorf("failed to get klines: %w", err), "bybit", "GetDailyBars")
	}

	raw, err := resultJSON(result, "GetDailyBars")
	if err != nil {
		return nil, err
	}
	return parseKlines(raw)
}

// parseKlines reads result.list, where each row is
// [startTime, open, high, low, close, volume, turnover] newest first.
func parseKlines(raw []byte) ([]types.OHLCV, error) {
	rows := gjson.GetBytes(raw, "list").Array()
	bars := make([]types.OHLCV, 0, len(rows))

	for i, row := range rows {
		cols := row.Array()
		if len(cols) < 6 {
			return nil, boterrors.New(boterrors.ErrorCategoryBroker, "bybit", "GetDailyBars",
				fmt.Sprintf("kline row %d has %d columns", i, len(cols)))
		}

		startMs, err := strconv.ParseInt(cols[0].String(), 10, 64)
		if err != nil {
			return nil, boterrors.NewBrokerError("bybit", "GetDailyBars", fmt.Errorf("bad start time in row %d: %w", i, err))
		}

		var values [5]float64
		for j := 0; j < 5; j++ {
			v, err := parseNumber(cols[j+1].String())
			if err != nil {
				return nil, boterrors.NewBrokerError("bybit", "GetDailyBars", fmt.Errorf("bad value in row %d: %w", i, err))
			}
			values[j] = v
		}

		bars = append(bars, types.OHLCV{
			Timestamp: time.UnixMilli(startMs).UTC(),
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}
