package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// CSVMarketData serves prices and daily bars from a directory of
// <SYMBOL>.csv files. Only bars dated on or before the as-of date are
// visible, which lets a caller replay history one session at a time.
type CSVMarketData struct {
	dir      string
	provider *CachedProvider

	mu   sync.RWMutex
	asOf func() time.Time
}

// NewCSVMarketData reads daily CSV files from dir
func NewCSVMarketData(dir string) *CSVMarketData {
	return &CSVMarketData{
		dir:      dir,
		provider: NewCachedProvider(NewCSVProvider()),
		asOf:     time.Now,
	}
}

// SetAsOf pins the replay date; the zero time restores the wall clock
func (m *CSVMarketData) SetAsOf(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.IsZero() {
		m.asOf = time.Now
		return
	}
	m.asOf = func() time.Time { return t }
}

func (m *CSVMarketData) visibleBars(ctx context.Context, symbol, operation string) ([]types.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, boterrors.NewTimeoutError("csv", operation, err)
	}

	path := FindSymbolFile(m.dir, symbol)
	if path == "" {
		return nil, boterrors.NewDataInsufficientError("csv", operation, 0, 1).
			WithContext("symbol", symbol).
			WithContext("dir", m.dir)
	}

	bars, err := m.provider.LoadData(path)
	if err != nil {
		return nil, boterrors.NewStorageError("csv", operation, fmt.Errorf("load %s: %w", path, err))
	}

	m.mu.RLock()
	asOf := m.asOf()
	m.mu.RUnlock()

	// bars are sorted; cut everything after the as-of day
	cutoff := endOfDay(asOf)
	n := len(bars)
	for n > 0 && bars[n-1].Timestamp.After(cutoff) {
		n--
	}
	return bars[:n], nil
}

// GetLatestPrice returns the close of the most recent visible bar
func (m *CSVMarketData) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	bars, err := m.visibleBars(ctx, symbol, "GetLatestPrice")
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, boterrors.NewDataInsufficientError("csv", "GetLatestPrice", 0, 1).WithContext("symbol", symbol)
	}
	return bars[len(bars)-1].Close, nil
}

// GetDailyBars returns the visible bars within the last days calendar days
func (m *CSVMarketData) GetDailyBars(ctx context.Context, symbol string, days int) ([]types.OHLCV, error) {
	bars, err := m.visibleBars(ctx, symbol, "GetDailyBars")
	if err != nil {
		return nil, err
	}
	if days <= 0 || len(bars) == 0 {
		return bars, nil
	}

	last := bars[len(bars)-1].Timestamp
	start := last.AddDate(0, 0, -days)
	i := len(bars)
	for i > 0 && bars[i-1].Timestamp.After(start) {
		i--
	}
	return bars[i:], nil
}

func endOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 23, 59, 59, 0, time.UTC)
}
