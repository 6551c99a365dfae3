package reporting

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/equity-signal-bot/internal/backtest"
)

func sampleResults() *backtest.BacktestResults {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	res := &backtest.BacktestResults{
		Symbol:       "AAPL",
		Strategy:     "hybrid",
		StartTime:    day,
		EndTime:      day.AddDate(0, 0, 89),
		Bars:         90,
		StartBalance: 1000,
		EndBalance:   1020,
		TotalReturn:  0.02,
		Trades: []backtest.Trade{
			{EntryTime: day.AddDate(0, 0, 3), ExitTime: day.AddDate(0, 0, 5), EntryPrice: 100, ExitPrice: 106, Quantity: 10, PnL: 60, PnLPct: 6, ExitReason: backtest.ReasonTakeProfit},
			{EntryTime: day.AddDate(0, 0, 9), ExitTime: day.AddDate(0, 0, 10), EntryPrice: 100, ExitPrice: 96, Quantity: 10, PnL: -40, PnLPct: -4, ExitReason: backtest.ReasonStopLoss},
		},
	}
	res.UpdateMetrics()
	return res
}

func TestConsoleReporter_OutputResults(t *testing.T) {
	var buf bytes.Buffer
	NewDefaultConsoleReporter(&buf).OutputResults(sampleResults())

	out := buf.String()
	assert.Contains(t, out, "BACKTEST AAPL (hybrid)")
	assert.Contains(t, out, "50.0% (1/2)")
	assert.Contains(t, out, "take-profit")
	assert.Contains(t, out, "TRADES")
}

func TestConsoleReporter_NoTrades(t *testing.T) {
	var buf bytes.Buffer
	NewDefaultConsoleReporter(&buf).OutputResults(&backtest.BacktestResults{Symbol: "MSFT", Strategy: "sma"})
	assert.Contains(t, buf.String(), "No trades")
	assert.NotContains(t, buf.String(), "TRADES")
}

func TestConsoleReporter_OutputComparison(t *testing.T) {
	var buf bytes.Buffer
	NewDefaultConsoleReporter(&buf).OutputComparison([]backtest.BacktestResult{
		{Symbol: "AAPL", Results: sampleResults()},
		{Symbol: "BAD", Error: errors.New("no data")},
	})
	assert.Contains(t, buf.String(), "AAPL")
	assert.Contains(t, buf.String(), "no data")
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.csv")
	require.NoError(t, WriteTradesCSV(sampleResults(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, tradeHeaders, rows[0])
	assert.Equal(t, "AAPL", rows[1][0])
	assert.Equal(t, "60.00", rows[1][7])
	assert.Equal(t, "stop-loss", rows[2][9])
}

func TestWriteTradesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteTradesCSV(sampleResults(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{summarySheet, tradesSheet}, fx.GetSheetList())

	symbol, err := fx.GetCellValue(summarySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)

	rows, err := fx.GetRows(tradesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	reason, err := fx.GetCellValue(tradesSheet, "J3")
	require.NoError(t, err)
	assert.Equal(t, "stop-loss", reason)
}

func TestDefaultOutputPath(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("results", "AAPL_hybrid_20240301.xlsx"), DefaultOutputPath(" aapl ", "Hybrid", ".xlsx", at))
	assert.Equal(t, filepath.Join("results", "ALL_unknown_20240301.csv"), DefaultOutputPath("", "", "csv", at))
}
