package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ducminhle1904/equity-signal-bot/internal/backtest"
)

var tradeHeaders = []string{
	"Symbol", "Entry_Time", "Exit_Time", "Entry_Price", "Exit_Price",
	"Quantity", "Commission", "PnL_$", "PnL_%", "Exit_Reason",
}

// WriteTradesCSV writes one row per trade. A .xlsx path is written as a workbook.
func WriteTradesCSV(results *backtest.BacktestResults, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteTradesXLSX([]*backtest.BacktestResults{results}, path)
	}
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeHeaders); err != nil {
		return err
	}
	for _, tr := range results.Trades {
		if err := w.Write([]string{
			results.Symbol,
			tr.EntryTime.Format("2006-01-02"),
			tr.ExitTime.Format("2006-01-02"),
			strconv.FormatFloat(tr.EntryPrice, 'f', 4, 64),
			strconv.FormatFloat(tr.ExitPrice, 'f', 4, 64),
			strconv.FormatFloat(tr.Quantity, 'f', 6, 64),
			strconv.FormatFloat(tr.Commission, 'f', 4, 64),
			strconv.FormatFloat(tr.PnL, 'f', 2, 64),
			strconv.FormatFloat(tr.PnLPct, 'f', 2, 64),
			tr.ExitReason,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
