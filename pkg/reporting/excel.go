package reporting

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/equity-signal-bot/internal/backtest"
)

const (
	summarySheet = "Summary"
	tradesSheet  = "Trades"
)

// WriteTradesXLSX writes a Summary sheet with one row per backtest and a
// Trades sheet with every trade.
func WriteTradesXLSX(results []*backtest.BacktestResults, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), summarySheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}
	if err := writeSummarySheet(fx, results, styles); err != nil {
		return err
	}
	if err := writeTradesSheet(fx, results, styles); err != nil {
		return err
	}
	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	// percent cells hold fractions
	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{NumFmt: 10, Border: border})
	if err != nil {
		return styles, err
	}
	styles.GreenPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10,
		Font:   &excelize.Font{Color: "006100"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}
	styles.RedPercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10,
		Font:   &excelize.Font{Color: "9C0006"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: border})
	return styles, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// cellValue pairs a value with its style
type cellValue struct {
	value interface{}
	style int
}

func writeRow(fx *excelize.File, sheet string, row int, cells []cellValue) error {
	for i, c := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, c.value); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, c.style); err != nil {
			return err
		}
	}
	return nil
}

func pnlStyle(styles ExcelStyles, v float64) int {
	if v > 0 {
		return styles.GreenPercentStyle
	}
	if v < 0 {
		return styles.RedPercentStyle
	}
	return styles.PercentStyle
}

func writeSummarySheet(fx *excelize.File, results []*backtest.BacktestResults, styles ExcelStyles) error {
	headers := []string{"Symbol", "Strategy", "Start", "End", "Bars", "Initial", "Final", "Return",
		"Max Drawdown", "Trades", "Win Rate", "Avg PnL", "Profit Factor"}
	if err := writeHeader(fx, summarySheet, headers, styles.HeaderStyle); err != nil {
		return err
	}

	for i, r := range results {
		pf := interface{}(r.ProfitFactor)
		if math.IsInf(r.ProfitFactor, 1) {
			pf = "inf"
		}
		if err := writeRow(fx, summarySheet, i+2, []cellValue{
			{r.Symbol, styles.BaseStyle},
			{r.Strategy, styles.BaseStyle},
			{r.StartTime.Format("2006-01-02"), styles.BaseStyle},
			{r.EndTime.Format("2006-01-02"), styles.BaseStyle},
			{r.Bars, styles.BaseStyle},
			{r.StartBalance, styles.CurrencyStyle},
			{r.EndBalance, styles.CurrencyStyle},
			{r.TotalReturn, pnlStyle(styles, r.TotalReturn)},
			{r.MaxDrawdown, styles.PercentStyle},
			{r.TotalTrades, styles.BaseStyle},
			{r.WinRate / 100, styles.PercentStyle},
			{r.AvgPnLPct / 100, pnlStyle(styles, r.AvgPnLPct)},
			{pf, styles.BaseStyle},
		}); err != nil {
			return err
		}
	}
	return fx.SetColWidth(summarySheet, "A", "M", 14)
}

func writeTradesSheet(fx *excelize.File, results []*backtest.BacktestResults, styles ExcelStyles) error {
	if err := writeHeader(fx, tradesSheet, tradeHeaders, styles.HeaderStyle); err != nil {
		return err
	}

	row := 2
	for _, r := range results {
		for _, tr := range r.Trades {
			if err := writeRow(fx, tradesSheet, row, []cellValue{
				{r.Symbol, styles.BaseStyle},
				{tr.EntryTime.Format("2006-01-02"), styles.BaseStyle},
				{tr.ExitTime.Format("2006-01-02"), styles.BaseStyle},
				{tr.EntryPrice, styles.CurrencyStyle},
				{tr.ExitPrice, styles.CurrencyStyle},
				{tr.Quantity, styles.BaseStyle},
				{tr.Commission, styles.CurrencyStyle},
				{tr.PnL, styles.CurrencyStyle},
				{tr.PnLPct / 100, pnlStyle(styles, tr.PnLPct)},
				{tr.ExitReason, styles.BaseStyle},
			}); err != nil {
				return err
			}
			row++
		}
	}
	return fx.SetColWidth(tradesSheet, "A", "J", 14)
}
