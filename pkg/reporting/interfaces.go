package reporting

import (
	"github.com/ducminhle1904/equity-signal-bot/internal/backtest"
)

// Package reporting renders backtest results for the console and for files

// ConsoleReporter prints results to a terminal
type ConsoleReporter interface {
	OutputResults(results *backtest.BacktestResults)
	OutputComparison(results []backtest.BacktestResult)
}

// FileReporter writes results to disk
type FileReporter interface {
	WriteTradesCSV(results *backtest.BacktestResults, path string) error
	WriteTradesXLSX(results []*backtest.BacktestResults, path string) error
}

// ExcelStyles holds workbook cell styles
type ExcelStyles struct {
	HeaderStyle       int
	CurrencyStyle     int
	PercentStyle      int
	BaseStyle         int
	RedPercentStyle   int
	GreenPercentStyle int
}
