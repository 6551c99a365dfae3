package reporting

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/equity-signal-bot/internal/backtest"
)

// DefaultConsoleReporter renders results as go-pretty tables
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter writes to out; nil means os.Stdout
func NewDefaultConsoleReporter(out io.Writer) *DefaultConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &DefaultConsoleReporter{out: out}
}

// OutputResults prints the summary and the trade list of one backtest
func (r *DefaultConsoleReporter) OutputResults(results *backtest.BacktestResults) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("📊 BACKTEST %s (%s)", results.Symbol, results.Strategy))
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Period", fmt.Sprintf("%s → %s (%d bars)", results.StartTime.Format("2006-01-02"), results.EndTime.Format("2006-01-02"), results.Bars)},
		{"Initial Balance", fmt.Sprintf("$%.2f", results.StartBalance)},
		{"Final Balance", fmt.Sprintf("$%.2f", results.EndBalance)},
		{"Total Return", fmt.Sprintf("%.2f%%", results.TotalReturn*100)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", results.MaxDrawdown*100)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trades", results.TotalTrades},
		{"Win Rate", fmt.Sprintf("%.1f%% (%d/%d)", results.WinRate, results.WinningTrades, results.TotalTrades)},
		{"Avg PnL", fmt.Sprintf("%+.2f%%", results.AvgPnLPct)},
		{"Profit Factor", formatRatio(results.ProfitFactor)},
		{"Sharpe (per trade)", fmt.Sprintf("%.2f", results.SharpeRatio)},
	})

	reasons := results.ExitReasons()
	if len(reasons) > 0 {
		t.AppendSeparator()
		keys := make([]string, 0, len(reasons))
		for k := range reasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.AppendRow(table.Row{"Exit: " + k, reasons[k]})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignLeft},
	})
	t.Render()

	if len(results.Trades) == 0 {
		fmt.Fprintln(r.out, "ℹ️ No trades in the replayed window")
		return
	}
	r.outputTrades(results)
}

func (r *DefaultConsoleReporter) outputTrades(results *backtest.BacktestResults) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Entry", "Entry Price", "Exit", "Exit Price", "PnL %", "PnL $", "Reason"})
	for i, tr := range results.Trades {
		t.AppendRow(table.Row{
			i + 1,
			tr.EntryTime.Format("2006-01-02"),
			fmt.Sprintf("%.2f", tr.EntryPrice),
			tr.ExitTime.Format("2006-01-02"),
			fmt.Sprintf("%.2f", tr.ExitPrice),
			fmt.Sprintf("%+.2f", tr.PnLPct),
			fmt.Sprintf("%+.2f", tr.PnL),
			tr.ExitReason,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

// OutputComparison prints one row per symbol for a batch run
func (r *DefaultConsoleReporter) OutputComparison(results []backtest.BacktestResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("🏁 BATCH SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Trades", "Win Rate", "Avg PnL %", "Return %", "Max DD %", "Status"})
	for _, res := range results {
		if res.Error != nil {
			t.AppendRow(table.Row{res.Symbol, "-", "-", "-", "-", "-", "❌ " + res.Error.Error()})
			continue
		}
		br := res.Results
		t.AppendRow(table.Row{
			res.Symbol,
			br.TotalTrades,
			fmt.Sprintf("%.1f%%", br.WinRate),
			fmt.Sprintf("%+.2f", br.AvgPnLPct),
			fmt.Sprintf("%+.2f", br.TotalReturn*100),
			fmt.Sprintf("%.2f", br.MaxDrawdown*100),
			"✅",
		})
	}
	t.Render()
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", v)
}
