package bot

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/internal/logger"
	"github.com/ducminhle1904/equity-signal-bot/internal/monitoring"
	"github.com/ducminhle1904/equity-signal-bot/internal/notifications"
	"github.com/ducminhle1904/equity-signal-bot/internal/risk"
	"github.com/ducminhle1904/equity-signal-bot/internal/state"
	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
)

// Previewer evaluates a symbol's signal with its indicator summary
type Previewer interface {
	Evaluate(ctx context.Context, symbol string) (*strategy.Decision, error)
}

// SchedulerConfig controls pacing and the end-of-day report
type SchedulerConfig struct {
	Hours          MarketHours
	CycleInterval  time.Duration
	ClosedInterval time.Duration
	CallTimeout    time.Duration
	TailLines      int

	// Output receives the end-of-day tables; nil means os.Stdout
	Output io.Writer
	Now    func() time.Time
	// Sleep waits d or until ctx is done
	Sleep func(ctx context.Context, d time.Duration) error
}

// Scheduler drives the decision loop through one trading session
type Scheduler struct {
	loop     *DecisionLoop
	symbols  func() []string
	broker   exchange.BrokerGateway
	store    *state.PositionStore
	preview  Previewer
	logger   *logger.Logger
	notifier notifications.Notifier
	health   *monitoring.HealthChecker
	cfg      SchedulerConfig

	cycleDay string // session date of the most recent cycle
}

// NewScheduler wires a scheduler around loop. symbols is read once per
// cycle, so list edits apply on the next pass. preview may be nil.
func NewScheduler(loop *DecisionLoop, symbols func() []string, preview Previewer, cfg SchedulerConfig) *Scheduler {
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = 30 * time.Second
	}
	if cfg.ClosedInterval <= 0 {
		cfg.ClosedInterval = 5 * time.Minute
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = loop.cfg.CallTimeout
	}
	if cfg.TailLines <= 0 {
		cfg.TailLines = 20
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Hours.loc == nil {
		cfg.Hours.loc = time.Local
	}

	return &Scheduler{
		loop:     loop,
		symbols:  symbols,
		broker:   loop.deps.Broker,
		store:    loop.deps.Store,
		preview:  preview,
		logger:   loop.deps.Logger,
		notifier: loop.deps.Notifier,
		health:   loop.deps.Health,
		cfg:      cfg,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run loops until the session of a day with at least one cycle has closed,
// prints the end-of-day summary and returns. Cancelling ctx returns nil
// after the symbol being evaluated finishes.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Status("Scheduler started: session %s-%s %s, cycle %s",
		formatClock(s.cfg.Hours.open), formatClock(s.cfg.Hours.close), s.cfg.Hours.loc, s.cfg.CycleInterval)

	for {
		if ctx.Err() != nil {
			s.logger.Status("Scheduler stopped")
			return nil
		}

		now := s.cfg.Now()
		open := s.cfg.Hours.IsOpen(now)
		if s.health != nil {
			s.health.SetMarketOpen(open)
		}

		wait := s.cfg.ClosedInterval
		switch {
		case open:
			if err := s.cycle(ctx); err != nil {
				s.logger.LogError("Cycle skipped", err)
			}
			s.cycleDay = s.cfg.Hours.Day(now)
			wait = s.cfg.CycleInterval

		case s.cycleDay != "" && s.cycleDay == s.cfg.Hours.Day(now) && s.cfg.Hours.AfterClose(now):
			s.EndOfDay(ctx)
			s.logger.Status("Session closed, exiting until the next start")
			return nil
		}

		if err := s.cfg.Sleep(ctx, wait); err != nil {
			s.logger.Status("Scheduler stopped")
			return nil
		}
	}
}

// RunOnce runs a single cycle regardless of market hours
func (s *Scheduler) RunOnce(ctx context.Context) ([]Outcome, error) {
	outcomes, err := s.loop.RunCycle(ctx, s.symbols())
	if err != nil {
		return nil, err
	}
	s.logCycle(outcomes)
	return outcomes, nil
}

func (s *Scheduler) cycle(ctx context.Context) error {
	symbols := s.symbols()
	if len(symbols) == 0 {
		s.logger.Warning("Symbol list is empty, nothing to evaluate")
		return nil
	}
	outcomes, err := s.loop.RunCycle(ctx, symbols)
	if err != nil {
		return err
	}
	s.logCycle(outcomes)
	return nil
}

func (s *Scheduler) logCycle(outcomes []Outcome) {
	var buys, sells, failed int
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
		case o.Action == ActionBuy:
			buys++
		case o.Action == ActionSell:
			sells++
		}
	}
	s.logger.Status("Cycle done: %d symbol(s), %d buy, %d sell, %d failed", len(outcomes), buys, sells, failed)
}

// PositionSummary is one open position in the end-of-day report
type PositionSummary struct {
	Symbol   string
	Quantity float64
	Entry    float64
	Current  float64
	PnLPct   float64
	// EntryLost means the store had no entry; Entry is the broker's average
	EntryLost bool
}

// PreviewLine is the next-session signal for one symbol
type PreviewLine struct {
	Symbol string
	Signal strategy.Signal
	Price  float64
	Reason string
	Err    error
}

// Summary is the end-of-day report
type Summary struct {
	Date      string
	Positions []PositionSummary
	LogTail   []string
	Preview   []PreviewLine
}

// EndOfDay builds and prints the summary. Each part degrades on its own
// when its source fails.
func (s *Scheduler) EndOfDay(ctx context.Context) *Summary {
	sum := &Summary{Date: s.cfg.Hours.Day(s.cfg.Now())}

	positions, err := s.openPositions(ctx)
	if err != nil {
		s.logger.LogError("EOD positions unavailable", err)
	}
	sum.Positions = positions

	tail, err := s.logger.Tail(s.cfg.TailLines)
	if err != nil {
		s.logger.LogError("EOD log tail unavailable", err)
	}
	sum.LogTail = tail

	sum.Preview = s.previewSignals(ctx)

	s.render(sum)
	s.logger.Status("EOD %s: %d open position(s)", sum.Date, len(sum.Positions))

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	if err := s.notifier.SendAlert(callCtx, notifications.LevelInfo, summaryAlert(sum)); err != nil {
		s.logger.Warning("notification failed: %v", err)
	}
	return sum
}

func (s *Scheduler) openPositions(ctx context.Context) ([]PositionSummary, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	positions, err := s.broker.GetOpenPositions(callCtx)
	if err != nil {
		return nil, err
	}

	out := make([]PositionSummary, 0, len(positions))
	for _, p := range positions {
		if p.Quantity <= 0 {
			continue
		}
		ps := PositionSummary{
			Symbol:   strings.ToUpper(p.Symbol),
			Quantity: p.Quantity,
			Current:  p.CurrentPrice,
		}
		entry, ok := s.store.GetEntry(ps.Symbol)
		switch {
		case !ok:
			ps.Entry, ps.EntryLost = p.AvgEntry, true
			if ps.Current > 0 {
				ps.PnLPct = p.UnrealizedPnLPercent()
			}
		default:
			ps.Entry = entry
			if ps.Current > 0 {
				ps.PnLPct = risk.PnLPercent(entry, ps.Current)
			}
		}
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *Scheduler) previewSignals(ctx context.Context) []PreviewLine {
	if s.preview == nil {
		return nil
	}
	var lines []PreviewLine
	for _, symbol := range s.symbols() {
		if ctx.Err() != nil {
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		decision, err := s.preview.Evaluate(callCtx, symbol)
		cancel()

		line := PreviewLine{Symbol: symbol, Signal: strategy.SignalHold, Err: err}
		if err != nil {
			if gerr := boterrors.Categorize(err, "bot", "Preview"); gerr != nil && s.health != nil {
				s.health.RecordError(gerr)
			}
		} else {
			line.Signal, line.Price, line.Reason = decision.Signal, decision.Price, decision.Reason
		}
		lines = append(lines, line)
	}
	return lines
}

func (s *Scheduler) render(sum *Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(s.cfg.Output)
	t.SetTitle("END OF DAY " + sum.Date)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Qty", "Entry", "Current", "PnL %", "Status"})
	for _, p := range sum.Positions {
		entry := fmt.Sprintf("%.2f", p.Entry)
		if p.EntryLost {
			entry += " *"
		}
		t.AppendRow(table.Row{
			p.Symbol,
			fmt.Sprintf("%g", p.Quantity),
			entry,
			fmt.Sprintf("%.2f", p.Current),
			fmt.Sprintf("%+.2f", p.PnLPct),
			logger.DirectionLabel(p.PnLPct),
		})
	}
	if len(sum.Positions) == 0 {
		t.AppendRow(table.Row{"-", "", "", "", "", "no open positions"})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()

	if len(sum.Preview) > 0 {
		pt := table.NewWriter()
		pt.SetOutputMirror(s.cfg.Output)
		pt.SetTitle("NEXT SESSION SIGNALS")
		pt.SetStyle(table.StyleRounded)
		pt.AppendHeader(table.Row{"Symbol", "Signal", "Close", "Reason"})
		for _, l := range sum.Preview {
			reason := l.Reason
			if l.Err != nil {
				reason = "error: " + l.Err.Error()
			}
			pt.AppendRow(table.Row{l.Symbol, l.Signal.String(), fmt.Sprintf("%.2f", l.Price), reason})
		}
		pt.SetColumnConfigs([]table.ColumnConfig{
			{Number: 4, WidthMax: 60},
		})
		pt.Render()
	}

	fmt.Fprintf(s.cfg.Output, "📜 Last %d log line(s):\n", len(sum.LogTail))
	for _, line := range sum.LogTail {
		fmt.Fprintln(s.cfg.Output, "   "+line)
	}
}

func summaryAlert(sum *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EOD %s: %d open position(s)", sum.Date, len(sum.Positions))
	for _, p := range sum.Positions {
		fmt.Fprintf(&b, "\n%s %+.2f%%", p.Symbol, p.PnLPct)
	}
	for _, l := range sum.Preview {
		if l.Err == nil && l.Signal != strategy.SignalHold {
			fmt.Fprintf(&b, "\nnext: %s %s", l.Symbol, l.Signal)
		}
	}
	return b.String()
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
