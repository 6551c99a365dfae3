package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/sync/errgroup"

	"github.com/ducminhle1904/equity-signal-bot/cmd/common"
	"github.com/ducminhle1904/equity-signal-bot/internal/bot"
	"github.com/ducminhle1904/equity-signal-bot/internal/config"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange/adapters"
	"github.com/ducminhle1904/equity-signal-bot/internal/logger"
	"github.com/ducminhle1904/equity-signal-bot/internal/monitoring"
	"github.com/ducminhle1904/equity-signal-bot/internal/notifications"
	"github.com/ducminhle1904/equity-signal-bot/internal/risk"
	"github.com/ducminhle1904/equity-signal-bot/internal/safety"
	"github.com/ducminhle1904/equity-signal-bot/internal/state"
	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file (.yaml or .json); empty uses defaults")
		envFile     = flag.String("env", ".env", "Environment file path")
		brokerName  = flag.String("broker", "", "Override broker: paper or bybit")
		once        = flag.Bool("once", false, "Run one pass over all symbols, ignoring market hours, then exit")
		onlySymbol  = flag.String("symbol", "", "With -once, evaluate only this symbol")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		common.PrintVersion("signal-bot")
		return
	}

	if err := common.LoadEnvFile(*envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	cfg, err := loadConfig(*configFile, *brokerName)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *onlySymbol != "" && !*once {
		log.Fatal("❌ -symbol needs -once")
	}

	if err := run(ctx, cfg, *once, *onlySymbol); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func loadConfig(path, brokerOverride string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if brokerOverride != "" {
		cfg.Broker.Name = strings.ToLower(brokerOverride)
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, once bool, onlySymbol string) error {
	hours, err := bot.MarketHoursFromConfig(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	// daily files follow the session date, not the host's
	tradeLog, err := logger.NewLogger(logger.Config{
		Dir:      cfg.LogDir,
		KeepDays: cfg.KeepDays,
		Now:      hours.Clock(time.Now),
	})
	if err != nil {
		return fmt.Errorf("failed to open trade log: %w", err)
	}
	defer tradeLog.Close()

	guard := exchange.GuardConfig{
		CallTimeout: cfg.Schedule.CallTimeout.D(),
		OnStateChange: func(name string, from, to safety.CircuitBreakerState) {
			tradeLog.Warning("Circuit %s: %s -> %s", name, from, to)
		},
	}
	gws, err := adapters.NewFactory().Create(cfg.Broker, guard)
	if err != nil {
		return fmt.Errorf("failed to create broker: %w", err)
	}

	store := state.NewPositionStore(state.NewFileKV(cfg.StateFile, true), tradeLog)
	store.Load()

	strat, _ := strategy.New(cfg.Strategy)
	signals := strategy.NewBarProvider(gws.Market, strat, cfg.HistoryDays)

	riskEngine, err := risk.NewEngine(cfg.Risk)
	if err != nil {
		return err
	}

	health := monitoring.NewHealthChecker(func() []string {
		return append(gws.Broker.OpenCircuits(), gws.Market.OpenCircuits()...)
	})

	loop, err := bot.NewDecisionLoop(bot.Dependencies{
		Broker:   gws.Broker,
		Signals:  signals,
		Risk:     riskEngine,
		Store:    store,
		Logger:   tradeLog,
		Notifier: newNotifier(cfg.Notifications),
		Health:   health,
	}, bot.LoopConfig{
		OrderQty:    cfg.Order.Qty,
		TimeInForce: exchange.ParseTimeInForce(cfg.Order.TimeInForce),
		CallTimeout: cfg.Schedule.CallTimeout.D(),
	})
	if err != nil {
		return err
	}

	watcher, err := config.NewSymbolWatcher(cfg.SymbolsFile, func(symbols []string, err error) {
		if err != nil {
			tradeLog.LogError("Symbol list reload failed, keeping previous list", err)
			return
		}
		tradeLog.Info("Symbol list reloaded: %s", strings.Join(symbols, ", "))
	})
	if err != nil {
		return fmt.Errorf("failed to load symbols: %w", err)
	}

	scheduler := bot.NewScheduler(loop, watcher.Symbols, signals, bot.SchedulerConfig{
		Hours:          hours,
		CycleInterval:  cfg.Schedule.CycleInterval.D(),
		ClosedInterval: cfg.Schedule.ClosedInterval.D(),
		CallTimeout:    cfg.Schedule.CallTimeout.D(),
	})

	printConfiguration(cfg, gws, watcher.Symbols(), store.Symbols())
	defer printPaperResult(gws)

	if once && onlySymbol != "" {
		outcome, err := loop.EvaluateSymbol(ctx, onlySymbol)
		printOutcomes([]bot.Outcome{outcome})
		return err
	}
	if once {
		outcomes, err := scheduler.RunOnce(ctx)
		if err != nil {
			return err
		}
		printOutcomes(outcomes)
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	// the scheduler ending (session closed or shutdown) stops everything else
	g.Go(func() error {
		defer cancel()
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	if cfg.Monitoring.ListenAddr != "" {
		staleAfter := 3*cfg.Schedule.CycleInterval.D() + cfg.Schedule.CallTimeout.D()
		server := &http.Server{
			Addr:              cfg.Monitoring.ListenAddr,
			Handler:           monitoring.NewServeMux(health, staleAfter),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			fmt.Printf("📈 Metrics and health on %s\n", cfg.Monitoring.ListenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("monitoring server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return server.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func newNotifier(cfg config.NotificationConfig) notifications.Notifier {
	if cfg.Telegram.Enabled {
		return notifications.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
	}
	return notifications.NopNotifier{}
}

func printConfiguration(cfg *config.Config, gws *adapters.Gateways, symbols, tracked []string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("🚀 SIGNAL BOT CONFIGURATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Broker", gws.Broker.GetName()},
		{"Strategy", cfg.Strategy},
		{"Symbols", fmt.Sprintf("%d (%s)", len(symbols), cfg.SymbolsFile)},
		{"Order", fmt.Sprintf("qty %g, %s", cfg.Order.Qty, exchange.ParseTimeInForce(cfg.Order.TimeInForce))},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Max Positions", cfg.Risk.MaxPositionSize},
		{"Stop Loss", fmt.Sprintf("%.2f%%", cfg.Risk.StopLossPct*100)},
		{"Take Profit", fmt.Sprintf("%.2f%%", cfg.Risk.TakeProfitPct*100)},
		{"Intraday Profit", fmt.Sprintf("%.2f%%", cfg.Risk.IntradayProfitPct)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Session", fmt.Sprintf("%s-%s %s", cfg.Schedule.SessionOpen, cfg.Schedule.SessionClose, cfg.Schedule.Timezone)},
		{"Cycle", cfg.Schedule.CycleInterval.String()},
		{"Entry Store", cfg.StateFile},
		{"Tracked", trackedLabel(tracked)},
		{"Log Dir", cfg.LogDir},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, WidthMax: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 50, Align: text.AlignLeft},
	})
	t.Render()
}

func trackedLabel(tracked []string) string {
	if len(tracked) == 0 {
		return "none (flat)"
	}
	return strings.Join(tracked, ", ")
}

func printOutcomes(outcomes []bot.Outcome) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("CYCLE RESULT")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Price", "Signal", "State", "Action", "Reason", "Note"})
	for _, o := range outcomes {
		note := ""
		if o.Err != nil {
			note = o.Err.Error()
		} else if o.State == bot.StateLong && o.Action == bot.ActionNone {
			note = fmt.Sprintf("%s %+.2f%%", logger.DirectionLabel(o.PnLPct), o.PnLPct)
		}
		t.AppendRow(table.Row{o.Symbol, fmt.Sprintf("%.2f", o.Price), o.Signal, o.State, o.Action, o.Reason, note})
	}
	t.Render()
}

func printPaperResult(gws *adapters.Gateways) {
	if gws.Paper == nil {
		return
	}
	fmt.Printf("📝 Paper session: %d fill(s), realized PnL $%.2f\n", len(gws.Paper.Fills()), gws.Paper.RealizedPnL())
}
