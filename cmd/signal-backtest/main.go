package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/equity-signal-bot/cmd/common"
	"github.com/ducminhle1904/equity-signal-bot/internal/backtest"
	"github.com/ducminhle1904/equity-signal-bot/internal/config"
	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
	"github.com/ducminhle1904/equity-signal-bot/pkg/data"
	"github.com/ducminhle1904/equity-signal-bot/pkg/reporting"
)

func main() {
	var (
		dataPath     = flag.String("data", "data/bars", "Daily CSV file, or a directory of <SYMBOL>.csv files")
		symbols      = flag.String("symbol", "", "Comma-separated symbols to test (default: every CSV in -data)")
		strategyName = flag.String("strategy", "hybrid", "Strategy: "+strings.Join(strategy.Names(), ", "))
		days         = flag.Int("days", backtest.DefaultDays, "Trailing daily bars to replay")
		excelPath    = flag.String("excel", "", "Write an Excel workbook to this path ('auto' picks results/<name>.xlsx)")
		csvPath      = flag.String("csv", "", "Write a trades CSV to this path (single symbol only)")
		configFile   = flag.String("config", "", "Bot configuration to take risk settings from")
		envFile      = flag.String("env", ".env", "Environment file path")
		balance      = flag.Float64("balance", 10000, "Starting balance")
		commission   = flag.Float64("commission", 0.0005, "Commission per side as a fraction")
		workers      = flag.Int("workers", 0, "Parallel backtests (0 = one per CPU)")
		showVersion  = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		common.PrintVersion("signal-backtest")
		return
	}

	if err := common.LoadEnvFile(*envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v)", err)
	}

	strat, ok := strategy.New(*strategyName)
	if !ok {
		log.Fatalf("❌ Unknown strategy %q (want one of %s)", *strategyName, strings.Join(strategy.Names(), ", "))
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalf("❌ Configuration error: %v", err)
		}
	}

	jobs, err := buildJobs(*dataPath, *symbols, strat, backtest.Config{
		InitialBalance: *balance,
		Commission:     *commission,
		Days:           *days,
		Risk:           cfg.Risk,
	})
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🔄 Backtesting %d symbol(s) with %s over the last %d bars\n", len(jobs), strat.GetName(), *days)
	started := time.Now()
	results := backtest.NewWorkerPool(*workers).Run(ctx, jobs)
	fmt.Printf("⏱️ Finished in %s\n", time.Since(started).Round(time.Millisecond))

	console := reporting.NewDefaultConsoleReporter(os.Stdout)
	var completed []*backtest.BacktestResults
	for _, r := range results {
		if r.Error != nil {
			log.Printf("⚠️ %s: %v", r.Symbol, r.Error)
			continue
		}
		console.OutputResults(r.Results)
		completed = append(completed, r.Results)
	}
	if len(results) > 1 {
		console.OutputComparison(results)
	}

	if *excelPath != "" && len(completed) > 0 {
		path := *excelPath
		if path == "auto" {
			name := completed[0].Symbol
			if len(completed) > 1 {
				name = ""
			}
			path = reporting.DefaultOutputPath(name, strat.GetName(), "xlsx", time.Now())
		}
		if err := reporting.WriteTradesXLSX(completed, path); err != nil {
			log.Fatalf("❌ Excel export failed: %v", err)
		}
		fmt.Printf("📁 Workbook written to %s\n", path)
	}

	if *csvPath != "" {
		if len(completed) != 1 {
			log.Fatalf("❌ -csv needs exactly one completed backtest, have %d", len(completed))
		}
		if err := reporting.WriteTradesCSV(completed[0], *csvPath); err != nil {
			log.Fatalf("❌ CSV export failed: %v", err)
		}
		fmt.Printf("📁 Trades written to %s\n", *csvPath)
	}
}

// buildJobs loads bars for every requested symbol. A file path is a single
// symbol named after the file.
func buildJobs(dataPath, symbolList string, strat strategy.Strategy, base backtest.Config) ([]backtest.BacktestJob, error) {
	info, err := os.Stat(dataPath)
	if err != nil {
		return nil, fmt.Errorf("data path: %w", err)
	}

	files := make(map[string]string)
	switch {
	case !info.IsDir():
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath)))
		files[symbol] = dataPath

	case symbolList == "":
		symbols, err := data.ListSymbols(dataPath)
		if err != nil {
			return nil, err
		}
		for _, s := range symbols {
			files[s] = data.FindSymbolFile(dataPath, s)
		}

	default:
		for _, s := range strings.Split(symbolList, ",") {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			path := data.FindSymbolFile(dataPath, s)
			if path == "" {
				return nil, fmt.Errorf("no CSV for %s in %s", s, dataPath)
			}
			files[s] = path
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no symbols to backtest in %s", dataPath)
	}

	provider := data.NewCSVProvider()
	jobs := make([]backtest.BacktestJob, 0, len(files))
	for symbol, path := range files {
		bars, err := provider.LoadData(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", symbol, err)
		}
		cfg := base
		cfg.Symbol = symbol
		jobs = append(jobs, backtest.BacktestJob{Config: cfg, Data: bars, Strategy: strat})
	}
	return jobs, nil
}
