package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/ducminhle1904/equity-signal-bot/internal/config"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/equity-signal-bot/pkg/data"
)

// fetch-bars downloads daily candles from Bybit public market data into
// <outdir>/<SYMBOL>.csv for the paper broker and the backtester.
func main() {
	var (
		symbols     = flag.String("symbols", "", "Comma-separated symbols (default: the symbols file)")
		symbolsFile = flag.String("symbols-file", "symbols.txt", "Symbol list used when -symbols is empty")
		outdir      = flag.String("outdir", "data/bars", "Directory to write CSV files")
		days        = flag.Int("days", 365, "Daily candles per symbol (max 1000)")
		category    = flag.String("category", "linear", "Bybit market category (spot, linear)")
		testnet     = flag.Bool("testnet", false, "Use the Bybit testnet")
		timeout     = flag.Duration("timeout", 15*time.Second, "Per-request timeout")
	)
	flag.Parse()

	list, err := symbolList(*symbols, *symbolsFile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if len(list) == 0 {
		log.Fatal("❌ No symbols given; pass -symbols or fill the symbols file")
	}

	client := bybit.NewClient(bybit.Config{Testnet: *testnet, Category: *category})
	market := exchange.NewGuardedMarketData("bybit-market", client, exchange.GuardConfig{
		CallTimeout:    *timeout,
		RequestsPerSec: 5,
		Burst:          5,
	})

	failed := 0
	for _, symbol := range list {
		bars, err := market.GetDailyBars(context.Background(), symbol, *days)
		if err != nil {
			log.Printf("⚠️ %s: %v", symbol, err)
			failed++
			continue
		}
		if len(bars) == 0 {
			log.Printf("⚠️ %s: no candles returned", symbol)
			failed++
			continue
		}
		path := filepath.Join(*outdir, symbol+".csv")
		if err := data.WriteDailyCSV(path, bars); err != nil {
			log.Printf("⚠️ %s: %v", symbol, err)
			failed++
			continue
		}
		first, last := bars[0].Timestamp, bars[len(bars)-1].Timestamp
		fmt.Printf("✅ %s: %d bars %s → %s (%s)\n", symbol, len(bars),
			first.Format("2006-01-02"), last.Format("2006-01-02"), path)
	}

	if failed > 0 {
		log.Fatalf("❌ %d of %d symbol(s) failed", failed, len(list))
	}
}

func symbolList(flagValue, file string) ([]string, error) {
	if strings.TrimSpace(flagValue) == "" {
		return config.LoadSymbols(file)
	}
	var out []string
	for _, s := range strings.Split(flagValue, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
