package backtest

import (
	"math"
)

// UpdateMetrics recomputes every derived statistic from Trades
func (b *BacktestResults) UpdateMetrics() {
	b.TotalTrades = len(b.Trades)
	b.WinningTrades, b.LosingTrades = 0, 0
	for _, t := range b.Trades {
		if t.PnL > 0 {
			b.WinningTrades++
		} else {
			b.LosingTrades++
		}
	}
	b.WinRate = b.CalculateWinRate()
	b.AvgPnLPct = b.CalculateAvgPnLPct()
	b.ProfitFactor = b.CalculateProfitFactor()
	b.SharpeRatio = b.CalculateSharpeRatio()
}

// CalculateSharpeRatio is the per-trade Sharpe ratio with a zero risk-free rate
func (b *BacktestResults) CalculateSharpeRatio() float64 {
	if len(b.Trades) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(b.Trades))
	for _, trade := range b.Trades {
		if trade.EntryPrice > 0 {
			returns = append(returns, (trade.ExitPrice-trade.EntryPrice)/trade.EntryPrice)
		}
	}
	if len(returns) < 2 {
		return 0
	}

	avgReturn := 0.0
	for _, r := range returns {
		avgReturn += r
	}
	avgReturn /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avgReturn, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}
	return avgReturn / stdDev
}

// CalculateProfitFactor is gross profit over gross loss. All-winning runs
// return +Inf.
func (b *BacktestResults) CalculateProfitFactor() float64 {
	totalProfit, totalLoss := 0.0, 0.0
	for _, trade := range b.Trades {
		if trade.PnL > 0 {
			totalProfit += trade.PnL
		} else {
			totalLoss += math.Abs(trade.PnL)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

// CalculateWinRate is the percentage of trades closed with positive PnL
func (b *BacktestResults) CalculateWinRate() float64 {
	if len(b.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, trade := range b.Trades {
		if trade.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(b.Trades)) * 100
}

// CalculateAvgPnLPct averages the price move of each trade
func (b *BacktestResults) CalculateAvgPnLPct() float64 {
	if len(b.Trades) == 0 {
		return 0
	}
	sum := 0.0
	for _, trade := range b.Trades {
		sum += trade.PnLPct
	}
	return sum / float64(len(b.Trades))
}

// ExitReasons counts trades per exit reason
func (b *BacktestResults) ExitReasons() map[string]int {
	out := make(map[string]int)
	for _, trade := range b.Trades {
		out[trade.ExitReason]++
	}
	return out
}
