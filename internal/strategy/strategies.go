package strategy

import (
	"fmt"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/indicators"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

func hold(price float64, reason string) *Decision {
	return &Decision{Signal: SignalHold, Price: price, Reason: reason}
}

func lastClose(bars []types.OHLCV) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}

// insufficientHold maps short history to HOLD and passes other errors up
func insufficientHold(bars []types.OHLCV, err error) (*Decision, error) {
	if boterrors.IsCategory(err, boterrors.ErrorCategoryDataInsufficient) {
		return hold(lastClose(bars), err.Error()), nil
	}
	return nil, err
}

// Hybrid buys an oversold dip inside an uptrend and sells an overbought
// rally inside a downtrend.
type Hybrid struct {
	SMAPeriod  int
	RSIPeriod  int
	Oversold   float64
	Overbought float64
}

// NewHybrid uses SMA(20) and RSI(14) with 30/70 bands
func NewHybrid() *Hybrid {
	return &Hybrid{SMAPeriod: 20, RSIPeriod: 14, Oversold: 30, Overbought: 70}
}

func (h *Hybrid) GetName() string { return "hybrid" }

func (h *Hybrid) Evaluate(bars []types.OHLCV) (*Decision, error) {
	price := lastClose(bars)
	if len(bars) < MinBars {
		return hold(price, fmt.Sprintf("only %d bars", len(bars))), nil
	}

	sma, err := indicators.NewSMA(h.SMAPeriod).Calculate(bars)
	if err != nil {
		return insufficientHold(bars, err)
	}
	rsi := indicators.NewRSIWithBands(h.RSIPeriod, h.Oversold, h.Overbought)
	value, err := rsi.Calculate(bars)
	if err != nil {
		return insufficientHold(bars, err)
	}

	reason := fmt.Sprintf("price %.2f, SMA(%d) %.2f, RSI(%d) %.2f", price, h.SMAPeriod, sma, h.RSIPeriod, value)
	switch {
	case price > sma && rsi.IsOversold(value):
		return &Decision{Signal: SignalBuy, Price: price, Reason: reason}, nil
	case price < sma && rsi.IsOverbought(value):
		return &Decision{Signal: SignalSell, Price: price, Reason: reason}, nil
	default:
		return hold(price, reason), nil
	}
}

// RSIStrategy trades RSI bands alone
type RSIStrategy struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// NewRSIStrategy uses RSI(14) with 40/60 bands
func NewRSIStrategy() *RSIStrategy {
	return &RSIStrategy{Period: 14, Oversold: 40, Overbought: 60}
}

func (r *RSIStrategy) GetName() string { return "rsi" }

func (r *RSIStrategy) Evaluate(bars []types.OHLCV) (*Decision, error) {
	price := lastClose(bars)
	if len(bars) < MinBars {
		return hold(price, fmt.Sprintf("only %d bars", len(bars))), nil
	}

	rsi := indicators.NewRSIWithBands(r.Period, r.Oversold, r.Overbought)
	value, err := rsi.Calculate(bars)
	if err != nil {
		return insufficientHold(bars, err)
	}

	reason := fmt.Sprintf("price %.2f, RSI(%d) %.2f", price, r.Period, value)
	switch {
	case rsi.IsOversold(value):
		return &Decision{Signal: SignalBuy, Price: price, Reason: reason}, nil
	case rsi.IsOverbought(value):
		return &Decision{Signal: SignalSell, Price: price, Reason: reason}, nil
	default:
		return hold(price, reason), nil
	}
}

// SMAStrategy follows price against a short moving average
type SMAStrategy struct {
	Period int
}

// NewSMAStrategy uses SMA(5)
func NewSMAStrategy() *SMAStrategy {
	return &SMAStrategy{Period: 5}
}

func (s *SMAStrategy) GetName() string { return "sma" }

func (s *SMAStrategy) Evaluate(bars []types.OHLCV) (*Decision, error) {
	price := lastClose(bars)
	if len(bars) < MinBars {
		return hold(price, fmt.Sprintf("only %d bars", len(bars))), nil
	}

	sma, err := indicators.NewSMA(s.Period).Calculate(bars)
	if err != nil {
		return insufficientHold(bars, err)
	}

	reason := fmt.Sprintf("price %.2f, SMA(%d) %.2f", price, s.Period, sma)
	switch {
	case price > sma:
		return &Decision{Signal: SignalBuy, Price: price, Reason: reason}, nil
	case price < sma:
		return &Decision{Signal: SignalSell, Price: price, Reason: reason}, nil
	default:
		return hold(price, reason), nil
	}
}
