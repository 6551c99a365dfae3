package indicators

import (
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
	"github.com/markcheno/go-talib"
)

// RSI is Wilder's Relative Strength Index
type RSI struct {
	period     int
	oversold   float64
	overbought float64
	lastValue  float64
}

// NewRSI creates an RSI with the classic 30/70 bands
func NewRSI(period int) *RSI {
	return NewRSIWithBands(period, 30, 70)
}

// NewRSIWithBands creates an RSI with custom oversold/overbought levels
func NewRSIWithBands(period int, oversold, overbought float64) *RSI {
	return &RSI{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}
}

// Calculate needs period+1 closes
func (r *RSI) Calculate(data []types.OHLCV) (float64, error) {
	need := r.GetRequiredPeriods()
	if len(data) < need || r.period <= 0 {
		return 0, insufficient("RSI", len(data), need)
	}

	value, ok := last(talib.Rsi(types.Closes(data), r.period))
	if !ok {
		return 0, insufficient("RSI", len(data), need)
	}
	r.lastValue = value
	return value, nil
}

// IsOversold reports value strictly below the oversold band
func (r *RSI) IsOversold(value float64) bool {
	return value < r.oversold
}

// IsOverbought reports value strictly above the overbought band
func (r *RSI) IsOverbought(value float64) bool {
	return value > r.overbought
}

// LastValue returns the most recent calculation
func (r *RSI) LastValue() float64 {
	return r.lastValue
}

// GetName returns the indicator name
func (r *RSI) GetName() string {
	return "RSI"
}

// GetRequiredPeriods returns period+1 since RSI works on price changes
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}
