package types

import "time"

// OHLCV is one daily bar.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// Closes extracts the close series from bars in order.
func Closes(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Account is a point-in-time snapshot of broker funds.
type Account struct {
	Cash        float64
	Equity      float64
	BuyingPower float64
	Currency    string
}
