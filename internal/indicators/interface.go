package indicators

import (
	"math"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
)

// TechnicalIndicator is a single-value indicator over daily bars
type TechnicalIndicator interface {
	Calculate(data []types.OHLCV) (float64, error)
	GetName() string
	GetRequiredPeriods() int
}

func insufficient(name string, have, need int) error {
	return boterrors.NewDataInsufficientError("indicators", name, have, need)
}

// last returns the final finite value of a talib series
func last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
