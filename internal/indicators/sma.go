package indicators

import (
	"github.com/ducminhle1904/equity-signal-bot/pkg/types"
	"github.com/markcheno/go-talib"
)

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period    int
	lastValue float64
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
	}
}

// Calculate returns the SMA of the last period closes
func (s *SMA) Calculate(data []types.OHLCV) (float64, error) {
	if len(data) < s.period || s.period <= 0 {
		return 0, insufficient("SMA", len(data), s.period)
	}

	value, ok := last(talib.Sma(types.Closes(data), s.period))
	if !ok {
		return 0, insufficient("SMA", len(data), s.period)
	}
	s.lastValue = value
	return value, nil
}

// ShouldBuy is true when price trades above the average
func (s *SMA) ShouldBuy(current float64, data []types.OHLCV) (bool, error) {
	sma, err := s.Calculate(data)
	if err != nil {
		return false, err
	}
	return current > sma, nil
}

// ShouldSell is true when price trades below the average
func (s *SMA) ShouldSell(current float64, data []types.OHLCV) (bool, error) {
	sma, err := s.Calculate(data)
	if err != nil {
		return false, err
	}
	return current < sma, nil
}

// LastValue returns the most recent calculation
func (s *SMA) LastValue() float64 {
	return s.lastValue
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}
