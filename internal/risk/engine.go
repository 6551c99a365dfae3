package risk

import (
	"fmt"
)

// Config holds the risk thresholds. It is immutable once the engine is built.
type Config struct {
	MaxPositionSize int     `json:"max_position_size" yaml:"max_position_size"`
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	// IntradayProfitPct is in percentage points: 1.0 means 1%.
	IntradayProfitPct float64 `json:"intraday_profit_pct" yaml:"intraday_profit_pct"`
}

// DefaultConfig returns the stock thresholds
func DefaultConfig() Config {
	return Config{
		MaxPositionSize:   1,
		StopLossPct:       0.03,
		TakeProfitPct:     0.05,
		IntradayProfitPct: 1.0,
	}
}

// Validate checks the ranges of every threshold
func (c Config) Validate() error {
	if c.MaxPositionSize <= 0 {
		return fmt.Errorf("max_position_size must be positive, got %d", c.MaxPositionSize)
	}
	if c.StopLossPct <= 0 || c.StopLossPct > 1 {
		return fmt.Errorf("stop_loss_pct must be in (0,1], got %.4f", c.StopLossPct)
	}
	if c.TakeProfitPct <= 0 || c.TakeProfitPct > 1 {
		return fmt.Errorf("take_profit_pct must be in (0,1], got %.4f", c.TakeProfitPct)
	}
	if c.IntradayProfitPct <= 0 || c.IntradayProfitPct > 100 {
		return fmt.Errorf("intraday_profit_pct must be in (0,100] percentage points, got %.4f", c.IntradayProfitPct)
	}
	return nil
}

// Engine evaluates risk rules on (entry, current) price pairs. It holds no state
// beyond its Config.
type Engine struct {
	config Config
}

// NewEngine validates cfg and returns an engine
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk config: %w", err)
	}
	return &Engine{config: cfg}, nil
}

// Config returns a copy of the thresholds
func (e *Engine) Config() Config {
	return e.config
}

// AllowEntry is false iff openPositions has reached the ceiling
func (e *Engine) AllowEntry(openPositions int) bool {
	return openPositions < e.config.MaxPositionSize
}

// ShouldStopLoss reports a loss of at least stop_loss_pct of entry
func (e *Engine) ShouldStopLoss(entry, current float64) bool {
	if entry <= 0 {
		return false
	}
	return (entry-current)/entry >= e.config.StopLossPct
}

// ShouldTakeProfit reports a gain of at least take_profit_pct of entry
func (e *Engine) ShouldTakeProfit(entry, current float64) bool {
	if entry <= 0 {
		return false
	}
	return (current-entry)/entry >= e.config.TakeProfitPct
}

// ShouldTakeIntradayProfit reports a gain of at least thresholdPct percentage points
func (e *Engine) ShouldTakeIntradayProfit(entry, current, thresholdPct float64) bool {
	if entry <= 0 {
		return false
	}
	return (current-entry)/entry >= thresholdPct/100
}

// PnLPercent is the floating PnL of a long position in percent
func PnLPercent(entry, current float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (current - entry) / entry * 100
}
