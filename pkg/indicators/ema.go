package indicators

import (
	"fmt"

	"github.com/marketreplay/backtester/internal/market"
)

// EMA (Exponential Moving Average) weights recent closes more heavily
// than an SMA, so it reacts faster to a change in direction.
type EMA struct {
	period int
	name   string

	multiplier float64
	value      float64

	seed []float64

	isReady bool
}

// NewEMA creates an EMA indicator over period closes (defaults to 20).
// The first value is seeded with a plain SMA of the first period closes.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 20
	}
	return &EMA{
		period:     period,
		name:       fmt.Sprintf("EMA(%d)", period),
		multiplier: 2.0 / float64(period+1),
		seed:       make([]float64, 0, period),
	}
}

// Update folds one more bar's close into the EMA calculation.
func (e *EMA) Update(bar market.DataPoint) error {
	if bar.Close <= 0 {
		return fmt.Errorf("indicators: ema: close must be positive")
	}

	if !e.isReady {
		e.seed = append(e.seed, bar.Close)
		if len(e.seed) == e.period {
			e.value = SMA(e.seed)
			e.isReady = true
			e.seed = nil
		}
		return nil
	}

	e.value = (bar.Close-e.value)*e.multiplier + e.value
	return nil
}

// Value returns the current EMA value.
func (e *EMA) Value() float64 { return e.value }

// IsReady reports whether enough bars have been fed.
func (e *EMA) IsReady() bool { return e.isReady }

// Name identifies the indicator, e.g. "EMA(20)".
func (e *EMA) Name() string { return e.name }
