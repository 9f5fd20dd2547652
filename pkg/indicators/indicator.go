// Package indicators implements the technical indicators internal/strategy
// drives per ticker: RSI, Bollinger Bands, EMA, and VWAP. Every indicator
// consumes market.DataPoint directly — the same bar shape the replay
// engine already produces — instead of a separate price-only type, so a
// strategy never has to translate between the engine's bars and the
// indicator's input.
package indicators

import (
	"math"

	"github.com/marketreplay/backtester/internal/market"
)

// Indicator is the contract every indicator in this package satisfies:
// feed bars one at a time, check IsReady, then read Value.
type Indicator interface {
	// Update folds one more bar into the indicator's running state.
	Update(bar market.DataPoint) error

	// Value returns the current indicator value. 0 before IsReady.
	Value() float64

	// IsReady reports whether enough bars have been fed to trust Value.
	IsReady() bool

	// Name identifies the indicator and its parameters, e.g. "RSI(14)".
	Name() string
}

// SMA calculates the simple moving average of prices.
func SMA(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

// StdDev calculates the standard deviation of prices around mean.
func StdDev(prices []float64, mean float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sumSquaredDiff := 0.0
	for _, p := range prices {
		diff := p - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(prices)))
}
