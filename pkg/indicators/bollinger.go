package indicators

import (
	"fmt"

	"github.com/marketreplay/backtester/internal/market"
)

// BollingerBands tracks an SMA middle band plus upper/lower bands k
// standard deviations away, for spotting mean-reversion entries/exits.
type BollingerBands struct {
	period int
	stdDev float64
	name   string

	closes []float64

	middle float64
	upper  float64
	lower  float64

	isReady bool
}

// NewBollingerBands creates a Bollinger Bands indicator. period defaults
// to 20, stdDev (k) to 2.0.
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	if period < 2 {
		period = 20
	}
	if stdDev <= 0 {
		stdDev = 2.0
	}
	return &BollingerBands{
		period: period,
		stdDev: stdDev,
		name:   fmt.Sprintf("BB(%d,%.1f)", period, stdDev),
		closes: make([]float64, 0, period),
	}
}

// Update folds one more bar's close into the band calculation.
func (bb *BollingerBands) Update(bar market.DataPoint) error {
	if bar.Close <= 0 {
		return fmt.Errorf("indicators: bollinger: close must be positive")
	}

	bb.closes = append(bb.closes, bar.Close)
	if len(bb.closes) > bb.period {
		bb.closes = bb.closes[1:]
	}
	if len(bb.closes) < bb.period {
		bb.isReady = false
		return nil
	}

	bb.middle = SMA(bb.closes)
	dev := StdDev(bb.closes, bb.middle)
	bb.upper = bb.middle + (bb.stdDev * dev)
	bb.lower = bb.middle - (bb.stdDev * dev)
	bb.isReady = true
	return nil
}

// Value returns the middle band (SMA).
func (bb *BollingerBands) Value() float64 { return bb.middle }

// Middle returns the middle band (SMA).
func (bb *BollingerBands) Middle() float64 { return bb.middle }

// IsAboveUpperBand reports whether price is above the upper band.
func (bb *BollingerBands) IsAboveUpperBand(price float64) bool {
	return bb.isReady && price > bb.upper
}

// IsBelowLowerBand reports whether price is below the lower band.
func (bb *BollingerBands) IsBelowLowerBand(price float64) bool {
	return bb.isReady && price < bb.lower
}

// IsReady reports whether enough bars have been fed.
func (bb *BollingerBands) IsReady() bool { return bb.isReady }

// Name identifies the indicator, e.g. "BB(20,2.0)".
func (bb *BollingerBands) Name() string { return bb.name }
