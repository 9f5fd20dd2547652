package indicators

import (
	"fmt"

	"github.com/marketreplay/backtester/internal/market"
)

// VWAP (Volume Weighted Average Price) tracks the running typical-price
// average weighted by volume, resetting at the start of each trading day.
type VWAP struct {
	name string

	cumulativePriceVolume float64
	cumulativeVolume      float64
	value                 float64

	currentDay string
	isReady    bool
}

// NewVWAP creates a VWAP indicator.
func NewVWAP() *VWAP {
	return &VWAP{name: "VWAP"}
}

// Update folds one more bar into the VWAP calculation, resetting the
// accumulator whenever bar.Timestamp falls on a new calendar day.
func (v *VWAP) Update(bar market.DataPoint) error {
	if bar.Volume <= 0 {
		return fmt.Errorf("indicators: vwap: volume must be positive")
	}

	day := bar.Timestamp.Format("2006-01-02")
	if day != v.currentDay {
		v.reset()
		v.currentDay = day
	}

	typicalPrice := (bar.High + bar.Low + bar.Close) / 3.0
	v.cumulativePriceVolume += typicalPrice * bar.Volume
	v.cumulativeVolume += bar.Volume

	if v.cumulativeVolume > 0 {
		v.value = v.cumulativePriceVolume / v.cumulativeVolume
		v.isReady = true
	}
	return nil
}

func (v *VWAP) reset() {
	v.cumulativePriceVolume = 0
	v.cumulativeVolume = 0
	v.value = 0
	v.isReady = false
}

// Value returns the current VWAP value.
func (v *VWAP) Value() float64 { return v.value }

// IsReady reports whether VWAP has accumulated any volume today.
func (v *VWAP) IsReady() bool { return v.isReady }

// Name identifies the indicator ("VWAP").
func (v *VWAP) Name() string { return v.name }

// IsPriceBelowVWAP reports whether price sits below the current VWAP.
func (v *VWAP) IsPriceBelowVWAP(price float64) bool {
	return v.isReady && price < v.value
}

// PriceDistanceFromVWAP returns the distance of price from VWAP as a
// fraction (positive: price above VWAP; negative: below).
func (v *VWAP) PriceDistanceFromVWAP(price float64) float64 {
	if !v.isReady || v.value == 0 {
		return 0
	}
	return (price - v.value) / v.value
}
