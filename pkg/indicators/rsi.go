package indicators

import (
	"fmt"

	"github.com/marketreplay/backtester/internal/market"
)

// RSI (Relative Strength Index) measures momentum on a 0-100 scale.
// Above 70 is conventionally overbought, below 30 oversold.
type RSI struct {
	period int
	name   string

	closes []float64

	avgGain float64
	avgLoss float64

	currentValue float64
	isReady      bool
}

// NewRSI creates an RSI indicator over period closes (defaults to 14).
func NewRSI(period int) *RSI {
	if period < 2 {
		period = 14
	}
	return &RSI{
		period: period,
		name:   fmt.Sprintf("RSI(%d)", period),
		closes: make([]float64, 0, period+1),
	}
}

// Update folds one more bar's close into the RSI calculation.
func (r *RSI) Update(bar market.DataPoint) error {
	if bar.Close <= 0 {
		return fmt.Errorf("indicators: rsi: close must be positive")
	}

	r.closes = append(r.closes, bar.Close)
	if len(r.closes) > r.period+1 {
		r.closes = r.closes[1:]
	}
	if len(r.closes) < r.period+1 {
		r.isReady = false
		return nil
	}

	r.calculate()
	r.isReady = true
	return nil
}

func (r *RSI) calculate() {
	gains := make([]float64, 0, r.period)
	losses := make([]float64, 0, r.period)
	for i := 1; i < len(r.closes); i++ {
		change := r.closes[i] - r.closes[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	if r.avgGain == 0 && r.avgLoss == 0 {
		r.avgGain = SMA(gains)
		r.avgLoss = SMA(losses)
	} else {
		// Wilder's smoothing: each new bar carries period-1 parts of the
		// running average plus one part of the latest change.
		lastGain := gains[len(gains)-1]
		lastLoss := losses[len(losses)-1]
		r.avgGain = ((r.avgGain * float64(r.period-1)) + lastGain) / float64(r.period)
		r.avgLoss = ((r.avgLoss * float64(r.period-1)) + lastLoss) / float64(r.period)
	}

	if r.avgLoss == 0 {
		r.currentValue = 100
		return
	}
	rs := r.avgGain / r.avgLoss
	r.currentValue = 100 - (100 / (1 + rs))
}

// Value returns the current RSI value (0-100).
func (r *RSI) Value() float64 { return r.currentValue }

// IsReady reports whether enough bars have been fed.
func (r *RSI) IsReady() bool { return r.isReady }

// Name identifies the indicator, e.g. "RSI(14)".
func (r *RSI) Name() string { return r.name }

// IsOversoldCustom reports whether RSI is below the given threshold.
func (r *RSI) IsOversoldCustom(threshold float64) bool {
	return r.isReady && r.currentValue < threshold
}

// IsOverboughtCustom reports whether RSI is above the given threshold.
func (r *RSI) IsOverboughtCustom(threshold float64) bool {
	return r.isReady && r.currentValue > threshold
}
