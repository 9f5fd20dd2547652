// Package risk sizes strategy entries against a portfolio's live cash
// balance rather than a bare number pulled from a caller.
package risk

import (
	"fmt"
	"math"

	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/portfolio"
)

// PositionSizer turns a proposed entry into a share count, given the
// portfolio that would fund it and the bar it would be entered on.
type PositionSizer interface {
	// CalculateSize returns the number of shares to trade against p's
	// current cash, entering at entry.Close with a stop at stopLoss.
	CalculateSize(p *portfolio.Portfolio, entry market.DataPoint, stopLoss float64) (int, error)

	// GetName returns the name of the sizing method.
	GetName() string
}

// FixedDollarRiskSizer risks a fixed dollar amount per trade, regardless
// of account size: shares = RiskPerTrade / |entry - stop|.
type FixedDollarRiskSizer struct {
	RiskPerTrade float64
}

// NewFixedDollarRiskSizer creates a fixed dollar risk sizer.
func NewFixedDollarRiskSizer(riskPerTrade float64) *FixedDollarRiskSizer {
	return &FixedDollarRiskSizer{RiskPerTrade: riskPerTrade}
}

// CalculateSize sizes by fixed dollar risk; p is unused since the risk
// amount doesn't scale with the account.
func (f *FixedDollarRiskSizer) CalculateSize(_ *portfolio.Portfolio, entry market.DataPoint, stopLoss float64) (int, error) {
	if entry.Close <= 0 {
		return 0, fmt.Errorf("risk: entry price must be positive")
	}
	riskPerShare := math.Abs(entry.Close - stopLoss)
	if riskPerShare == 0 {
		return 0, fmt.Errorf("risk: risk per share is zero")
	}

	size := int(f.RiskPerTrade / riskPerShare)
	if size < 1 {
		return 0, fmt.Errorf("risk: position size too small (< 1 share)")
	}
	return size, nil
}

// GetName returns the sizer name.
func (f *FixedDollarRiskSizer) GetName() string {
	return fmt.Sprintf("FixedDollarRisk($%.2f)", f.RiskPerTrade)
}

// PercentRiskSizer risks a percentage of the portfolio's cash per trade,
// capped at a maximum percentage of cash held in any one position.
type PercentRiskSizer struct {
	RiskPercentage float64
	MaxPositionPct float64
}

// NewPercentRiskSizer creates a percentage-of-cash risk sizer.
func NewPercentRiskSizer(riskPct, maxPositionPct float64) *PercentRiskSizer {
	return &PercentRiskSizer{RiskPercentage: riskPct, MaxPositionPct: maxPositionPct}
}

// CalculateSize sizes by percentage of p.Cash at risk, capped by
// MaxPositionPct of p.Cash in the resulting position.
func (p *PercentRiskSizer) CalculateSize(acct *portfolio.Portfolio, entry market.DataPoint, stopLoss float64) (int, error) {
	if entry.Close <= 0 {
		return 0, fmt.Errorf("risk: entry price must be positive")
	}
	if acct == nil || acct.Cash <= 0 {
		return 0, fmt.Errorf("risk: account cash must be positive")
	}

	riskPerShare := math.Abs(entry.Close - stopLoss)
	if riskPerShare == 0 {
		return 0, fmt.Errorf("risk: risk per share is zero")
	}

	riskAmount := acct.Cash * p.RiskPercentage
	size := int(riskAmount / riskPerShare)
	if size < 1 {
		return 0, fmt.Errorf("risk: position size too small (< 1 share)")
	}

	if p.MaxPositionPct > 0 {
		if maxShares := int((acct.Cash * p.MaxPositionPct) / entry.Close); size > maxShares {
			size = maxShares
		}
	}
	return size, nil
}

// GetName returns the sizer name.
func (p *PercentRiskSizer) GetName() string {
	return fmt.Sprintf("PercentRisk(%.2f%%, max %.0f%%)", p.RiskPercentage*100, p.MaxPositionPct*100)
}
