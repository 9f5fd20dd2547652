// Package strategy holds concrete Algorithm implementations: each one
// drives the pkg/indicators types per ticker and calls Portfolio
// mutations directly instead of publishing signal events onto a bus.
package strategy

import (
	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/portfolio"
	"github.com/marketreplay/backtester/internal/risk"
	"github.com/marketreplay/backtester/pkg/indicators"

	"time"
)

// RSIMeanReversion buys oversold tickers and sells overbought ones.
// Entry: RSI crosses below the oversold threshold → BUY.
// Exit: RSI crosses above the overbought threshold while long → SELL.
type RSIMeanReversion struct {
	id         string
	symbols    []string
	oversold   float64
	overbought float64
	qty        float64
	sizer      risk.PositionSizer // optional; overrides qty when set

	rsi     map[string]*indicators.RSI
	holding map[string]bool
}

// SetPositionSizer replaces the fixed qty entry size with a dynamic
// PositionSizer, sized against a 2% stop distance from the entry price.
func (s *RSIMeanReversion) SetPositionSizer(sizer risk.PositionSizer) {
	s.sizer = sizer
}

func (s *RSIMeanReversion) entrySize(p *portfolio.Portfolio, bar market.DataPoint) float64 {
	if s.sizer == nil {
		return s.qty
	}
	stop := bar.Close * 0.98
	shares, err := s.sizer.CalculateSize(p, bar, stop)
	if err != nil || shares <= 0 {
		return s.qty
	}
	return float64(shares)
}

// NewRSIMeanReversion builds an RSI mean-reversion Algorithm. period
// defaults to 14, oversold/overbought to 30/70 when given as zero.
func NewRSIMeanReversion(id string, symbols []string, period int, oversold, overbought, qty float64) *RSIMeanReversion {
	if period <= 0 {
		period = 14
	}
	if oversold <= 0 {
		oversold = 30
	}
	if overbought <= 0 {
		overbought = 70
	}
	s := &RSIMeanReversion{
		id:         id,
		symbols:    symbols,
		oversold:   oversold,
		overbought: overbought,
		qty:        qty,
		rsi:        make(map[string]*indicators.RSI, len(symbols)),
		holding:    make(map[string]bool, len(symbols)),
	}
	for _, sym := range symbols {
		s.rsi[sym] = indicators.NewRSI(period)
	}
	return s
}

func (s *RSIMeanReversion) AlgorithmID() string { return s.id }

func (s *RSIMeanReversion) OnMarketOpen(initial map[string]market.DataPoint) {
	for sym, bar := range initial {
		if ind, ok := s.rsi[sym]; ok {
			_ = ind.Update(bar)
		}
	}
}

func (s *RSIMeanReversion) OnUpdate(current map[string]market.DataPoint, ts time.Time, p *portfolio.Portfolio) {
	for _, sym := range s.symbols {
		bar, ok := current[sym]
		if !ok {
			continue
		}
		ind := s.rsi[sym]
		if ind == nil {
			continue
		}
		if err := ind.Update(bar); err != nil || !ind.IsReady() {
			continue
		}

		switch {
		case !s.holding[sym] && ind.IsOversoldCustom(s.oversold):
			qty := s.entrySize(p, bar)
			if err := p.BuyStock(sym, qty, bar.Close, ts); err == nil {
				s.holding[sym] = true
			}
		case s.holding[sym] && ind.IsOverboughtCustom(s.overbought):
			if err := p.SellStock(sym, s.qty, bar.Close, ts); err == nil {
				s.holding[sym] = false
			}
		}
	}
}

func (s *RSIMeanReversion) OnMarketClose(map[string]market.DataPoint) {}
