package strategy

import (
	"time"

	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/portfolio"
	"github.com/marketreplay/backtester/pkg/indicators"
)

// BollingerMeanReversion buys when price touches the lower band and sells
// when it returns to the middle band or touches the upper band.
type BollingerMeanReversion struct {
	id      string
	symbols []string
	qty     float64

	bands   map[string]*indicators.BollingerBands
	holding map[string]bool
}

// NewBollingerMeanReversion builds a Bollinger Band Algorithm. period and
// stdDev default to the standard 20 and 2.0 when given as zero.
func NewBollingerMeanReversion(id string, symbols []string, period int, stdDev, qty float64) *BollingerMeanReversion {
	if period < 2 {
		period = 20
	}
	if stdDev <= 0 {
		stdDev = 2.0
	}
	s := &BollingerMeanReversion{
		id:      id,
		symbols: symbols,
		qty:     qty,
		bands:   make(map[string]*indicators.BollingerBands, len(symbols)),
		holding: make(map[string]bool, len(symbols)),
	}
	for _, sym := range symbols {
		s.bands[sym] = indicators.NewBollingerBands(period, stdDev)
	}
	return s
}

func (s *BollingerMeanReversion) AlgorithmID() string { return s.id }

func (s *BollingerMeanReversion) OnMarketOpen(initial map[string]market.DataPoint) {
	for sym, bar := range initial {
		if bb, ok := s.bands[sym]; ok {
			_ = bb.Update(bar)
		}
	}
}

func (s *BollingerMeanReversion) OnUpdate(current map[string]market.DataPoint, ts time.Time, p *portfolio.Portfolio) {
	for _, sym := range s.symbols {
		bar, ok := current[sym]
		if !ok {
			continue
		}
		bb := s.bands[sym]
		if bb == nil {
			continue
		}
		if err := bb.Update(bar); err != nil || !bb.IsReady() {
			continue
		}

		switch {
		case !s.holding[sym] && bb.IsBelowLowerBand(bar.Close):
			if err := p.BuyStock(sym, s.qty, bar.Close, ts); err == nil {
				s.holding[sym] = true
			}
		case s.holding[sym] && (bar.Close >= bb.Middle() || bb.IsAboveUpperBand(bar.Close)):
			if err := p.SellStock(sym, s.qty, bar.Close, ts); err == nil {
				s.holding[sym] = false
			}
		}
	}
}

func (s *BollingerMeanReversion) OnMarketClose(map[string]market.DataPoint) {}
