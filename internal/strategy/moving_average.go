package strategy

import (
	"time"

	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/portfolio"
	"github.com/marketreplay/backtester/pkg/indicators"
)

// MovingAverageCrossover buys when the short SMA crosses above the long
// SMA and sells on the opposite cross.
type MovingAverageCrossover struct {
	id          string
	symbols     []string
	shortPeriod int
	longPeriod  int
	qty         float64

	prices    map[string][]float64
	crossAbove map[string]bool // true once short has crossed above long
	holding   map[string]bool
}

// NewMovingAverageCrossover builds an SMA-crossover Algorithm.
func NewMovingAverageCrossover(id string, symbols []string, shortPeriod, longPeriod int, qty float64) *MovingAverageCrossover {
	if shortPeriod <= 0 {
		shortPeriod = 10
	}
	if longPeriod <= shortPeriod {
		longPeriod = shortPeriod * 3
	}
	return &MovingAverageCrossover{
		id:          id,
		symbols:     symbols,
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		qty:         qty,
		prices:      make(map[string][]float64, len(symbols)),
		crossAbove:  make(map[string]bool, len(symbols)),
		holding:     make(map[string]bool, len(symbols)),
	}
}

func (s *MovingAverageCrossover) AlgorithmID() string { return s.id }

func (s *MovingAverageCrossover) push(sym string, price float64) {
	hist := append(s.prices[sym], price)
	if len(hist) > s.longPeriod {
		hist = hist[len(hist)-s.longPeriod:]
	}
	s.prices[sym] = hist
}

func (s *MovingAverageCrossover) OnMarketOpen(initial map[string]market.DataPoint) {
	for sym, bar := range initial {
		s.push(sym, bar.Close)
	}
}

func (s *MovingAverageCrossover) OnUpdate(current map[string]market.DataPoint, ts time.Time, p *portfolio.Portfolio) {
	for _, sym := range s.symbols {
		bar, ok := current[sym]
		if !ok {
			continue
		}
		s.push(sym, bar.Close)
		hist := s.prices[sym]
		if len(hist) < s.longPeriod {
			continue
		}

		shortMA := indicators.SMA(hist[len(hist)-s.shortPeriod:])
		longMA := indicators.SMA(hist)
		above := shortMA > longMA

		switch {
		case above && !s.crossAbove[sym]:
			s.crossAbove[sym] = true
			if !s.holding[sym] {
				if err := p.BuyStock(sym, s.qty, bar.Close, ts); err == nil {
					s.holding[sym] = true
				}
			}
		case !above && s.crossAbove[sym]:
			s.crossAbove[sym] = false
			if s.holding[sym] {
				if err := p.SellStock(sym, s.qty, bar.Close, ts); err == nil {
					s.holding[sym] = false
				}
			}
		}
	}
}

func (s *MovingAverageCrossover) OnMarketClose(map[string]market.DataPoint) {}
