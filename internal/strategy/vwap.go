package strategy

import (
	"time"

	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/portfolio"
	"github.com/marketreplay/backtester/pkg/indicators"
)

// VWAPBounce trades bounces off the day's volume-weighted average price,
// filtered by an EMA trend. Entry: price comes within tolerance of VWAP
// while the EMA trend agrees → BUY. Exit: price moves target away from
// VWAP, or crosses to the opposite side of it.
type VWAPBounce struct {
	id        string
	symbols   []string
	tolerance float64 // fraction of price, e.g. 0.003 for 0.3%
	target    float64
	qty       float64

	vwap    map[string]*indicators.VWAP
	trend   map[string]*indicators.EMA
	holding map[string]bool
	entry   map[string]float64
}

// NewVWAPBounce builds a VWAP-bounce Algorithm. tolerance and target are
// fractional (0.003 == 0.3%); emaPeriod defaults to 20 when given as zero.
func NewVWAPBounce(id string, symbols []string, tolerance, target float64, emaPeriod int, qty float64) *VWAPBounce {
	if tolerance <= 0 {
		tolerance = 0.003
	}
	if target <= 0 {
		target = 0.01
	}
	if emaPeriod <= 0 {
		emaPeriod = 20
	}
	s := &VWAPBounce{
		id:        id,
		symbols:   symbols,
		tolerance: tolerance,
		target:    target,
		qty:       qty,
		vwap:      make(map[string]*indicators.VWAP, len(symbols)),
		trend:     make(map[string]*indicators.EMA, len(symbols)),
		holding:   make(map[string]bool, len(symbols)),
		entry:     make(map[string]float64, len(symbols)),
	}
	for _, sym := range symbols {
		s.vwap[sym] = indicators.NewVWAP()
		s.trend[sym] = indicators.NewEMA(emaPeriod)
	}
	return s
}

func (s *VWAPBounce) AlgorithmID() string { return s.id }

func (s *VWAPBounce) feed(sym string, bar market.DataPoint) {
	if v, ok := s.vwap[sym]; ok {
		_ = v.Update(bar)
	}
	if e, ok := s.trend[sym]; ok {
		_ = e.Update(bar)
	}
}

func (s *VWAPBounce) OnMarketOpen(initial map[string]market.DataPoint) {
	for sym, bar := range initial {
		s.feed(sym, bar)
	}
}

func (s *VWAPBounce) OnUpdate(current map[string]market.DataPoint, ts time.Time, p *portfolio.Portfolio) {
	for _, sym := range s.symbols {
		bar, ok := current[sym]
		if !ok {
			continue
		}
		s.feed(sym, bar)

		v := s.vwap[sym]
		e := s.trend[sym]
		if v == nil || !v.IsReady() || e == nil || !e.IsReady() {
			continue
		}

		dist := v.PriceDistanceFromVWAP(bar.Close)
		uptrend := bar.Close > e.Value()

		switch {
		case !s.holding[sym] && dist >= 0 && dist <= s.tolerance && uptrend:
			if err := p.BuyStock(sym, s.qty, bar.Close, ts); err == nil {
				s.holding[sym] = true
				s.entry[sym] = bar.Close
			}
		case s.holding[sym] && (dist >= s.target || v.IsPriceBelowVWAP(bar.Close)):
			if err := p.SellStock(sym, s.qty, bar.Close, ts); err == nil {
				s.holding[sym] = false
			}
		}
	}
}

func (s *VWAPBounce) OnMarketClose(final map[string]market.DataPoint) {}
