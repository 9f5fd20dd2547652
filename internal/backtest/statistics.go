package backtest

import (
	"math"
	"time"
)

// TickerStats tracks per-ticker round-trip performance, attributing each
// close against the most recent open at that ticker.
type TickerStats struct {
	TotalTrades  int
	Wins         int
	Losses       int
	TotalPnL     float64
	LargestGain  float64
	LargestLoss  float64
	openPrice    float64
	hasOpen      bool
}

// WeeklyPerformance aggregates closes within one ISO week.
type WeeklyPerformance struct {
	WeekStart      time.Time
	TotalSells     int
	ProfitPerShare float64
	Profit         float64
}

type openTrade struct {
	price float64
	qty   float64
}

// Statistics is one strategy's running performance record: Sharpe,
// drawdown, and win/loss tracking updated per tick rather than as a daily
// PnL ratio.
type Statistics struct {
	AlgorithmID  string
	StartTime    time.Time
	InitialValue float64

	TotalProfit    float64
	PeakValue      float64
	MaxDrawdown    float64
	Sharpe         float64
	returns        []float64

	PerTicker map[string]*TickerStats
	PerWeek   map[time.Time]*WeeklyPerformance

	openTrades map[string]openTrade
	Trades     []TradeEvent
	TotalTrades int
}

// NewStatistics seeds a Statistics record at the start of a backtest.
func NewStatistics(algorithmID string, start time.Time, initialValue float64) *Statistics {
	return &Statistics{
		AlgorithmID:  algorithmID,
		StartTime:    start,
		InitialValue: initialValue,
		PeakValue:    initialValue,
		PerTicker:    make(map[string]*TickerStats),
		PerWeek:      make(map[time.Time]*WeeklyPerformance),
		openTrades:   make(map[string]openTrade),
	}
}

// UpdateStatistics recomputes drawdown/Sharpe with the latest portfolio
// value.
func (s *Statistics) UpdateStatistics(currentValue float64, dailyRiskFreeRate float64) {
	s.TotalProfit = currentValue - s.InitialValue
	if currentValue > s.PeakValue {
		s.PeakValue = currentValue
	}
	if s.PeakValue > 0 {
		drawdown := (s.PeakValue - currentValue) / s.PeakValue * 100
		if drawdown > s.MaxDrawdown {
			s.MaxDrawdown = drawdown
		}
	}

	ret := 0.0
	if s.InitialValue != 0 {
		ret = (currentValue - s.InitialValue) / s.InitialValue
	}
	s.returns = append(s.returns, ret)

	if len(s.returns) >= 2 {
		avg := mean(s.returns)
		sd := stddev(s.returns, avg)
		if sd == 0 {
			s.Sharpe = 0
		} else {
			s.Sharpe = math.Sqrt(252) * (avg - dailyRiskFreeRate/252) / sd
		}
	}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, avg float64) float64 {
	sum := 0.0
	for _, x := range xs {
		d := x - avg
		sum += d * d
	}
	if len(xs) < 2 {
		return 0
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// weekStart returns the Monday (UTC midnight) of ts's ISO week.
func weekStart(ts time.Time) time.Time {
	ts = ts.UTC()
	offset := int(ts.Weekday())
	if offset == 0 {
		offset = 7 // Sunday counts as day 7 of the prior week start
	}
	d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -(offset - 1))
}

// RecordTrade folds one detector-emitted event into per-ticker and
// per-week aggregates.
func (s *Statistics) RecordTrade(e TradeEvent, ts time.Time) {
	s.Trades = append(s.Trades, e)
	s.TotalTrades++

	ticker := s.PerTicker[e.Ticker]
	if ticker == nil {
		ticker = &TickerStats{}
		s.PerTicker[e.Ticker] = ticker
	}

	switch e.Action {
	case Buy, Short:
		s.openTrades[e.Ticker] = openTrade{price: e.Price, qty: e.Qty}
		ticker.openPrice = e.Price
		ticker.hasOpen = true
	case Sell, Cover:
		if ticker.hasOpen {
			var pnl float64
			if e.Action == Sell {
				pnl = (e.Price - ticker.openPrice) * e.Qty
			} else {
				pnl = (ticker.openPrice - e.Price) * e.Qty
			}
			ticker.TotalTrades++
			ticker.TotalPnL += pnl
			if pnl > 0 {
				ticker.Wins++
				if pnl > ticker.LargestGain {
					ticker.LargestGain = pnl
				}
			} else if pnl < 0 {
				ticker.Losses++
				if pnl < ticker.LargestLoss {
					ticker.LargestLoss = pnl
				}
			}
			ticker.hasOpen = false
		}

		if open, ok := s.openTrades[e.Ticker]; ok {
			week := weekStart(ts)
			wp := s.PerWeek[week]
			if wp == nil {
				wp = &WeeklyPerformance{WeekStart: week}
				s.PerWeek[week] = wp
			}
			var profit float64
			if e.Action == Sell {
				profit = (e.Price - open.price) * e.Qty
			} else {
				profit = (open.price - e.Price) * e.Qty
			}
			wp.TotalSells++
			wp.Profit += profit
			if e.Qty != 0 {
				wp.ProfitPerShare += profit / e.Qty
			}
			delete(s.openTrades, e.Ticker)
		}
	}
}
