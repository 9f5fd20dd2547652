package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketreplay/backtester/internal/audit"
	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/marketcache"
	"github.com/marketreplay/backtester/internal/metrics"
	"github.com/marketreplay/backtester/internal/portfolio"
)

// TickSnapshot is passed to an optional TickObserver once per processed
// tick per strategy, the additive hook internal/api's websocket
// broadcaster uses; nil by default, zero effect on the replay loop.
type TickSnapshot struct {
	AlgorithmID string
	Timestamp   time.Time
	Value       float64
}

// TickObserver receives one TickSnapshot per processed tick per strategy.
type TickObserver func(TickSnapshot)

// Engine runs the minute-by-minute replay loop across a
// multi-ticker/multi-strategy direct-portfolio-mutation model.
type Engine struct {
	service  *marketcache.Service
	logger   zerolog.Logger
	observer TickObserver
	metrics  *metrics.BacktestMetrics
	journal  *audit.Logger
}

// NewEngine constructs an Engine around a ready-to-use market cache
// service. observer may be nil.
func NewEngine(service *marketcache.Service, logger zerolog.Logger, observer TickObserver) *Engine {
	return &Engine{
		service:  service,
		logger:   logger.With().Str("component", "backtest_engine").Logger(),
		observer: observer,
	}
}

// SetMetrics attaches a Prometheus metrics sink. Nil disables
// instrumentation.
func (e *Engine) SetMetrics(m *metrics.BacktestMetrics) {
	e.metrics = m
}

// SetTradeJournal attaches a trade journal; every synthesized TradeEvent is
// recorded under it. Nil disables journaling.
func (e *Engine) SetTradeJournal(j *audit.Logger) {
	e.journal = j
}

type strategyState struct {
	entry      StrategyEntry
	portfolio  *portfolio.Portfolio
	statistics *Statistics
}

// Run executes one full backtest per cfg and returns the aggregated
// results.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Results, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -cfg.PreviousDays)

	if err := e.service.Initialize(ctx, cfg.Tickers, cfg.PreviousDays, cfg.MarketConfig); err != nil {
		return nil, fmt.Errorf("backtest: initialize market data: %w", err)
	}
	bars, err := e.service.FetchHistoricalData(cfg.Tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("backtest: fetch historical data: %w", err)
	}

	series := make([]*market.HistoricalData, 0, len(cfg.Tickers))
	for _, ticker := range cfg.Tickers {
		data, ok := bars[ticker]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingTickerData, ticker)
		}
		series = append(series, data)
	}

	timeline, err := market.Build(series)
	if err != nil {
		return nil, fmt.Errorf("backtest: build timeline: %w", ErrEmptyTimeline)
	}

	states := make([]*strategyState, 0, len(cfg.Strategies))
	statsByID := make(map[string]*Statistics, len(cfg.Strategies))
	portfoliosByID := make(map[string]*portfolio.Portfolio, len(cfg.Strategies))

	minutes := timeline.Minutes()
	if len(minutes) == 0 {
		return nil, ErrEmptyTimeline
	}

	for _, entry := range cfg.Strategies {
		p := portfolio.New(entry.InitialCapital)
		s := NewStatistics(entry.Algorithm.AlgorithmID(), minutes[0], entry.InitialCapital)
		states = append(states, &strategyState{entry: entry, portfolio: p, statistics: s})
		statsByID[entry.Algorithm.AlgorithmID()] = s
		portfoliosByID[entry.Algorithm.AlgorithmID()] = p
	}

	for _, st := range states {
		st.entry.Algorithm.OnMarketOpen(timeline.At(minutes[0]))
	}

	processed := processedTicks(minutes, cfg)
	runID := runIDFromStart(minutes[0])

	var lastProcessed time.Time
	var lastTickBars map[string]market.DataPoint

	for i, minute := range processed {
		bar := timeline.At(minute)
		currentClose := closesFromBar(bar)
		isFinalTick := i == len(processed)-1

		for _, st := range states {
			before := st.portfolio.Snap()

			st.entry.Algorithm.OnUpdate(bar, minute, st.portfolio)

			after := st.portfolio.Snap()
			events := Detect(before, after, currentClose)
			id := st.entry.Algorithm.AlgorithmID()
			for _, ev := range events {
				st.statistics.RecordTrade(ev, minute)
				if e.journal != nil {
					e.journal.RecordTrade(ctx, audit.TradeRecord{
						RunID: runID, AlgoID: id, Ticker: ev.Ticker,
						Action: string(ev.Action), Qty: ev.Qty, Price: ev.Price, Timestamp: minute,
					})
				}
			}

			valueAfter := st.portfolio.TotalValue(currentClose, minute)
			st.statistics.UpdateStatistics(valueAfter, 0)

			if e.metrics != nil {
				e.metrics.ReplayTicksProcessedTotal.WithLabelValues(id).Inc()
				e.metrics.StrategyPnL.WithLabelValues(id).Set(st.statistics.TotalProfit)
			}

			if e.observer != nil {
				e.observer(TickSnapshot{AlgorithmID: st.entry.Algorithm.AlgorithmID(), Timestamp: minute, Value: valueAfter})
			}
		}

		if e.metrics != nil && len(processed) > 0 {
			e.metrics.ReplayProgressRatio.WithLabelValues(runIDFromStart(minutes[0])).Set(float64(i+1) / float64(len(processed)))
		}

		lastProcessed = minute
		lastTickBars = bar

		if isFinalTick && cfg.AutoLiquidateOnFinish {
			e.liquidate(ctx, states, currentClose, minute, runID)
		}
	}

	for _, st := range states {
		st.entry.Algorithm.OnMarketClose(lastTickBars)
	}

	return &Results{
		Statistics: statsByID,
		StartTime:  minutes[0],
		EndTime:    lastProcessed,
		Portfolios: portfoliosByID,
	}, nil
}

// runIDFromStart derives a stable metrics label from a run's first
// processed timestamp; Run itself has no durable run identifier.
func runIDFromStart(start time.Time) string {
	return start.Format("2006-01-02T15:04")
}

// closesFromBar extracts a ticker->close map from a timeline tick, the
// shape Portfolio.TotalValue and the trade detector both consume.
func closesFromBar(bar map[string]market.DataPoint) map[string]float64 {
	out := make(map[string]float64, len(bar))
	for ticker, p := range bar {
		out[ticker] = p.Close
	}
	return out
}

// processedTicks filters minutes to those admitted by the session rules and
// decimated by cfg.Interval.
func processedTicks(minutes []time.Time, cfg Config) []time.Time {
	var out []time.Time
	var last time.Time
	var lastSet bool
	for _, minute := range minutes {
		if !admitted(minute, cfg.MarketConfig, cfg.RunOnMarketClosed) {
			continue
		}
		if lastSet && minute.Sub(last) < cfg.Interval {
			continue
		}
		out = append(out, minute)
		last = minute
		lastSet = true
	}
	return out
}

// liquidate force-closes every long and short position at the current
// tick's close.
func (e *Engine) liquidate(ctx context.Context, states []*strategyState, closes map[string]float64, at time.Time, runID string) {
	for _, st := range states {
		before := st.portfolio.Snap()
		for ticker, pos := range st.portfolio.Longs() {
			px, ok := closes[ticker]
			if !ok || pos.Quantity <= 0 {
				continue
			}
			if err := st.portfolio.SellStock(ticker, pos.Quantity, px, at); err != nil {
				e.logger.Warn().Err(err).Str("ticker", ticker).Msg("auto-liquidation sell failed")
			}
		}
		for ticker, pos := range st.portfolio.Shorts() {
			px, ok := closes[ticker]
			if !ok || pos.Quantity <= 0 {
				continue
			}
			if err := st.portfolio.CoverShort(ticker, pos.Quantity, px, at); err != nil {
				e.logger.Warn().Err(err).Str("ticker", ticker).Msg("auto-liquidation cover failed")
			}
		}
		after := st.portfolio.Snap()
		events := Detect(before, after, closes)
		id := st.entry.Algorithm.AlgorithmID()
		for _, ev := range events {
			st.statistics.RecordTrade(ev, at)
			if e.journal != nil {
				e.journal.RecordTrade(ctx, audit.TradeRecord{
					RunID: runID, AlgoID: id, Ticker: ev.Ticker,
					Action: string(ev.Action), Qty: ev.Qty, Price: ev.Price, Timestamp: at,
				})
			}
		}
		value := st.portfolio.TotalValue(closes, at)
		st.statistics.UpdateStatistics(value, 0)
	}
}
