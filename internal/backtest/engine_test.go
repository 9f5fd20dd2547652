package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/marketcache"
	"github.com/marketreplay/backtester/internal/marketdata"
	"github.com/marketreplay/backtester/internal/portfolio"
)

// buyOnceAlgorithm buys qty shares of ticker on the very first OnUpdate
// call and never trades again; used to exercise the buy-and-hold scenario.
type buyOnceAlgorithm struct {
	id     string
	ticker string
	qty    float64
	bought bool
}

func (a *buyOnceAlgorithm) OnMarketOpen(map[string]market.DataPoint)  {}
func (a *buyOnceAlgorithm) OnMarketClose(map[string]market.DataPoint) {}
func (a *buyOnceAlgorithm) AlgorithmID() string                      { return a.id }
func (a *buyOnceAlgorithm) OnUpdate(current map[string]market.DataPoint, ts time.Time, p *portfolio.Portfolio) {
	if a.bought {
		return
	}
	bar, ok := current[a.ticker]
	if !ok {
		return
	}
	if err := p.BuyStock(a.ticker, a.qty, bar.Close, ts); err == nil {
		a.bought = true
	}
}

type shortOnceAlgorithm struct {
	id      string
	ticker  string
	qty     float64
	shorted bool
	covered bool
}

func (a *shortOnceAlgorithm) OnMarketOpen(map[string]market.DataPoint)  {}
func (a *shortOnceAlgorithm) OnMarketClose(map[string]market.DataPoint) {}
func (a *shortOnceAlgorithm) AlgorithmID() string                      { return a.id }
func (a *shortOnceAlgorithm) OnUpdate(current map[string]market.DataPoint, ts time.Time, p *portfolio.Portfolio) {
	bar, ok := current[a.ticker]
	if !ok {
		return
	}
	if !a.shorted {
		if err := p.ShortStock(a.ticker, a.qty, bar.Close, ts); err == nil {
			a.shorted = true
		}
		return
	}
	if !a.covered {
		if err := p.CoverShort(a.ticker, a.qty, bar.Close, ts); err == nil {
			a.covered = true
		}
	}
}

func newTestEngine(t *testing.T, provider marketdata.Provider) *Engine {
	t.Helper()
	dir := t.TempDir()
	cache, err := marketcache.NewFileCache(dir)
	require.NoError(t, err)
	svc := marketcache.New(provider, cache, marketcache.DefaultConfig(), nil, zerolog.Nop())
	return NewEngine(svc, zerolog.Nop(), nil)
}

func TestBuyAndHoldScenario(t *testing.T) {
	day := sessionDay(t)
	open := day.Add(9*time.Hour + 30*time.Minute)
	provider := &fixedProvider{bars: map[string][]market.DataPoint{
		"TSLA": {
			tsBar("TSLA", open, 200),
			tsBar("TSLA", open.Add(30*time.Minute), 220),
			tsBar("TSLA", day.Add(15*time.Hour+59*time.Minute), 210),
		},
	}}
	engine := newTestEngine(t, provider)

	algo := &buyOnceAlgorithm{id: "buy-and-hold", ticker: "TSLA", qty: 50}
	cfg, err := NewBuilder().
		Tickers("TSLA").
		PreviousDays(30).
		Provider(provider).
		Interval(time.Minute).
		AutoLiquidateOnFinish(true).
		Strategy(algo, 1_000_000).
		Build()
	require.NoError(t, err)

	results, err := engine.Run(context.Background(), cfg)
	require.NoError(t, err)

	p := results.Portfolios["buy-and-hold"]
	assert.Equal(t, 1_000_500.0, p.Cash)
	stats := results.Statistics["buy-and-hold"]
	assert.GreaterOrEqual(t, stats.TotalTrades, 2)
	ts := stats.PerTicker["TSLA"]
	require.NotNil(t, ts)
	assert.InDelta(t, 500.0, ts.TotalPnL, 1e-9)
}

func TestShortRoundTripScenario(t *testing.T) {
	open := sessionDay(t).Add(9*time.Hour + 30*time.Minute)
	provider := &fixedProvider{bars: map[string][]market.DataPoint{
		"XYZ": {
			tsBar("XYZ", open, 50),
			tsBar("XYZ", open.Add(time.Minute), 40),
		},
	}}
	engine := newTestEngine(t, provider)
	algo := &shortOnceAlgorithm{id: "short-round-trip", ticker: "XYZ", qty: 100}
	cfg, err := NewBuilder().
		Tickers("XYZ").
		PreviousDays(30).
		Provider(provider).
		Interval(time.Minute).
		AutoLiquidateOnFinish(false).
		Strategy(algo, 100_000).
		Build()
	require.NoError(t, err)

	results, err := engine.Run(context.Background(), cfg)
	require.NoError(t, err)
	p := results.Portfolios["short-round-trip"]
	assert.Equal(t, 101_000.0, p.Cash)
	assert.Equal(t, 200_000.0, p.MarginAvailable)
}

func TestIntervalDecimationScenario(t *testing.T) {
	base := sessionDay(t).Add(9*time.Hour + 30*time.Minute)
	var bars []market.DataPoint
	for i := 0; i <= 15; i++ {
		bars = append(bars, tsBar("TSLA", base.Add(time.Duration(i)*time.Minute), 100))
	}
	provider := &fixedProvider{bars: map[string][]market.DataPoint{"TSLA": bars}}
	engine := newTestEngine(t, provider)
	algo := &buyOnceAlgorithm{id: "decimation", ticker: "TSLA", qty: 0} // never trades
	algo.bought = true                                                 // disable the only trade path

	cfg, err := NewBuilder().
		Tickers("TSLA").
		PreviousDays(30).
		Provider(provider).
		Interval(5 * time.Minute).
		AutoLiquidateOnFinish(false).
		Strategy(algo, 10_000).
		Build()
	require.NoError(t, err)

	var seen []time.Time
	engineWithObserver := NewEngine(engine.service, zerolog.Nop(), func(s TickSnapshot) {
		seen = append(seen, s.Timestamp)
	})
	_, err = engineWithObserver.Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, seen, 4)
	assert.Equal(t, base, seen[0])
	assert.Equal(t, base.Add(5*time.Minute), seen[1])
	assert.Equal(t, base.Add(10*time.Minute), seen[2])
	assert.Equal(t, base.Add(15*time.Minute), seen[3])
}

func TestSessionFilterExcludesOutOfHours(t *testing.T) {
	day := sessionDay(t)
	bars := []market.DataPoint{
		tsBar("TSLA", day.Add(8*time.Hour), 100),          // 08:00, before NYSE open
		tsBar("TSLA", day.Add(9*time.Hour+45*time.Minute), 101), // 09:45, in session
	}
	provider := &fixedProvider{bars: map[string][]market.DataPoint{"TSLA": bars}}
	engine := newTestEngine(t, provider)
	algo := &buyOnceAlgorithm{id: "session", ticker: "TSLA", qty: 0}
	algo.bought = true

	cfg, err := NewBuilder().
		Tickers("TSLA").PreviousDays(30).Provider(provider).
		Interval(time.Minute).AutoLiquidateOnFinish(false).
		RunOnMarketClosed(false).
		Strategy(algo, 10_000).Build()
	require.NoError(t, err)

	var seen []time.Time
	eng := NewEngine(engine.service, zerolog.Nop(), func(s TickSnapshot) { seen = append(seen, s.Timestamp) })
	_, err = eng.Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, day.Add(9*time.Hour+45*time.Minute), seen[0])
}
