package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/portfolio"
)

func bar(ticker string, ts time.Time, price float64) market.DataPoint {
	return market.DataPoint{Ticker: ticker, Open: price, High: price, Low: price, Close: price, Volume: 1000, Timestamp: ts}
}

func TestRSIMeanReversionBuysOnOversold(t *testing.T) {
	s := NewRSIMeanReversion("rsi", []string{"TSLA"}, 3, 30, 70, 10)
	p := portfolio.New(100_000)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	prices := []float64{100, 98, 95, 90, 85, 80, 78}
	for i, price := range prices {
		ts := start.Add(time.Duration(i) * time.Minute)
		s.OnUpdate(map[string]market.DataPoint{"TSLA": bar("TSLA", ts, price)}, ts, p)
	}

	pos, ok := p.Long("TSLA")
	require.True(t, ok, "expected a long position to open on a sustained decline")
	assert.Equal(t, 10.0, pos.Quantity)
}

func TestBollingerMeanReversionRoundTrip(t *testing.T) {
	s := NewBollingerMeanReversion("bb", []string{"XYZ"}, 5, 1.5, 5)
	p := portfolio.New(100_000)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	// Flat prices to build up the band, then a sharp dip below the lower
	// band, then a recovery back to the middle.
	seq := []float64{50, 50, 50, 50, 50, 40, 50, 50}
	for i, price := range seq {
		ts := start.Add(time.Duration(i) * time.Minute)
		s.OnUpdate(map[string]market.DataPoint{"XYZ": bar("XYZ", ts, price)}, ts, p)
	}

	_, stillHolding := p.Long("XYZ")
	assert.False(t, stillHolding, "expected the dip-buy to be sold once price recovered to the middle band")
	assert.Equal(t, 100_050.0, p.Cash, "expected one buy of 5 at 40 and one sell of 5 at 50")
}

func TestMovingAverageCrossoverEntersOnGoldenCross(t *testing.T) {
	s := NewMovingAverageCrossover("ma", []string{"AAPL"}, 2, 4, 10)
	p := portfolio.New(100_000)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	seq := []float64{100, 100, 100, 100, 110, 120}
	for i, price := range seq {
		ts := start.Add(time.Duration(i) * time.Minute)
		s.OnUpdate(map[string]market.DataPoint{"AAPL": bar("AAPL", ts, price)}, ts, p)
	}

	pos, ok := p.Long("AAPL")
	require.True(t, ok, "expected a golden cross entry once the short SMA overtakes the long SMA")
	assert.Equal(t, 10.0, pos.Quantity)
}

func TestVWAPBounceRequiresReadyIndicators(t *testing.T) {
	s := NewVWAPBounce("vwap", []string{"TSLA"}, 0.003, 0.01, 3, 5)
	p := portfolio.New(100_000)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	// A single tick is never enough for the EMA to become ready; no trade
	// should occur.
	s.OnUpdate(map[string]market.DataPoint{"TSLA": bar("TSLA", start, 100)}, start, p)

	_, ok := p.Long("TSLA")
	assert.False(t, ok)
}
