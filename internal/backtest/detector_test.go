package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketreplay/backtester/internal/portfolio"
)

func TestDetectReconstructsPostSnapshot(t *testing.T) {
	pre := portfolio.Snapshot{
		Longs:  map[string]portfolio.Position{"TSLA": {Ticker: "TSLA", Quantity: 10, CostBasis: 1000}},
		Shorts: map[string]portfolio.ShortPosition{"XYZ": {Ticker: "XYZ", Quantity: 5, EntryPrice: 50}},
	}
	post := portfolio.Snapshot{
		Longs: map[string]portfolio.Position{
			"TSLA": {Ticker: "TSLA", Quantity: 20, CostBasis: 1000 + 10*120},
			"AAPL": {Ticker: "AAPL", Quantity: 3, CostBasis: 3 * 150},
		},
		Shorts: map[string]portfolio.ShortPosition{},
	}
	closes := map[string]float64{"TSLA": 120, "XYZ": 40, "AAPL": 150}

	events := Detect(pre, post, closes)
	reconstructed := Apply(pre, events)

	require.Equal(t, len(post.Longs), len(reconstructed.Longs))
	for ticker, want := range post.Longs {
		got := reconstructed.Longs[ticker]
		assert.InDelta(t, want.Quantity, got.Quantity, 1e-9)
		assert.InDelta(t, want.CostBasis, got.CostBasis, 1e-9)
	}
	assert.Len(t, reconstructed.Shorts, 0)
}

func TestDetectNewLongIsBuy(t *testing.T) {
	pre := portfolio.Snapshot{Longs: map[string]portfolio.Position{}, Shorts: map[string]portfolio.ShortPosition{}}
	post := portfolio.Snapshot{
		Longs:  map[string]portfolio.Position{"TSLA": {Ticker: "TSLA", Quantity: 10, CostBasis: 2000}},
		Shorts: map[string]portfolio.ShortPosition{},
	}
	events := Detect(pre, post, nil)
	require.Len(t, events, 1)
	assert.Equal(t, Buy, events[0].Action)
	assert.Equal(t, 10.0, events[0].Qty)
	assert.InDelta(t, 200.0, events[0].Price, 1e-9)
}

func TestDetectClosedLongIsSell(t *testing.T) {
	pre := portfolio.Snapshot{
		Longs:  map[string]portfolio.Position{"TSLA": {Ticker: "TSLA", Quantity: 10, CostBasis: 1000}},
		Shorts: map[string]portfolio.ShortPosition{},
	}
	post := portfolio.Snapshot{Longs: map[string]portfolio.Position{}, Shorts: map[string]portfolio.ShortPosition{}}
	events := Detect(pre, post, map[string]float64{"TSLA": 150})
	require.Len(t, events, 1)
	assert.Equal(t, Sell, events[0].Action)
	assert.Equal(t, 10.0, events[0].Qty)
	assert.Equal(t, 150.0, events[0].Price)
}
