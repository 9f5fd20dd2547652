package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/marketdata"
)

// fixedProvider serves a caller-supplied, fixed set of bars per ticker
// regardless of the requested window, letting tests pin exact literal
// scenarios.
type fixedProvider struct {
	bars map[string][]market.DataPoint
}

func (f *fixedProvider) FetchHistoricalData(ctx context.Context, ticker string, start, end time.Time, cfg marketdata.MarketConfig) (*market.HistoricalData, error) {
	series := market.NewHistoricalData(ticker)
	for _, p := range f.bars[ticker] {
		if err := series.Add(p); err != nil {
			return nil, err
		}
	}
	return series, nil
}

func (f *fixedProvider) IsAvailable(ctx context.Context) bool { return true }
func (f *fixedProvider) RateLimit() int                       { return 100000 }
func (f *fixedProvider) Capabilities() marketdata.Capabilities {
	return marketdata.Capabilities{SupportsHistorical: true, Granularity: time.Minute}
}

// sessionDay returns midnight, New York time, of the most recent weekday
// before today. Engine.Run only replays bars in [now-PreviousDays, now] and
// admits them by NYSE hours in New York time, so scenario bars are pinned
// to this day.
func sessionDay(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	d := time.Now().In(loc).AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

func tsBar(ticker string, ts time.Time, close float64) market.DataPoint {
	return market.DataPoint{Ticker: ticker, Open: close, High: close, Low: close, Close: close, Volume: 100, Timestamp: ts}
}
