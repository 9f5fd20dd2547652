package marketdata

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/marketreplay/backtester/internal/market"
)

// SimulatedProvider generates a deterministic synthetic random walk of
// minute bars. Useful for tests and offline runs without network access.
type SimulatedProvider struct {
	Seed       int64
	StartPrice float64
	Volatility float64 // per-minute std dev, as a fraction of price
}

// NewSimulatedProvider builds a provider with sensible defaults.
func NewSimulatedProvider(seed int64) *SimulatedProvider {
	return &SimulatedProvider{Seed: seed, StartPrice: 100, Volatility: 0.001}
}

// FetchHistoricalData implements Provider by generating one minute bar per
// minute in [start, end], deterministic given the same ticker/seed/range.
func (s *SimulatedProvider) FetchHistoricalData(ctx context.Context, ticker string, start, end time.Time, cfg MarketConfig) (*market.HistoricalData, error) {
	seed := s.Seed
	for _, c := range ticker {
		seed += int64(c)
	}
	rng := rand.New(rand.NewSource(seed))

	series := market.NewHistoricalData(ticker)
	price := s.StartPrice
	for t := start.Truncate(time.Minute); !t.After(end); t = t.Add(time.Minute) {
		change := rng.NormFloat64() * s.Volatility * price
		open := price
		close := math.Max(0.01, price+change)
		high := math.Max(open, close) * (1 + math.Abs(rng.NormFloat64())*0.0005)
		low := math.Min(open, close) * (1 - math.Abs(rng.NormFloat64())*0.0005)
		vol := 1000 + rng.Float64()*5000

		if err := series.Add(market.DataPoint{
			Ticker: ticker, Open: open, High: high, Low: low, Close: close,
			Volume: vol, Timestamp: t,
		}); err != nil {
			return nil, &Error{Provider: "simulated", Op: "FetchHistoricalData", Retryable: false, Err: err}
		}
		price = close
	}
	return series, nil
}

// IsAvailable always succeeds; there is no upstream to probe.
func (s *SimulatedProvider) IsAvailable(ctx context.Context) bool { return true }

// RateLimit reports an effectively unlimited rate.
func (s *SimulatedProvider) RateLimit() int { return 100000 }

// Capabilities implements Provider.
func (s *SimulatedProvider) Capabilities() Capabilities {
	return Capabilities{SupportsHistorical: true, Granularity: time.Minute}
}
