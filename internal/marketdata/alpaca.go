package marketdata

import (
	"context"
	"fmt"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"

	"github.com/marketreplay/backtester/internal/market"
)

// AlpacaProvider sources historical minute bars from the official Alpaca
// SDK client, with structured logging and error-wrapping around each call.
type AlpacaProvider struct {
	client    *alpacamd.Client
	rateLimit int
	logger    zerolog.Logger
}

// NewAlpacaProvider constructs a provider around an Alpaca market-data
// client. rateLimit is calls/minute, used by the caller's pacing logic.
func NewAlpacaProvider(client *alpacamd.Client, rateLimit int, logger zerolog.Logger) *AlpacaProvider {
	return &AlpacaProvider{
		client:    client,
		rateLimit: rateLimit,
		logger:    logger.With().Str("component", "alpaca_provider").Logger(),
	}
}

// FetchHistoricalData implements Provider.
func (a *AlpacaProvider) FetchHistoricalData(ctx context.Context, ticker string, start, end time.Time, cfg MarketConfig) (*market.HistoricalData, error) {
	req := alpacamd.GetBarsRequest{
		TimeFrame: alpacamd.NewTimeFrame(1, alpacamd.Min),
		Start:     start,
		End:       end,
		PageLimit: 10000,
	}

	bars, err := a.client.GetBars(ticker, req)
	if err != nil {
		a.logger.Warn().Err(err).Str("ticker", ticker).Msg("alpaca fetch failed")
		return nil, &Error{Provider: "alpaca", Op: "FetchHistoricalData", Retryable: true, Err: err}
	}

	loc, err := time.LoadLocation(cfg.ZoneID)
	if err != nil {
		loc = time.UTC
	}

	series := market.NewHistoricalData(ticker)
	for _, bar := range bars {
		point := market.DataPoint{
			Ticker:    ticker,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    float64(bar.Volume),
			Timestamp: bar.Timestamp.In(loc),
		}
		if err := series.Add(point); err != nil {
			return nil, &Error{Provider: "alpaca", Op: "FetchHistoricalData", Retryable: false,
				Err: fmt.Errorf("malformed bar for %s: %w", ticker, err)}
		}
	}

	a.logger.Info().Str("ticker", ticker).Int("bars", series.Len()).Msg("fetched historical bars")
	return series, nil
}

// IsAvailable implements Provider with a cheap liveness probe: fetching the
// latest bar for a liquid reference symbol.
func (a *AlpacaProvider) IsAvailable(ctx context.Context) bool {
	_, err := a.client.GetLatestBar("SPY", alpacamd.GetLatestBarRequest{})
	return err == nil
}

// RateLimit implements Provider.
func (a *AlpacaProvider) RateLimit() int { return a.rateLimit }

// Capabilities implements Provider.
func (a *AlpacaProvider) Capabilities() Capabilities {
	return Capabilities{SupportsHistorical: true, Granularity: time.Minute}
}
