// Package marketdata defines the provider contract backtests source bars
// from, and two concrete implementations.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/marketreplay/backtester/internal/market"
)

// MarketConfig names a trading venue's session window.
type MarketConfig struct {
	ZoneID    string
	OpenTime  time.Time // time-of-day only; Hour/Minute/Second are read
	CloseTime time.Time
}

var (
	// NYSE is the default US equities session.
	NYSE = MarketConfig{ZoneID: "America/New_York", OpenTime: tod(9, 30), CloseTime: tod(16, 0)}
	// LSE is the London session.
	LSE = MarketConfig{ZoneID: "Europe/London", OpenTime: tod(8, 0), CloseTime: tod(16, 30)}
	// TSE is the Tokyo session.
	TSE = MarketConfig{ZoneID: "Asia/Tokyo", OpenTime: tod(9, 0), CloseTime: tod(15, 30)}
)

func tod(h, m int) time.Time {
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC)
}

// Capabilities describes what a provider can serve.
type Capabilities struct {
	SupportsHistorical bool
	Granularity        time.Duration
}

// Error is a typed, retryable-aware error a provider fails with on
// malformed responses or upstream failures.
type Error struct {
	Provider  string
	Op        string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("marketdata: %s: %s: %v (retryable=%v)", e.Provider, e.Op, e.Err, e.Retryable)
}

func (e *Error) Unwrap() error { return e.Err }

// Provider is the polymorphic historical-bar source contract. Every
// implementation accepts exactly one ticker per call; multi-ticker inputs
// are an argument error so callers always know which ticker a given
// HistoricalData belongs to.
type Provider interface {
	FetchHistoricalData(ctx context.Context, ticker string, start, end time.Time, cfg MarketConfig) (*market.HistoricalData, error)
	IsAvailable(ctx context.Context) bool
	RateLimit() int // calls per minute
	Capabilities() Capabilities
}

// ErrMultiTicker is returned when a caller passes more than one ticker to a
// Provider that only accepts one.
var ErrMultiTicker = fmt.Errorf("marketdata: provider accepts exactly one ticker per call")
