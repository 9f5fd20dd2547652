// Package backtest implements the replay engine: strategy contract, trade
// detection, per-strategy statistics, and the Config builder driving a
// multi-ticker, multi-strategy replay loop.
package backtest

import "errors"

var (
	// Configuration errors (builder validation).
	ErrNoTickers     = errors.New("backtest: at least one ticker is required")
	ErrNoProvider    = errors.New("backtest: provider must be set")
	ErrNoStrategies  = errors.New("backtest: at least one strategy is required")
	ErrInvalidLookback = errors.New("backtest: previousDays must be positive")
	ErrInvalidInterval = errors.New("backtest: interval must be positive")

	// Replay precondition errors.
	ErrEmptyTimeline  = errors.New("backtest: empty timeline")
	ErrMissingTickerData = errors.New("backtest: ticker data missing after initialize")
)
