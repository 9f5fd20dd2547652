package backtest

import (
	"time"

	"github.com/marketreplay/backtester/internal/marketdata"
)

// StrategyEntry pairs an Algorithm with the initial capital its own
// Portfolio/AlgorithmStatistics pair is seeded with.
type StrategyEntry struct {
	Algorithm     Algorithm
	InitialCapital float64
}

// Config is the programmatic configuration for one engine run.
type Config struct {
	Tickers               []string
	PreviousDays          int
	MarketConfig          marketdata.MarketConfig
	ShouldPrint           bool
	Interval              time.Duration
	RunOnMarketClosed     bool
	AutoLiquidateOnFinish bool
	Provider              marketdata.Provider
	Strategies            []StrategyEntry
}

// Builder assembles a Config fluently.
type Builder struct {
	cfg Config
}

// NewBuilder starts a Config with this engine's defaults: 1-minute interval,
// auto-liquidation on, no after-hours replay.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		Interval:              time.Minute,
		AutoLiquidateOnFinish: true,
		MarketConfig:          marketdata.NYSE,
	}}
}

func (b *Builder) Tickers(t ...string) *Builder { b.cfg.Tickers = t; return b }
func (b *Builder) PreviousDays(d int) *Builder   { b.cfg.PreviousDays = d; return b }
func (b *Builder) Market(m marketdata.MarketConfig) *Builder {
	b.cfg.MarketConfig = m
	return b
}
func (b *Builder) ShouldPrint(v bool) *Builder           { b.cfg.ShouldPrint = v; return b }
func (b *Builder) Interval(d time.Duration) *Builder     { b.cfg.Interval = d; return b }
func (b *Builder) RunOnMarketClosed(v bool) *Builder     { b.cfg.RunOnMarketClosed = v; return b }
func (b *Builder) AutoLiquidateOnFinish(v bool) *Builder { b.cfg.AutoLiquidateOnFinish = v; return b }
func (b *Builder) Provider(p marketdata.Provider) *Builder {
	b.cfg.Provider = p
	return b
}
func (b *Builder) Strategy(a Algorithm, initialCapital float64) *Builder {
	b.cfg.Strategies = append(b.cfg.Strategies, StrategyEntry{Algorithm: a, InitialCapital: initialCapital})
	return b
}

// Build validates and returns the assembled Config.
func (b *Builder) Build() (Config, error) {
	cfg := b.cfg
	if len(cfg.Tickers) == 0 {
		return Config{}, ErrNoTickers
	}
	if cfg.Provider == nil {
		return Config{}, ErrNoProvider
	}
	if len(cfg.Strategies) == 0 {
		return Config{}, ErrNoStrategies
	}
	if cfg.PreviousDays <= 0 {
		return Config{}, ErrInvalidLookback
	}
	if cfg.Interval <= 0 {
		return Config{}, ErrInvalidInterval
	}
	return cfg, nil
}
