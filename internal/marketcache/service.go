package marketcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/marketreplay/backtester/internal/circuitbreaker"
	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/marketdata"
	"github.com/marketreplay/backtester/internal/metrics"
)

var (
	// ErrNoTickerData is returned when FetchHistoricalData is asked for a
	// ticker that Initialize never successfully loaded.
	ErrNoTickerData = errors.New("marketcache: no data for ticker")
	// ErrShutdownTimeout is returned if Close's bounded drain expires.
	ErrShutdownTimeout = errors.New("marketcache: shutdown timed out")
)

// Config controls retry/pacing/concurrency behavior.
type Config struct {
	MaxRetries     int
	ParallelFetch  int // bounded pool size for per-ticker hot-cache fetches
	ShutdownBudget time.Duration
}

// DefaultConfig returns a moderate retry/concurrency cadence.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, ParallelFetch: 4, ShutdownBudget: 30 * time.Second}
}

// Service orchestrates provider calls, retries, the segmented file cache,
// and the in-memory hot cache across the engine's initialize/fetch/close
// lifecycle.
type Service struct {
	provider marketdata.Provider
	cache    *FileCache
	cfg      Config
	logger   zerolog.Logger

	mu  sync.RWMutex
	hot map[string]*market.HistoricalData

	mirror   Mirror // optional secondary persistence tier
	metrics  *metrics.BacktestMetrics
	breakers *circuitbreaker.Manager

	cacheHits   int64
	cacheMisses int64
	retries     int64
	failures    int64
}

// SetMetrics attaches a Prometheus metrics sink. Nil disables
// instrumentation; it is safe to call before or never.
func (s *Service) SetMetrics(m *metrics.BacktestMetrics) {
	s.metrics = m
}

// Mirror is an optional best-effort secondary persistence tier (e.g. a
// pgx-backed store); failures are logged, never fatal.
type Mirror interface {
	Upsert(ctx context.Context, ticker string, points []market.DataPoint) error
}

// New builds a Service. mirror may be nil.
func New(provider marketdata.Provider, cache *FileCache, cfg Config, mirror Mirror, logger zerolog.Logger) *Service {
	s := &Service{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		mirror:   mirror,
		hot:      make(map[string]*market.HistoricalData),
		logger:   logger.With().Str("component", "market_cache_service").Logger(),
	}
	s.breakers = circuitbreaker.NewManager(logger, s.onBreakerStateChange)
	return s
}

// onBreakerStateChange publishes a per-ticker breaker's transitions as a
// Prometheus gauge, when a metrics sink is attached.
func (s *Service) onBreakerStateChange(name string, state circuitbreaker.State) {
	if s.metrics != nil {
		s.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	}
}

// Initialize fetches each ticker's bars in [now-lookbackDays, now],
// checking the file cache first, then the provider with retry/backoff and
// pacing, for tickers not already present in the hot cache. Re-entry after
// a successful initialize for the same tickers is a no-op.
func (s *Service) Initialize(ctx context.Context, tickers []string, lookbackDays int, cfg marketdata.MarketConfig) error {
	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)

	pending := make([]string, 0, len(tickers))
	for _, t := range tickers {
		s.mu.RLock()
		_, loaded := s.hot[t]
		s.mu.RUnlock()
		if !loaded {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.ParallelFetch))
	var errsMu sync.Mutex
	var errs error

	pace := time.Duration(0)
	if rl := s.provider.RateLimit(); rl > 0 {
		pace = time.Duration(60.0/float64(rl)*1000) * time.Millisecond
	}

	for i, ticker := range pending {
		ticker := ticker
		delay := pace * time.Duration(i)
		g.Go(func() error {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			data, err := s.loadOrFetch(gctx, ticker, start, end, cfg)
			if err != nil {
				errsMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("ticker %s: %w", ticker, err))
				errsMu.Unlock()
				return nil // keep going for other tickers; aggregated below
			}
			s.mu.Lock()
			s.hot[ticker] = data
			s.mu.Unlock()
			if s.mirror != nil {
				if err := s.mirror.Upsert(gctx, ticker, data.All()); err != nil {
					s.logger.Warn().Err(err).Str("ticker", ticker).Msg("mirror upsert failed")
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if errs != nil {
		s.failures++
		return fmt.Errorf("marketcache: initialize failed: %w", errs)
	}
	return nil
}

func (s *Service) loadOrFetch(ctx context.Context, ticker string, start, end time.Time, cfg marketdata.MarketConfig) (*market.HistoricalData, error) {
	if data, ok := s.cache.Lookup(ticker, start, end); ok {
		s.cacheHits++
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.WithLabelValues(ticker).Inc()
		}
		return data, nil
	}
	if data, ok := s.cache.Load(ticker, start, end); ok {
		s.cacheHits++
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.WithLabelValues(ticker).Inc()
		}
		return data, nil
	}
	s.cacheMisses++
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.WithLabelValues(ticker).Inc()
	}

	breaker := s.breakers.GetOrCreate(ticker, circuitbreaker.DefaultProviderConfig())

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		var data *market.HistoricalData
		err := breaker.Execute(func() error {
			var fetchErr error
			data, fetchErr = s.provider.FetchHistoricalData(ctx, ticker, start, end, cfg)
			return fetchErr
		})
		if err == nil {
			if err := s.cache.Store(ticker, start, end, data); err != nil {
				s.logger.Warn().Err(err).Str("ticker", ticker).Msg("cache store failed")
			}
			return data, nil
		}
		lastErr = err
		var pe *marketdata.Error
		if !errors.As(err, &pe) || !pe.Retryable {
			return nil, err
		}
		s.retries++
		if s.metrics != nil {
			s.metrics.ProviderRetriesTotal.WithLabelValues(ticker, fmt.Sprintf("%T", s.provider)).Inc()
		}
		s.logger.Warn().Err(err).Str("ticker", ticker).Int("attempt", attempt).Msg("retrying fetch")
		if attempt == s.cfg.MaxRetries {
			break
		}
		backoff := time.Duration(5000*attempt) * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.metrics != nil {
		s.metrics.ProviderFailuresTotal.WithLabelValues(ticker, fmt.Sprintf("%T", s.provider)).Inc()
	}
	return nil, fmt.Errorf("marketcache: exhausted retries for %s: %w", ticker, lastErr)
}

// FetchHistoricalData returns per-ticker bars in [start, end] from the hot
// cache (fallback to file cache). Must be called after a successful
// Initialize for these tickers.
func (s *Service) FetchHistoricalData(tickers []string, start, end time.Time) (map[string]*market.HistoricalData, error) {
	out := make(map[string]*market.HistoricalData, len(tickers))
	for _, ticker := range tickers {
		s.mu.RLock()
		data, ok := s.hot[ticker]
		s.mu.RUnlock()
		if !ok {
			var loaded bool
			data, loaded = s.cache.Load(ticker, start, end)
			if !loaded {
				return nil, fmt.Errorf("%w: %s", ErrNoTickerData, ticker)
			}
		}
		windowed := market.NewHistoricalData(ticker)
		for _, p := range data.Range(start, end) {
			_ = windowed.Add(p)
		}
		out[ticker] = windowed
	}
	return out, nil
}

// Close drains any in-flight work within the configured shutdown budget.
// Nothing is outstanding once Initialize has returned, so this is
// currently a bounded no-op kept for lifecycle symmetry with the rest of
// the service's graceful-shutdown path.
func (s *Service) Close(ctx context.Context) error {
	done := make(chan struct{})
	close(done)
	select {
	case <-done:
		return nil
	case <-time.After(s.cfg.ShutdownBudget):
		return ErrShutdownTimeout
	}
}

// Stats returns cache/retry counters for metrics wiring.
func (s *Service) Stats() (hits, misses, retries, failures int64) {
	return s.cacheHits, s.cacheMisses, s.retries, s.failures
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
