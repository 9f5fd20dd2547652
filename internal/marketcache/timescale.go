package marketcache

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/marketreplay/backtester/internal/circuitbreaker"
	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/metrics"
)

// TimescaleMirror is an optional best-effort secondary persistence tier
// that upserts bars into a dedicated historical_bars table. Writes run
// through a circuit breaker so a struggling database stops absorbing new
// upserts quickly rather than queuing every tick behind a slow connection.
type TimescaleMirror struct {
	pool    *pgxpool.Pool
	logger  zerolog.Logger
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.BacktestMetrics
}

// NewTimescaleMirror wraps an existing pool. Callers are responsible for
// applying the historical_bars migration before first use.
func NewTimescaleMirror(pool *pgxpool.Pool, logger zerolog.Logger) *TimescaleMirror {
	l := logger.With().Str("component", "timescale_mirror").Logger()
	cfg := circuitbreaker.DefaultTimescaleMirrorConfig()
	cfg.Logger = l
	return &TimescaleMirror{pool: pool, logger: l, breaker: circuitbreaker.New(cfg)}
}

// SetMetrics attaches a Prometheus metrics sink. Nil disables
// instrumentation.
func (m *TimescaleMirror) SetMetrics(reg *metrics.BacktestMetrics) {
	m.metrics = reg
}

// Upsert writes bars for ticker, deduplicating on (ticker, timestamp).
// Rejected outright while the breaker is open.
func (m *TimescaleMirror) Upsert(ctx context.Context, ticker string, points []market.DataPoint) error {
	const query = `
		INSERT INTO historical_bars (ticker, timestamp, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, timestamp) DO UPDATE
		SET open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`
	started := time.Now()
	err := m.breaker.Execute(func() error {
		batch := &pgxBatch{}
		for _, p := range points {
			batch.queue(query, ticker, p.Timestamp, p.Open, p.High, p.Low, p.Close, p.Volume)
		}
		return batch.send(ctx, m.pool)
	})

	if m.metrics != nil {
		m.metrics.DBQueryDuration.WithLabelValues("upsert", "historical_bars").Observe(time.Since(started).Seconds())
		m.metrics.DBQueryTotal.WithLabelValues("upsert", "historical_bars").Inc()
		if err != nil {
			m.metrics.DBErrors.WithLabelValues("upsert", "historical_bars").Inc()
		}
	}
	if err != nil {
		return fmt.Errorf("marketcache: timescale upsert %s: %w", ticker, err)
	}
	return nil
}

// pgxBatch is a thin wrapper over pgx.Batch so Upsert reads like a single
// statement while still sending one round trip per call.
type pgxBatch struct {
	queries []string
	args    [][]any
}

func (b *pgxBatch) queue(query string, args ...any) {
	b.queries = append(b.queries, query)
	b.args = append(b.args, args)
}

func (b *pgxBatch) send(ctx context.Context, pool *pgxpool.Pool) error {
	batch := &pgx.Batch{}
	for i, q := range b.queries {
		batch.Queue(q, b.args[i]...)
	}
	br := pool.SendBatch(ctx, batch)
	defer br.Close()
	for range b.queries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
