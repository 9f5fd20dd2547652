// Package audit records the trade events a backtest run produces: each
// detected TradeEvent is journaled to structured logs and, optionally, to
// a Timescale-backed trade_journal table.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// TradeRecord is the journal's own shape rather than an import of
// internal/backtest.TradeEvent, so this package never needs to depend on
// the engine that calls it; the mapping happens at the call site.
type TradeRecord struct {
	RunID     string
	AlgoID    string
	Ticker    string
	Action    string // BUY, SELL, SHORT, COVER
	Qty       float64
	Price     float64
	Timestamp time.Time
}

// Logger journals trade records to an optional Timescale pool and always
// to structured logs.
type Logger struct {
	pool   *pgxpool.Pool // optional; nil means log-only
	logger zerolog.Logger
}

// NewLogger builds a Logger. pool may be nil, in which case RecordTrade
// only emits a structured log line.
func NewLogger(pool *pgxpool.Pool, logger zerolog.Logger) *Logger {
	return &Logger{pool: pool, logger: logger.With().Str("component", "trade_journal").Logger()}
}

// RecordTrade journals one trade record. trade_journal's schema is owned
// by the mirror database's migrations, not by this package. A pool write
// failure is logged and swallowed rather than returned so a journaling
// problem never blocks the replay loop; the structured log line always
// fires first.
func (l *Logger) RecordTrade(ctx context.Context, rec TradeRecord) {
	l.logger.Info().
		Str("run_id", rec.RunID).
		Str("algo_id", rec.AlgoID).
		Str("ticker", rec.Ticker).
		Str("action", rec.Action).
		Float64("qty", rec.Qty).
		Float64("price", rec.Price).
		Time("ts", rec.Timestamp).
		Msg("trade recorded")

	if l.pool == nil {
		return
	}

	const query = `
		INSERT INTO trade_journal (id, run_id, algo_id, ticker, action, qty, price, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := l.pool.Exec(ctx, query,
		uuid.New(), rec.RunID, rec.AlgoID, rec.Ticker, rec.Action, rec.Qty, rec.Price, rec.Timestamp,
	); err != nil {
		l.logger.Warn().Err(err).Str("ticker", rec.Ticker).Msg("trade journal write failed")
	}
}
