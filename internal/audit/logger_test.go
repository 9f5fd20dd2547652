package audit

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRecordTradeWithoutPoolDoesNotPanic(t *testing.T) {
	l := NewLogger(nil, zerolog.Nop())

	l.RecordTrade(context.Background(), TradeRecord{
		RunID:     "2026-07-29T00:00",
		AlgoID:    "rsi_mean_reversion",
		Ticker:    "SPY",
		Action:    "BUY",
		Qty:       10,
		Price:     420.5,
		Timestamp: time.Now().UTC(),
	})
}
