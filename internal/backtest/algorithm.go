package backtest

import (
	"time"

	"github.com/marketreplay/backtester/internal/market"
	"github.com/marketreplay/backtester/internal/portfolio"
)

// Algorithm is the strategy contract: strategies receive the portfolio
// and may mutate it synchronously on each tick, rather than publishing
// signal events to a bus.
type Algorithm interface {
	// OnMarketOpen is called once with the first tick's bar map.
	OnMarketOpen(initial map[string]market.DataPoint)
	// OnUpdate is called on every admitted tick; the strategy may call any
	// Portfolio mutation.
	OnUpdate(current map[string]market.DataPoint, ts time.Time, p *portfolio.Portfolio)
	// OnMarketClose is called once with the final tick's bar map.
	OnMarketClose(final map[string]market.DataPoint)
	// AlgorithmID must be unique per engine run.
	AlgorithmID() string
}
