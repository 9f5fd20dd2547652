package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marketreplay/backtester/internal/portfolio"
)

// Results is the value returned by a completed engine run.
type Results struct {
	Statistics map[string]*Statistics
	StartTime  time.Time
	EndTime    time.Time
	Portfolios map[string]*portfolio.Portfolio
}

// String renders a human-readable console report.
func (r *Results) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backtest Results (%s -> %s)\n", r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339))
	fmt.Fprintln(&b, strings.Repeat("-", 60))
	for id, stats := range r.Statistics {
		fmt.Fprintf(&b, "Strategy: %s\n", id)
		fmt.Fprintf(&b, "  Initial value   : %.2f\n", stats.InitialValue)
		fmt.Fprintf(&b, "  Total profit    : %.2f\n", stats.TotalProfit)
		fmt.Fprintf(&b, "  Max drawdown    : %.2f%%\n", stats.MaxDrawdown)
		fmt.Fprintf(&b, "  Sharpe ratio    : %.3f\n", stats.Sharpe)
		fmt.Fprintf(&b, "  Total trades    : %d\n", stats.TotalTrades)
		for ticker, ts := range stats.PerTicker {
			fmt.Fprintf(&b, "  %-8s trades=%d wins=%d losses=%d pnl=%.2f\n",
				ticker, ts.TotalTrades, ts.Wins, ts.Losses, ts.TotalPnL)
		}
		fmt.Fprintln(&b, strings.Repeat("-", 60))
	}
	return b.String()
}

// resultsFile is the JSON-serializable shape SaveToFile writes. Statistics
// and Portfolio carry unexported bookkeeping fields json.Marshal would
// otherwise silently drop, so this flattens only the fields meaningful to
// an external reader of the saved report.
type resultsFile struct {
	StartTime time.Time                 `json:"start_time"`
	EndTime   time.Time                 `json:"end_time"`
	Strategies map[string]strategyReport `json:"strategies"`
}

type strategyReport struct {
	InitialValue float64                  `json:"initial_value"`
	TotalProfit  float64                  `json:"total_profit"`
	MaxDrawdown  float64                  `json:"max_drawdown_pct"`
	Sharpe       float64                  `json:"sharpe_ratio"`
	TotalTrades  int                      `json:"total_trades"`
	PerTicker    map[string]*TickerStats  `json:"per_ticker"`
}

// SaveToFile writes a JSON results bundle to dir/results_<EndTime>.json,
// with EndTime formatted as 20060102T150405.
func (r *Results) SaveToFile(dir string) error {
	out := resultsFile{
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Strategies: make(map[string]strategyReport, len(r.Statistics)),
	}
	for id, stats := range r.Statistics {
		out.Strategies[id] = strategyReport{
			InitialValue: stats.InitialValue,
			TotalProfit:  stats.TotalProfit,
			MaxDrawdown:  stats.MaxDrawdown,
			Sharpe:       stats.Sharpe,
			TotalTrades:  stats.TotalTrades,
			PerTicker:    stats.PerTicker,
		}
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("backtest: marshal results: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("backtest: create output dir: %w", err)
	}
	name := fmt.Sprintf("results_%s.json", r.EndTime.Format("20060102T150405"))
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		return fmt.Errorf("backtest: write results file: %w", err)
	}
	return nil
}
