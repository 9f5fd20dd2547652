package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/marketreplay/backtester/internal/backtest"
)

// ResultsStore is the narrow read side of api.ResultStore the handler
// depends on.
type ResultsStore interface {
	Get(runID string) (*backtest.Results, bool)
	List() []string
}

// ResultsHandler serves completed run results as read-only JSON.
type ResultsHandler struct {
	store  ResultsStore
	logger zerolog.Logger
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(store ResultsStore, logger zerolog.Logger) *ResultsHandler {
	return &ResultsHandler{store: store, logger: logger}
}

// runSummary flattens a Results into a JSON-friendly shape; Portfolio and
// Statistics carry unexported bookkeeping fields that json.Marshal would
// otherwise silently drop.
type runSummary struct {
	StartTime time.Time                `json:"start_time"`
	EndTime   time.Time                `json:"end_time"`
	Report    string                   `json:"report"`
	Strategies map[string]strategySummary `json:"strategies"`
}

type strategySummary struct {
	Cash            float64                          `json:"cash"`
	MarginAvailable float64                           `json:"margin_available"`
	TotalPositions  int64                             `json:"total_positions"`
	InitialValue    float64                           `json:"initial_value"`
	TotalProfit     float64                            `json:"total_profit"`
	PeakValue       float64                            `json:"peak_value"`
	MaxDrawdown     float64                            `json:"max_drawdown_pct"`
	Sharpe          float64                            `json:"sharpe"`
	TotalTrades     int                                `json:"total_trades"`
	PerTicker       map[string]*backtest.TickerStats   `json:"per_ticker"`
}

func toSummary(r *backtest.Results) runSummary {
	out := runSummary{
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Report:     r.String(),
		Strategies: make(map[string]strategySummary, len(r.Statistics)),
	}
	for id, stats := range r.Statistics {
		p := r.Portfolios[id]
		s := strategySummary{
			InitialValue: stats.InitialValue,
			TotalProfit:  stats.TotalProfit,
			PeakValue:    stats.PeakValue,
			MaxDrawdown:  stats.MaxDrawdown,
			Sharpe:       stats.Sharpe,
			TotalTrades:  stats.TotalTrades,
			PerTicker:    stats.PerTicker,
		}
		if p != nil {
			s.Cash = p.Cash
			s.MarginAvailable = p.MarginAvailable
			s.TotalPositions = p.TotalPositions
		}
		out.Strategies[id] = s
	}
	return out
}

// GetResult handles GET /results/{runID}.
func (h *ResultsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	results, ok := h.store.Get(runID)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toSummary(results)); err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("failed to encode results response")
	}
}

// ListResults handles GET /results.
func (h *ResultsHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"runs": h.store.List()}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode run list")
	}
}
