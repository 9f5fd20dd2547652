// Package fundamentals implements the auxiliary fundamentals sidecar: four
// independently-cached accessors (earnings, financial ratios, quarterly
// income statements, news sentiment), each with a 24-hour TTL and as-of
// filtering so a backtest replaying minute T never sees data published
// after T.
package fundamentals

import "time"

// Earnings is one reported (or estimated) earnings event.
type Earnings struct {
	Ticker      string    `json:"ticker"`
	Period      string    `json:"period"` // e.g. "2024-Q1"
	EPSActual   float64   `json:"eps_actual"`
	EPSEstimate float64   `json:"eps_estimate"`
	ReportedAt  time.Time `json:"reported_at"`
}

// FinancialRatios is one as-of snapshot of common valuation ratios.
type FinancialRatios struct {
	Ticker    string    `json:"ticker"`
	PERatio   float64   `json:"pe_ratio"`
	PBRatio   float64   `json:"pb_ratio"`
	DebtEquity float64  `json:"debt_equity"`
	AsOf      time.Time `json:"as_of"`
}

// IncomeStatement is one quarterly income statement snapshot.
type IncomeStatement struct {
	Ticker      string    `json:"ticker"`
	Period      string    `json:"period"`
	Revenue     float64   `json:"revenue"`
	NetIncome   float64   `json:"net_income"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsSentiment is one headline-level sentiment record, scored by crude
// keyword polarity, not a machine-learning model.
type NewsSentiment struct {
	Ticker      string    `json:"ticker"`
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	Score       float64   `json:"score"` // [-1, 1]
	PublishedAt time.Time `json:"published_at"`
}

// Provider supplies the upstream data for the three non-news accessors.
// The concrete HTTP client behind it is a caller-supplied narrow
// dependency; this package only adds caching, as-of filtering, and TTL
// on top.
type Provider interface {
	FetchEarnings(ticker string) ([]Earnings, error)
	FetchFinancialRatios(ticker string) ([]FinancialRatios, error)
	FetchIncomeStatements(ticker string) ([]IncomeStatement, error)
}
