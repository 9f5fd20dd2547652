package fundamentals

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

const defaultTTL = 24 * time.Hour

// Fetcher is the AuxiliaryFundamentalsFetcher: it layers caching and
// as-of filtering over a caller-supplied Provider for earnings/ratios/
// income statements, and over a concrete gofeed-based fetch for news.
type Fetcher struct {
	provider Provider
	news     *NewsFetcher

	earnings *ttlCache[Earnings]
	ratios   *ttlCache[FinancialRatios]
	income   *ttlCache[IncomeStatement]
}

// New builds a Fetcher persisting its three provider-backed caches under
// dir, each named for what it holds: earnings_cache.json,
// metrics_cache.json, income_cache.json. News sentiment is cached by the
// given NewsFetcher in its own sentiment_cache.json.
func New(provider Provider, news *NewsFetcher, dir string, ttl time.Duration) *Fetcher {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Fetcher{
		provider: provider,
		news:     news,
		earnings: newTTLCache[Earnings](filepath.Join(dir, "earnings_cache.json"), ttl),
		ratios:   newTTLCache[FinancialRatios](filepath.Join(dir, "metrics_cache.json"), ttl),
		income:   newTTLCache[IncomeStatement](filepath.Join(dir, "income_cache.json"), ttl),
	}
}

// Earnings returns every earnings event for ticker reported at or before
// asOf, fetching and caching from the provider on a cold/expired entry.
func (f *Fetcher) Earnings(ticker string, asOf time.Time) ([]Earnings, error) {
	all, err := f.cachedEarnings(ticker)
	if err != nil {
		return nil, err
	}
	out := make([]Earnings, 0, len(all))
	for _, e := range all {
		if !e.ReportedAt.After(asOf) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *Fetcher) cachedEarnings(ticker string) ([]Earnings, error) {
	if cached, ok := f.earnings.Get(ticker); ok {
		return cached, nil
	}
	fetched, err := f.provider.FetchEarnings(ticker)
	if err != nil {
		return nil, fmt.Errorf("fundamentals: fetch earnings for %s: %w", ticker, err)
	}
	f.earnings.Set(ticker, fetched)
	return fetched, nil
}

// FinancialRatios returns every ratio snapshot for ticker as of asOf.
func (f *Fetcher) FinancialRatios(ticker string, asOf time.Time) ([]FinancialRatios, error) {
	all, ok := f.ratios.Get(ticker)
	if !ok {
		fetched, err := f.provider.FetchFinancialRatios(ticker)
		if err != nil {
			return nil, fmt.Errorf("fundamentals: fetch ratios for %s: %w", ticker, err)
		}
		f.ratios.Set(ticker, fetched)
		all = fetched
	}
	out := make([]FinancialRatios, 0, len(all))
	for _, r := range all {
		if !r.AsOf.After(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

// IncomeStatementsQuarterly returns every quarterly income statement for
// ticker published at or before asOf.
func (f *Fetcher) IncomeStatementsQuarterly(ticker string, asOf time.Time) ([]IncomeStatement, error) {
	all, ok := f.income.Get(ticker)
	if !ok {
		fetched, err := f.provider.FetchIncomeStatements(ticker)
		if err != nil {
			return nil, fmt.Errorf("fundamentals: fetch income statements for %s: %w", ticker, err)
		}
		f.income.Set(ticker, fetched)
		all = fetched
	}
	out := make([]IncomeStatement, 0, len(all))
	for _, s := range all {
		if !s.PublishedAt.After(asOf) {
			out = append(out, s)
		}
	}
	return out, nil
}

// NewsSentiments returns every cached news-sentiment record for ticker
// published at or before asOf, via the RSS-backed NewsFetcher.
func (f *Fetcher) NewsSentiments(ctx context.Context, ticker string, asOf time.Time) ([]NewsSentiment, error) {
	all, err := f.news.Fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}
	out := make([]NewsSentiment, 0, len(all))
	for _, n := range all {
		if !n.PublishedAt.After(asOf) {
			out = append(out, n)
		}
	}
	return out, nil
}
