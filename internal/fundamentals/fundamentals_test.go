package fundamentals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	earnings []Earnings
	ratios   []FinancialRatios
	income   []IncomeStatement
	calls    int
}

func (s *stubProvider) FetchEarnings(string) ([]Earnings, error) {
	s.calls++
	return s.earnings, nil
}
func (s *stubProvider) FetchFinancialRatios(string) ([]FinancialRatios, error) {
	return s.ratios, nil
}
func (s *stubProvider) FetchIncomeStatements(string) ([]IncomeStatement, error) {
	return s.income, nil
}

func TestEarningsFiltersByAsOf(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{earnings: []Earnings{
		{Ticker: "TSLA", Period: "2023-Q4", ReportedAt: start},
		{Ticker: "TSLA", Period: "2024-Q1", ReportedAt: start.AddDate(0, 3, 0)},
	}}
	f := New(provider, NewNewsFetcher(nil, t.TempDir(), time.Hour), t.TempDir(), time.Hour)

	got, err := f.Earnings("TSLA", start.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2023-Q4", got[0].Period)
}

func TestEarningsCachesAcrossCalls(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{earnings: []Earnings{{Ticker: "TSLA", ReportedAt: start}}}
	f := New(provider, NewNewsFetcher(nil, t.TempDir(), time.Hour), t.TempDir(), time.Hour)

	_, err := f.Earnings("TSLA", start)
	require.NoError(t, err)
	_, err = f.Earnings("TSLA", start)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls, "second call should hit the cache, not the provider")
}

func TestFinancialRatiosFiltersByAsOf(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{ratios: []FinancialRatios{
		{Ticker: "AAPL", AsOf: start},
		{Ticker: "AAPL", AsOf: start.AddDate(0, 0, 10)},
	}}
	f := New(provider, NewNewsFetcher(nil, t.TempDir(), time.Hour), t.TempDir(), time.Hour)

	got, err := f.FinancialRatios("AAPL", start.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestScoreSentiment(t *testing.T) {
	assert.Greater(t, scoreSentiment("Company shares surge on record earnings beat"), 0.0)
	assert.Less(t, scoreSentiment("Company stock plunges after earnings miss and lawsuit"), 0.0)
	assert.Equal(t, 0.0, scoreSentiment("Company holds annual meeting"))
}

func TestCleanHTMLStripsMarkup(t *testing.T) {
	assert.Equal(t, "Hello world", cleanHTML("<p>Hello <b>world</b></p>"))
}
