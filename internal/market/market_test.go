package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(ticker string, ts time.Time, close float64) DataPoint {
	return DataPoint{
		Ticker: ticker, Open: close, High: close, Low: close, Close: close,
		Volume: 100, Timestamp: ts,
	}
}

func TestDataPointValidate(t *testing.T) {
	ts := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, bar("TSLA", ts, 200).Validate())

	bad := DataPoint{Ticker: "TSLA", Open: 10, High: 5, Low: 1, Close: 8, Volume: 1, Timestamp: ts}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidBar)

	neg := bar("TSLA", ts, 200)
	neg.Volume = -1
	assert.ErrorIs(t, neg.Validate(), ErrInvalidBar)
}

func TestHistoricalDataTickerMismatch(t *testing.T) {
	h := NewHistoricalData("TSLA")
	err := h.Add(bar("AAPL", time.Now(), 100))
	assert.ErrorIs(t, err, ErrTickerMismatch)
}

func TestHistoricalDataRangeAndOrder(t *testing.T) {
	h := NewHistoricalData("TSLA")
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, h.Add(bar("TSLA", base.Add(2*time.Minute), 202)))
	require.NoError(t, h.Add(bar("TSLA", base, 200)))
	require.NoError(t, h.Add(bar("TSLA", base.Add(1*time.Minute), 201)))

	all := h.All()
	require.Len(t, all, 3)
	assert.Equal(t, 200.0, all[0].Close)
	assert.Equal(t, 201.0, all[1].Close)
	assert.Equal(t, 202.0, all[2].Close)

	r := h.Range(base, base.Add(time.Minute))
	require.Len(t, r, 2)
}

func TestHistoricalDataPercentChange(t *testing.T) {
	h := NewHistoricalData("TSLA")
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, h.Add(bar("TSLA", base, 100)))
	require.NoError(t, h.Add(bar("TSLA", base.Add(10*time.Minute), 110)))

	pct, err := h.PercentChange(base, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, pct, 1e-9)

	// floor-indexed: asking at a minute between two bars floors to the prior one.
	pct, err = h.PercentChange(base, base.Add(5*time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pct, 1e-9)
}

func TestHistoricalDataMarshalRoundTrip(t *testing.T) {
	h := NewHistoricalData("TSLA")
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, h.Add(bar("TSLA", base, 100)))
	require.NoError(t, h.Add(bar("TSLA", base.Add(time.Minute), 101)))

	data, err := h.MarshalBinary()
	require.NoError(t, err)

	h2 := NewHistoricalData("")
	require.NoError(t, h2.UnmarshalBinary(data))
	assert.Equal(t, "TSLA", h2.Ticker())
	assert.Equal(t, h.All(), h2.All())
}

func TestTimelineBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmptyTimeline)

	_, err = Build([]*HistoricalData{NewHistoricalData("TSLA")})
	assert.ErrorIs(t, err, ErrEmptyTimeline)
}

func TestTimelineBuildMergesAndTruncates(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 30, 0, 123, time.UTC)
	tsla := NewHistoricalData("TSLA")
	require.NoError(t, tsla.Add(bar("TSLA", base, 200)))
	require.NoError(t, tsla.Add(bar("TSLA", base.Add(time.Minute), 201)))

	aapl := NewHistoricalData("AAPL")
	require.NoError(t, aapl.Add(bar("AAPL", base, 150)))

	tl, err := Build([]*HistoricalData{tsla, aapl})
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())

	for _, m := range tl.Minutes() {
		assert.Zero(t, m.Nanosecond(), "timeline minute must be truncated")
	}

	first := tl.At(base.Truncate(time.Minute))
	assert.Len(t, first, 2)
	assert.Equal(t, 200.0, first["TSLA"].Close)
	assert.Equal(t, 150.0, first["AAPL"].Close)

	second := tl.At(base.Add(time.Minute).Truncate(time.Minute))
	assert.Len(t, second, 1)
	assert.Equal(t, 201.0, second["TSLA"].Close)
}

func TestTimelineFirstBarWins(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	a := NewHistoricalData("TSLA")
	require.NoError(t, a.Add(bar("TSLA", base, 1)))
	b := NewHistoricalData("TSLA")
	require.NoError(t, b.Add(bar("TSLA", base, 2)))

	tl, err := Build([]*HistoricalData{a, b})
	require.NoError(t, err)
	assert.Equal(t, 1.0, tl.At(base)["TSLA"].Close)
}
