package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketreplay/backtester/internal/market"
)

func bar(close float64, ts time.Time) market.DataPoint {
	return market.DataPoint{Open: close, High: close, Low: close, Close: close, Volume: 1000, Timestamp: ts}
}

func TestSMAAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, SMA(nil))
	assert.Equal(t, 2.0, SMA([]float64{1, 2, 3}))
	assert.InDelta(t, 0.8165, StdDev([]float64{1, 2, 3}, 2), 0.001)
}

func TestRSIReachesExtremes(t *testing.T) {
	r := NewRSI(3)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	for i, c := range []float64{100, 98, 96, 94, 92, 90} {
		require.NoError(t, r.Update(bar(c, start.Add(time.Duration(i)*time.Minute))))
	}
	require.True(t, r.IsReady())
	assert.True(t, r.IsOversoldCustom(30), "sustained decline should push RSI below 30")

	r2 := NewRSI(3)
	for i, c := range []float64{100, 102, 104, 106, 108, 110} {
		require.NoError(t, r2.Update(bar(c, start.Add(time.Duration(i)*time.Minute))))
	}
	assert.True(t, r2.IsOverboughtCustom(70), "sustained rally should push RSI above 70")
}

func TestBollingerBandsReady(t *testing.T) {
	bb := NewBollingerBands(4, 2.0)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	for i, c := range []float64{100, 100, 100, 80} {
		require.NoError(t, bb.Update(bar(c, start.Add(time.Duration(i)*time.Minute))))
	}
	require.True(t, bb.IsReady())
	assert.True(t, bb.IsBelowLowerBand(50), "a price well under the bands should be flagged")
	assert.False(t, bb.IsAboveUpperBand(50))
}

func TestEMASeedsFromSMAThenTracks(t *testing.T) {
	e := NewEMA(3)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, e.Update(bar(10, start)))
	require.NoError(t, e.Update(bar(20, start.Add(time.Minute))))
	assert.False(t, e.IsReady(), "EMA needs period bars before it seeds")

	require.NoError(t, e.Update(bar(30, start.Add(2*time.Minute))))
	require.True(t, e.IsReady())
	assert.Equal(t, 20.0, e.Value(), "seed value is the plain SMA of the first period closes")

	require.NoError(t, e.Update(bar(40, start.Add(3*time.Minute))))
	assert.Greater(t, e.Value(), 20.0, "a higher close should pull the EMA upward")
}

func TestVWAPResetsAcrossDays(t *testing.T) {
	v := NewVWAP()
	day1 := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, v.Update(market.DataPoint{Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000, Timestamp: day1}))
	require.True(t, v.IsReady())
	firstDayVolume := v.value

	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, v.Update(market.DataPoint{Open: 50, High: 51, Low: 49, Close: 50, Volume: 1000, Timestamp: day2}))
	assert.NotEqual(t, firstDayVolume, v.value, "a new trading day should reset the accumulator, not carry it over")

	assert.True(t, v.IsPriceBelowVWAP(10))
	assert.InDelta(t, (10.0-v.value)/v.value, v.PriceDistanceFromVWAP(10), 0.0001)
}
