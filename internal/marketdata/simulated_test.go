package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedProviderIsDeterministic(t *testing.T) {
	p := NewSimulatedProvider(42)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	end := start.Add(10 * time.Minute)

	a, err := p.FetchHistoricalData(context.Background(), "TSLA", start, end, NYSE)
	require.NoError(t, err)
	b, err := p.FetchHistoricalData(context.Background(), "TSLA", start, end, NYSE)
	require.NoError(t, err)

	assert.Equal(t, a.All(), b.All())
	assert.Greater(t, a.Len(), 0)
}

func TestSimulatedProviderBarsAreValid(t *testing.T) {
	p := NewSimulatedProvider(7)
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	data, err := p.FetchHistoricalData(context.Background(), "AAPL", start, start.Add(5*time.Minute), NYSE)
	require.NoError(t, err)
	for _, bar := range data.All() {
		assert.NoError(t, bar.Validate())
	}
}

func TestSimulatedProviderCapabilities(t *testing.T) {
	p := NewSimulatedProvider(1)
	assert.True(t, p.IsAvailable(context.Background()))
	caps := p.Capabilities()
	assert.True(t, caps.SupportsHistorical)
	assert.Equal(t, time.Minute, caps.Granularity)
}
