package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
replay:
  tickers: ["TSLA", "AAPL"]
  previous_days: 10
market_data:
  provider: alpaca
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"TSLA", "AAPL"}, cfg.Replay.Tickers)
	assert.Equal(t, 10, cfg.Replay.PreviousDays)
	assert.Equal(t, "alpaca", cfg.MarketData.Provider)
	// Untouched by the file, so the default should apply.
	assert.Equal(t, 100_000.0, cfg.Replay.InitialCash)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
