package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerGetOrCreateIsStablePerName(t *testing.T) {
	m := NewManager(zerolog.Nop(), nil)

	a := m.GetOrCreate("SPY", DefaultProviderConfig())
	b := m.GetOrCreate("SPY", DefaultProviderConfig())
	assert.Same(t, a, b, "the same name should always return the same breaker")

	c := m.GetOrCreate("QQQ", DefaultProviderConfig())
	assert.NotSame(t, a, c, "different names should get independent breakers")
}

func TestManagerNotifiesOnChangeForEachNamedBreaker(t *testing.T) {
	seen := make(map[string]State)
	m := NewManager(zerolog.Nop(), func(name string, state State) { seen[name] = state })

	cfg := DefaultProviderConfig()
	cfg.MaxFailures = 1
	cfg.Timeout = time.Minute

	spy := m.GetOrCreate("SPY", cfg)
	require.Error(t, spy.Execute(func() error { return errors.New("boom") }))

	assert.Equal(t, StateOpen, seen["SPY"])
}
