package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 3, Timeout: time.Minute, MaxRequests: 1, Logger: zerolog.Nop()})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	require.Error(t, err, "an open breaker should reject without calling fn")
}

func TestBreakerHalfOpensAfterTimeoutAndCloses(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 1, Timeout: time.Millisecond, MaxRequests: 2, Logger: zerolog.Nop()})

	_ = cb.Execute(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(2 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State(), "enough successful half-open probes should close the breaker")
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New(Config{Name: "test", MaxFailures: 1, Timeout: time.Millisecond, MaxRequests: 2, Logger: zerolog.Nop()})

	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(2 * time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("still broken") })
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerReportsStateChanges(t *testing.T) {
	var transitions []State
	cfg := Config{Name: "test", MaxFailures: 1, Timeout: time.Minute, MaxRequests: 1, Logger: zerolog.Nop(),
		OnStateChange: func(name string, state State) { transitions = append(transitions, state) }}
	cb := New(cfg)

	_ = cb.Execute(func() error { return errors.New("boom") })

	require.Len(t, transitions, 1)
	assert.Equal(t, StateOpen, transitions[0])
}
