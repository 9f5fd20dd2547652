package circuitbreaker

import (
	"sync"

	"github.com/rs/zerolog"
)

// Manager keys a breaker per name (one per ticker in marketcache.Service)
// so a single failing ticker trips independently of the rest.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	logger   zerolog.Logger
	onChange StateChangeFunc // optional; applied to every breaker this manager creates
}

// NewManager creates an empty breaker manager. onChange may be nil; when
// set, every breaker GetOrCreate builds reports its transitions through it.
func NewManager(logger zerolog.Logger, onChange StateChangeFunc) *Manager {
	return &Manager{breakers: make(map[string]*CircuitBreaker), logger: logger, onChange: onChange}
}

// GetOrCreate returns the named breaker, creating it from config on first
// use. config.Name/Logger/OnStateChange are overwritten with the manager's
// own.
func (m *Manager) GetOrCreate(name string, config Config) *CircuitBreaker {
	m.mu.RLock()
	if breaker, exists := m.breakers[name]; exists {
		m.mu.RUnlock()
		return breaker
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if breaker, exists := m.breakers[name]; exists {
		return breaker
	}

	config.Name = name
	config.Logger = m.logger
	config.OnStateChange = m.onChange
	breaker := New(config)
	m.breakers[name] = breaker

	m.logger.Info().Str("breaker", name).Int("max_failures", config.MaxFailures).Dur("timeout", config.Timeout).
		Msg("circuit breaker created")

	return breaker
}
