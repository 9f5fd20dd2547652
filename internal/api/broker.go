package api

import (
	"sync"

	"github.com/marketreplay/backtester/internal/backtest"
)

// TickBroker fans a run's TickSnapshot stream out to any number of
// websocket subscribers, one channel set per run ID.
type TickBroker struct {
	mu   sync.RWMutex
	subs map[string]map[chan backtest.TickSnapshot]struct{}
}

// NewTickBroker creates an empty broker.
func NewTickBroker() *TickBroker {
	return &TickBroker{subs: make(map[string]map[chan backtest.TickSnapshot]struct{})}
}

// Subscribe returns a channel that receives every snapshot Publish-ed for
// runID until unsubscribe is called. The channel is buffered; a slow
// consumer drops snapshots rather than blocking the replay loop.
func (b *TickBroker) Subscribe(runID string) (ch chan backtest.TickSnapshot, unsubscribe func()) {
	ch = make(chan backtest.TickSnapshot, 64)
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = make(map[chan backtest.TickSnapshot]struct{})
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs[runID], ch)
		b.mu.Unlock()
		close(ch)
	}
}

// Publish is the TickObserver handed to Engine for a run with the given
// ID: each snapshot is offered, never blocked, to every subscriber.
func (b *TickBroker) Publish(runID string) func(backtest.TickSnapshot) {
	return func(s backtest.TickSnapshot) {
		b.mu.RLock()
		defer b.mu.RUnlock()
		for ch := range b.subs[runID] {
			select {
			case ch <- s:
			default:
			}
		}
	}
}
