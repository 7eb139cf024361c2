package services

import (
	"context"
	"sync"
	"time"

	"github.com/avoskres/loankeeper/internal/logging"
)

// Pinger is the reachability probe the monitor relies on. The remote client
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor tracks online/offline state and notifies subscribers on the
// offline→online edge: once per transition, not per consumer poll, so a
// queue drain is triggered exactly once however many components watch.
//
// Transitions arrive either from SetOnline (platform connectivity events)
// or from the optional Run probe loop.
type Monitor struct {
	pinger   Pinger
	log      logging.Logger
	interval time.Duration

	mu       sync.Mutex
	online   bool
	handlers []func(ctx context.Context)
}

func NewMonitor(pinger Pinger, interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{pinger: pinger, log: log, interval: interval}
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnOnline registers a callback fired on every offline→online transition.
// Callbacks run synchronously in the order registered; long work should be
// handed off by the callback itself.
func (m *Monitor) OnOnline(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// SetOnline records a connectivity transition. Only the offline→online edge
// fires handlers; repeated reports of the same state are ignored.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	handlers := m.handlers
	m.mu.Unlock()

	if wasOnline == online {
		return
	}

	if online {
		m.log.Info(ctx, "connectivity restored")
		for _, fn := range handlers {
			fn(ctx)
		}
	} else {
		m.log.Warn(ctx, "connectivity lost")
	}
}

// Run probes the remote on a fixed interval until ctx is done, feeding
// transitions into SetOnline. The very first probe runs immediately so
// startup state is known without waiting a full interval.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := m.pinger.Ping(probeCtx)
	cancel()

	m.SetOnline(ctx, err == nil)
}
