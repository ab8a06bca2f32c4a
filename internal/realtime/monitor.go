package realtime

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultProbeInterval is the liveness probe period. A connection that
// answers no probe is evicted on the tick after its flag was cleared, so
// the grace window is two intervals.
const DefaultProbeInterval = 10 * time.Second

// Monitor periodically probes every registered connection and evicts the
// ones that stopped answering. The heartbeat is one-sided: a tick never
// waits for responses, it only inspects the flag the previous tick cleared.
type Monitor struct {
	registry *Registry
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMonitor(registry *Registry, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Monitor{
		registry: registry,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Run drives probe ticks until Stop is called. Call it on its own
// goroutine.
func (m *Monitor) Run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick()
		case <-m.stop:
			slog.Info("liveness monitor stopped")
			return
		}
	}
}

// Stop cancels the probe timer. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

func (m *Monitor) tick() {
	for _, c := range m.registry.Snapshot() {
		if !c.Alive() {
			slog.Warn("evicting unresponsive connection", "connID", c.ID(), "identity", c.Identity())
			c.Close()
			m.registry.Remove(c)
			continue
		}

		c.ClearAlive()
		if err := c.Ping(); err != nil {
			slog.Debug("probe write failed", "connID", c.ID(), "identity", c.Identity(), "error", err)
			c.Close()
			m.registry.Remove(c)
		}
	}
}
