package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorProbesResponsiveConnection(t *testing.T) {
	registry := NewRegistry()
	c, ws := newTestConn("alice")
	registry.Admit(c)

	monitor := NewMonitor(registry, 10*time.Millisecond)
	go monitor.Run()
	defer monitor.Stop()

	// Keep answering probes; the connection must survive several ticks.
	require.True(t, waitFor(waitTimeout, func() bool {
		c.MarkAlive()
		return ws.Pings() >= 3
	}))
	assert.Equal(t, 1, registry.Count("alice"))
	assert.False(t, ws.IsClosed())
}

func TestMonitorEvictsSilentConnection(t *testing.T) {
	registry := NewRegistry()
	c, ws := newTestConn("alice")
	registry.Admit(c)

	monitor := NewMonitor(registry, 10*time.Millisecond)
	go monitor.Run()
	defer monitor.Stop()

	// Never answer a probe. Tick one clears the flag and pings; tick two
	// finds the flag still false and evicts.
	require.True(t, waitFor(waitTimeout, func() bool { return ws.IsClosed() }))
	assert.Equal(t, 0, registry.Count("alice"))
	assert.GreaterOrEqual(t, ws.Pings(), 1)
}

func TestMonitorGraceWindow(t *testing.T) {
	registry := NewRegistry()
	c, _ := newTestConn("alice")
	registry.Admit(c)

	interval := 50 * time.Millisecond
	monitor := NewMonitor(registry, interval)
	go monitor.Run()
	defer monitor.Stop()

	// One interval in, the connection has been probed at most once and
	// must still be registered: eviction needs a second tick.
	time.Sleep(interval + interval/2)
	assert.Equal(t, 1, registry.Count("alice"))
}

func TestMonitorEvictionRacesNormalClose(t *testing.T) {
	registry := NewRegistry()
	c, _ := newTestConn("alice")
	registry.Admit(c)

	monitor := NewMonitor(registry, 5*time.Millisecond)
	go monitor.Run()
	defer monitor.Stop()

	// A normal close deregistering concurrently with eviction must leave
	// the same removed state, whichever runs first.
	go func() {
		registry.Remove(c)
		c.Close()
	}()

	require.True(t, waitFor(waitTimeout, func() bool { return registry.Count("alice") == 0 }))
	assert.False(t, c.Ready())
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	monitor := NewMonitor(NewRegistry(), 10*time.Millisecond)
	go monitor.Run()

	assert.NotPanics(t, func() {
		monitor.Stop()
		monitor.Stop()
	})
}
