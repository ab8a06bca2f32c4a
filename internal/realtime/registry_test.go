package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitAndRemove(t *testing.T) {
	registry := NewRegistry()
	c, _ := newTestConn("alice")

	registry.Admit(c)
	assert.Equal(t, 1, registry.Count("alice"))

	// Idempotent insert
	registry.Admit(c)
	assert.Equal(t, 1, registry.Count("alice"))

	registry.Remove(c)
	assert.Equal(t, 0, registry.Count("alice"))

	// Empty entries are dropped entirely
	assert.Empty(t, registry.Identities())
}

func TestRemoveUnregisteredIsNoop(t *testing.T) {
	registry := NewRegistry()
	c, _ := newTestConn("alice")

	assert.NotPanics(t, func() {
		registry.Remove(c)
	})
	assert.Empty(t, registry.Identities())
}

func TestMultiTab(t *testing.T) {
	registry := NewRegistry()
	first, firstWS := newTestConn("alice")
	second, secondWS := newTestConn("alice")

	registry.Admit(first)
	registry.Admit(second)
	require.Equal(t, 2, registry.Count("alice"))

	registry.BroadcastTo("alice", NewStatusPush("Audit complete"))

	for _, ws := range []*mockTransport{firstWS, secondWS} {
		require.True(t, waitFor(waitTimeout, func() bool { return len(ws.Pushes()) == 1 }))
		pushes := ws.Pushes()
		assert.Equal(t, MessageTypeStatus, pushes[0].Type)
		assert.Equal(t, "Audit complete", pushes[0].Text)
	}

	registry.Remove(first)
	assert.Equal(t, 1, registry.Count("alice"))
	assert.Equal(t, []string{"alice"}, registry.Identities())
}

func TestBroadcastToUnknownIdentity(t *testing.T) {
	registry := NewRegistry()

	assert.NotPanics(t, func() {
		registry.BroadcastTo("nobody", NewStatusPush("hello"))
	})
}

func TestBroadcastSkipsClosedConnections(t *testing.T) {
	registry := NewRegistry()
	open, openWS := newTestConn("alice")
	closed, closedWS := newTestConn("alice")

	registry.Admit(open)
	registry.Admit(closed)
	closed.Close()

	registry.BroadcastTo("alice", NewStatusPush("still here"))

	require.True(t, waitFor(waitTimeout, func() bool { return len(openWS.Pushes()) == 1 }))
	assert.Empty(t, closedWS.Messages())
}

func TestBroadcastOnlyTargetsIdentity(t *testing.T) {
	registry := NewRegistry()
	alice, aliceWS := newTestConn("alice")
	bob, bobWS := newTestConn("bob")

	registry.Admit(alice)
	registry.Admit(bob)

	registry.BroadcastTo("alice", NewStatusPush("for alice"))

	require.True(t, waitFor(waitTimeout, func() bool { return len(aliceWS.Pushes()) == 1 }))
	assert.Empty(t, bobWS.Messages())
}

func TestConcurrentAdmitRemove(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := fmt.Sprintf("user-%d", n%4)
			for j := 0; j < 50; j++ {
				c, _ := newTestConn(identity)
				registry.Admit(c)
				registry.BroadcastTo(identity, NewStatusPush("tick"))
				registry.Remove(c)
				c.Close()
			}
		}(i)
	}
	wg.Wait()

	// Every connection was removed, so no entries may survive; an entry
	// that does exist must be non-empty.
	assert.Empty(t, registry.Identities())
}
