package realtime

import (
	"log/slog"
	"sync"
)

// Registry maps an identity to the set of connections currently open for it.
// It is constructed once and handed by reference to the handshake handler,
// the broadcaster and the liveness monitor; it is not a package singleton.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]map[*Conn]struct{}),
	}
}

// Admit registers the connection under its identity. Idempotent; after
// Admit the connection receives broadcasts addressed to the identity.
// Multiple concurrent connections per identity are expected (multi-tab).
func (r *Registry) Admit(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.conns[c.identity]
	if set == nil {
		set = make(map[*Conn]struct{})
		r.conns[c.identity] = set
	}
	set[c] = struct{}{}

	slog.Info("connection admitted", "connID", c.id, "identity", c.identity, "open", len(set))
}

// Remove deregisters the connection. The identity entry is dropped entirely
// when its set becomes empty. Removing an unregistered connection is a
// no-op, so a normal close racing a liveness eviction is harmless.
func (r *Registry) Remove(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.identity]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, c.identity)
	}

	slog.Info("connection removed", "connID", c.id, "identity", c.identity, "open", len(set))
}

// BroadcastTo sends the push to every registered connection of the
// identity. Best-effort: connections that are not ready at send time are
// skipped, and an identity with no entry is a silent no-op ("nobody is
// listening" is an expected steady state).
func (r *Registry) BroadcastTo(identity string, p Push) {
	r.mu.RLock()
	targets := make([]*Conn, 0, len(r.conns[identity]))
	for c := range r.conns[identity] {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if !c.Ready() {
			continue
		}
		if err := c.Send(p); err != nil {
			slog.Debug("broadcast skipped connection", "connID", c.id, "identity", identity, "error", err)
		}
	}
}

// Snapshot returns every registered connection across all identities. The
// liveness monitor probes against this copy so a tick never holds the lock
// while touching the network.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Conn, 0)
	for _, set := range r.conns {
		for c := range set {
			all = append(all, c)
		}
	}
	return all
}

// Count returns the number of open connections for the identity.
func (r *Registry) Count(identity string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[identity])
}

// Identities returns the identities that currently have at least one open
// connection. Every returned identity is guaranteed a non-empty set.
func (r *Registry) Identities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for identity := range r.conns {
		ids = append(ids, identity)
	}
	return ids
}
