package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// mockTransport is a fabricated transport that records the frames written
// to it. It stands in for *websocket.Conn in registry, monitor and mux
// tests.
type mockTransport struct {
	mu       sync.Mutex
	messages [][]byte
	pings    int
	closed   bool
}

func (m *mockTransport) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return websocket.ErrCloseSent
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockTransport) WriteControl(messageType int, data []byte, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return websocket.ErrCloseSent
	}
	if messageType == websocket.PingMessage {
		m.pings++
	}
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *mockTransport) Pings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

func (m *mockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockTransport) Messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([][]byte, len(m.messages))
	copy(result, m.messages)
	return result
}

// Pushes decodes every recorded frame.
func (m *mockTransport) Pushes() []Push {
	frames := m.Messages()
	pushes := make([]Push, 0, len(frames))
	for _, data := range frames {
		var p Push
		if err := json.Unmarshal(data, &p); err == nil {
			pushes = append(pushes, p)
		}
	}
	return pushes
}

// newTestConn creates a connection over a mock transport with its write
// pump running, so queued pushes land in the transport's record.
func newTestConn(identity string) (*Conn, *mockTransport) {
	ws := &mockTransport{}
	c := NewConn(identity, ws)
	go c.writePump()
	return c, ws
}

// waitTimeout bounds polling in tests that cross a pump goroutine.
const waitTimeout = 2 * time.Second

// waitFor polls until the condition holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
