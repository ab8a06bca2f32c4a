package wsclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned when a send is attempted while the session
// is not open.
var ErrNotConnected = errors.New("wsclient: session not open")

// LogEntry is one line of the session log the manager keeps for the UI.
type LogEntry struct {
	Text  string
	Error bool
}

// Options configures a Manager. Dialer defaults to GorillaDialer and the
// tuning fields to the package defaults.
type Options struct {
	URL        string
	Credential string
	Dialer     Dialer
	Tuning     Tuning
	Aggregator *Aggregator
}

// Manager runs the session state machine against a real transport. It owns
// the timers and the reader goroutine; all state changes flow through the
// transition function.
type Manager struct {
	url        string
	credential string
	dialer     Dialer
	tuning     Tuning
	agg        *Aggregator

	mu             sync.Mutex
	state          State
	gen            int
	transport      Transport
	dialCancel     context.CancelFunc
	handshakeTimer *time.Timer
	retryTimer     *time.Timer
	log            []LogEntry
}

func NewManager(opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = GorillaDialer{}
	}
	if opts.Aggregator == nil {
		opts.Aggregator = NewAggregator()
	}
	return &Manager{
		url:        opts.URL,
		credential: opts.Credential,
		dialer:     opts.Dialer,
		tuning:     opts.Tuning.withDefaults(),
		agg:        opts.Aggregator,
		state:      State{Phase: PhaseIdle},
	}
}

// Enable starts the connect cycle. Calling it again restarts from attempt
// zero.
func (m *Manager) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch(EventEnable{})
}

// Disable stops reconnecting and closes any open transport.
func (m *Manager) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch(EventDisable{})
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Log returns a snapshot of the session log.
func (m *Manager) Log() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.log))
	copy(out, m.log)
	return out
}

// Aggregator exposes the conversation view fed by the reader loop.
func (m *Manager) Aggregator() *Aggregator {
	return m.agg
}

// SendMessage sends a chat message over the open session and records it,
// returning the correlation id. ErrNotConnected is returned when the
// session is not open.
func (m *Manager) SendMessage(text string) (string, error) {
	m.mu.Lock()
	transport := m.transport
	open := m.state.Phase == PhaseOpen
	m.mu.Unlock()

	if !open || transport == nil {
		return "", ErrNotConnected
	}

	id := uuid.NewString()
	payload, err := encodeUserMessage(id, text)
	if err != nil {
		return "", err
	}
	if err := transport.WriteMessage(websocket.TextMessage, payload); err != nil {
		return "", err
	}
	m.agg.AppendSent(id, text)
	return id, nil
}

// dispatch runs one event through the transition function and executes the
// resulting effects. Callers hold m.mu.
func (m *Manager) dispatch(ev Event) {
	next, effects := Transition(m.tuning, m.state, ev)
	m.state = next
	for _, eff := range effects {
		m.apply(eff)
	}
}

// dispatchIf drops events raised by a previous attempt's goroutines or
// timers.
func (m *Manager) dispatchIf(gen int, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.dispatch(ev)
}

func (m *Manager) apply(eff Effect) {
	switch eff := eff.(type) {
	case EffectDial:
		m.gen++
		m.startDial(m.gen)

	case EffectArmTimeout:
		gen := m.gen
		m.handshakeTimer = time.AfterFunc(eff.After, func() {
			m.dispatchIf(gen, EventHandshakeTimeout{})
		})

	case EffectCancelTimeout:
		if m.handshakeTimer != nil {
			m.handshakeTimer.Stop()
			m.handshakeTimer = nil
		}
		if m.retryTimer != nil {
			m.retryTimer.Stop()
			m.retryTimer = nil
		}

	case EffectCloseTransport:
		// Invalidate the attempt so the reader's close event is ignored.
		m.gen++
		if m.dialCancel != nil {
			m.dialCancel()
			m.dialCancel = nil
		}
		if m.transport != nil {
			m.transport.Close()
			m.transport = nil
		}

	case EffectScheduleRetry:
		gen := m.gen
		m.retryTimer = time.AfterFunc(eff.After, func() {
			m.dispatchIf(gen, EventRetryElapsed{})
		})

	case EffectAppendStatus:
		m.log = append(m.log, LogEntry{Text: eff.Text})

	case EffectAppendError:
		m.log = append(m.log, LogEntry{Text: eff.Text, Error: true})
	}
}

// startDial opens the transport off the lock. Callers hold m.mu.
func (m *Manager) startDial(gen int) {
	ctx, cancel := context.WithCancel(context.Background())
	m.dialCancel = cancel

	go func() {
		transport, err := m.dialer.Dial(ctx, m.url, m.credential)
		if err != nil {
			m.dispatchIf(gen, EventTransportClosed{})
			return
		}

		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			transport.Close()
			return
		}
		m.transport = transport
		m.dispatch(EventDialSucceeded{})
		m.mu.Unlock()

		m.readLoop(gen, transport)
	}()
}

// readLoop routes incoming pushes until the transport fails, then raises
// the close event for this attempt.
func (m *Manager) readLoop(gen int, transport Transport) {
	for {
		_, data, err := transport.ReadMessage()
		if err != nil {
			code := 0
			if closeErr, ok := err.(*websocket.CloseError); ok {
				code = closeErr.Code
			}
			m.dispatchIf(gen, EventTransportClosed{Code: code})
			return
		}

		push, err := decodePush(data)
		if err != nil {
			continue
		}
		switch push.Type {
		case MessageTypeStatus:
			m.mu.Lock()
			m.log = append(m.log, LogEntry{Text: push.Text})
			m.mu.Unlock()
		case MessageTypeError:
			m.agg.AppendError(push.ID, push.Msg)
		case MessageTypeAIToken:
			m.agg.AppendToken(push.ID, push.Text)
		case MessageTypeAIComplete:
			m.agg.Finalize(push.ID, push.Text)
		}
	}
}
