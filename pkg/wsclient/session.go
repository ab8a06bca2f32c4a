package wsclient

import "time"

// Phase is the session manager's connection phase. PhaseError marks a
// session that closed in a way reconnecting cannot fix.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseOpen       Phase = "open"
	PhaseClosed     Phase = "closed"
	PhaseError      Phase = "error"
)

const (
	// DefaultHandshakeTimeout bounds how long a connect attempt may sit
	// in the connecting phase.
	DefaultHandshakeTimeout = 5 * time.Second

	// DefaultBackoffStep is multiplied by the attempt count (plus one)
	// to produce the next reconnect delay.
	DefaultBackoffStep = 2 * time.Second

	// DefaultMaxBackoff caps the reconnect delay.
	DefaultMaxBackoff = 30 * time.Second
)

// Tuning holds the timing constants the transition function needs.
type Tuning struct {
	HandshakeTimeout time.Duration
	BackoffStep      time.Duration
	MaxBackoff       time.Duration
}

func (t Tuning) withDefaults() Tuning {
	if t.HandshakeTimeout <= 0 {
		t.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if t.BackoffStep <= 0 {
		t.BackoffStep = DefaultBackoffStep
	}
	if t.MaxBackoff <= 0 {
		t.MaxBackoff = DefaultMaxBackoff
	}
	return t
}

// State is everything the session manager carries between events. The
// attempt counter resets to zero only on a successful open.
type State struct {
	Phase   Phase
	Attempt int
	Enabled bool
}

// Event is one discrete occurrence driving the state machine. Exactly one
// transport attempt is in flight at a time, so events never interleave
// across attempts.
type Event interface{ isEvent() }

// EventEnable starts a fresh connect cycle from attempt zero.
type EventEnable struct{}

// EventDisable tears the session down: every armed timer is cancelled and
// any open transport closed.
type EventDisable struct{}

// EventDialSucceeded reports a completed handshake.
type EventDialSucceeded struct{}

// EventHandshakeTimeout reports that the handshake timer fired while the
// attempt was still connecting.
type EventHandshakeTimeout struct{}

// EventTransportClosed reports that the transport went away, carrying the
// close code when one was received.
type EventTransportClosed struct{ Code int }

// EventRetryElapsed reports that the reconnect backoff timer fired.
type EventRetryElapsed struct{}

func (EventEnable) isEvent()           {}
func (EventDisable) isEvent()          {}
func (EventDialSucceeded) isEvent()    {}
func (EventHandshakeTimeout) isEvent() {}
func (EventTransportClosed) isEvent()  {}
func (EventRetryElapsed) isEvent()     {}

// Effect is an instruction for the runtime: the transition function stays
// pure so the backoff and timeout logic is testable without a transport.
type Effect interface{ isEffect() }

// EffectDial opens a new transport attempt.
type EffectDial struct{}

// EffectArmTimeout arms the handshake timer.
type EffectArmTimeout struct{ After time.Duration }

// EffectCancelTimeout disarms the handshake timer if armed.
type EffectCancelTimeout struct{}

// EffectCloseTransport aborts the current attempt or open transport.
type EffectCloseTransport struct{}

// EffectScheduleRetry arms the reconnect timer. The handshake timer and
// the retry timer are never armed at the same time.
type EffectScheduleRetry struct{ After time.Duration }

// EffectAppendStatus appends a status entry to the session log.
type EffectAppendStatus struct{ Text string }

// EffectAppendError appends an error entry to the session log.
type EffectAppendError struct{ Text string }

func (EffectDial) isEffect()           {}
func (EffectArmTimeout) isEffect()     {}
func (EffectCancelTimeout) isEffect()  {}
func (EffectCloseTransport) isEffect() {}
func (EffectScheduleRetry) isEffect()  {}
func (EffectAppendStatus) isEffect()   {}
func (EffectAppendError) isEffect()    {}

// Transition computes the next state and the effects to run for one event.
func Transition(tuning Tuning, s State, ev Event) (State, []Effect) {
	tuning = tuning.withDefaults()

	switch ev := ev.(type) {
	case EventEnable:
		s.Enabled = true
		s.Attempt = 0
		s.Phase = PhaseConnecting
		// Tearing down first makes re-enable safe from any phase.
		return s, []Effect{
			EffectCancelTimeout{},
			EffectCloseTransport{},
			EffectDial{},
			EffectArmTimeout{After: tuning.HandshakeTimeout},
		}

	case EventDisable:
		s.Enabled = false
		s.Phase = PhaseIdle
		return s, []Effect{EffectCancelTimeout{}, EffectCloseTransport{}}

	case EventDialSucceeded:
		if s.Phase != PhaseConnecting {
			return s, nil
		}
		s.Phase = PhaseOpen
		s.Attempt = 0
		return s, []Effect{
			EffectCancelTimeout{},
			EffectAppendStatus{Text: "Connected to realtime updates."},
		}

	case EventHandshakeTimeout:
		if s.Phase != PhaseConnecting {
			return s, nil
		}
		// The abandoned attempt is torn down here, so the reconnect is
		// scheduled directly rather than through a close event.
		s.Phase = PhaseClosed
		effects := []Effect{
			EffectAppendError{Text: "Connection timeout"},
			EffectCloseTransport{},
		}
		if !s.Enabled {
			return s, effects
		}
		delay := tuning.BackoffStep * time.Duration(s.Attempt+1)
		if delay > tuning.MaxBackoff {
			delay = tuning.MaxBackoff
		}
		s.Attempt++
		return s, append(effects, EffectScheduleRetry{After: delay})

	case EventTransportClosed:
		s.Phase = PhaseClosed
		effects := []Effect{EffectCancelTimeout{}}

		if ev.Code == CloseUnauthorized {
			// The credential is invalid or expired; retrying is futile
			// until the user re-authenticates.
			s.Phase = PhaseError
			return s, append(effects, EffectAppendError{Text: "Unauthorized"})
		}
		if !s.Enabled {
			return s, effects
		}

		delay := tuning.BackoffStep * time.Duration(s.Attempt+1)
		if delay > tuning.MaxBackoff {
			delay = tuning.MaxBackoff
		}
		s.Attempt++
		return s, append(effects, EffectScheduleRetry{After: delay})

	case EventRetryElapsed:
		if !s.Enabled || s.Phase != PhaseClosed {
			return s, nil
		}
		s.Phase = PhaseConnecting
		return s, []Effect{EffectDial{}, EffectArmTimeout{After: tuning.HandshakeTimeout}}
	}

	return s, nil
}
