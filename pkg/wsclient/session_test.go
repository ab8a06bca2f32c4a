package wsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryDelay(t *testing.T, effects []Effect) (time.Duration, bool) {
	t.Helper()
	for _, eff := range effects {
		if retry, ok := eff.(EffectScheduleRetry); ok {
			return retry.After, true
		}
	}
	return 0, false
}

func errorTexts(effects []Effect) []string {
	var out []string
	for _, eff := range effects {
		if e, ok := eff.(EffectAppendError); ok {
			out = append(out, e.Text)
		}
	}
	return out
}

func TestTransitionEnableDials(t *testing.T) {
	state, effects := Transition(Tuning{}, State{Phase: PhaseIdle}, EventEnable{})

	assert.Equal(t, PhaseConnecting, state.Phase)
	assert.True(t, state.Enabled)
	assert.Zero(t, state.Attempt)
	require.Len(t, effects, 4)
	assert.Equal(t, EffectDial{}, effects[2])
	assert.Equal(t, EffectArmTimeout{After: DefaultHandshakeTimeout}, effects[3])
}

func TestTransitionOpenResetsAttempt(t *testing.T) {
	state := State{Phase: PhaseConnecting, Attempt: 3, Enabled: true}

	state, effects := Transition(Tuning{}, state, EventDialSucceeded{})

	assert.Equal(t, PhaseOpen, state.Phase)
	assert.Zero(t, state.Attempt)
	assert.Contains(t, effects, EffectAppendStatus{Text: "Connected to realtime updates."})
	assert.Contains(t, effects, EffectCancelTimeout{})
}

func TestTransitionBackoffSequence(t *testing.T) {
	state := State{Phase: PhaseOpen, Enabled: true}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}
	for i, expected := range want {
		var effects []Effect
		state, effects = Transition(Tuning{}, state, EventTransportClosed{})
		assert.Equal(t, PhaseClosed, state.Phase)
		assert.Equal(t, i+1, state.Attempt)

		delay, ok := retryDelay(t, effects)
		require.True(t, ok, "drop %d should schedule a retry", i)
		assert.Equal(t, expected, delay)

		state, effects = Transition(Tuning{}, state, EventRetryElapsed{})
		assert.Equal(t, PhaseConnecting, state.Phase)
		assert.Contains(t, effects, EffectDial{})
	}
}

func TestTransitionBackoffCapped(t *testing.T) {
	state := State{Phase: PhaseOpen, Attempt: 100, Enabled: true}

	_, effects := Transition(Tuning{}, state, EventTransportClosed{})

	delay, ok := retryDelay(t, effects)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxBackoff, delay)
}

func TestTransitionUnauthorizedCloseStopsRetrying(t *testing.T) {
	state := State{Phase: PhaseOpen, Enabled: true}

	state, effects := Transition(Tuning{}, state, EventTransportClosed{Code: CloseUnauthorized})

	assert.Equal(t, PhaseError, state.Phase)
	assert.Equal(t, []string{"Unauthorized"}, errorTexts(effects))
	_, ok := retryDelay(t, effects)
	assert.False(t, ok, "unauthorized close must not schedule a retry")
}

func TestTransitionHandshakeTimeout(t *testing.T) {
	state := State{Phase: PhaseConnecting, Enabled: true}

	state, effects := Transition(Tuning{}, state, EventHandshakeTimeout{})

	assert.Equal(t, PhaseClosed, state.Phase)
	assert.Equal(t, 1, state.Attempt)
	assert.Equal(t, []string{"Connection timeout"}, errorTexts(effects))
	assert.Contains(t, effects, EffectCloseTransport{})
	delay, ok := retryDelay(t, effects)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, delay)
}

func TestTransitionTimeoutIgnoredWhenOpen(t *testing.T) {
	state := State{Phase: PhaseOpen, Enabled: true}

	next, effects := Transition(Tuning{}, state, EventHandshakeTimeout{})

	assert.Equal(t, state, next)
	assert.Empty(t, effects)
}

func TestTransitionDisableTearsDown(t *testing.T) {
	state := State{Phase: PhaseOpen, Attempt: 2, Enabled: true}

	state, effects := Transition(Tuning{}, state, EventDisable{})

	assert.Equal(t, PhaseIdle, state.Phase)
	assert.False(t, state.Enabled)
	assert.Contains(t, effects, EffectCancelTimeout{})
	assert.Contains(t, effects, EffectCloseTransport{})

	// A close arriving after disable must not reconnect.
	state, effects = Transition(Tuning{}, state, EventTransportClosed{})
	_, ok := retryDelay(t, effects)
	assert.False(t, ok)

	// Nor may a stale retry timer revive the session.
	next, effects := Transition(Tuning{}, state, EventRetryElapsed{})
	assert.Equal(t, state, next)
	assert.Empty(t, effects)
}

func TestTransitionCustomTuning(t *testing.T) {
	tuning := Tuning{BackoffStep: 100 * time.Millisecond, MaxBackoff: 250 * time.Millisecond}
	state := State{Phase: PhaseOpen, Enabled: true}

	state, effects := Transition(tuning, state, EventTransportClosed{})
	delay, _ := retryDelay(t, effects)
	assert.Equal(t, 100*time.Millisecond, delay)

	state.Phase = PhaseOpen
	state.Attempt = 5
	_, effects = Transition(tuning, state, EventTransportClosed{})
	delay, _ = retryDelay(t, effects)
	assert.Equal(t, 250*time.Millisecond, delay)
}
