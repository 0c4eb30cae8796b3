package engine

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/synthsel/ss-sync/internal/pkg/metrics"
)

// State is the lifecycle state of the engine connection.
type State string

const (
	StateDisconnected   State = "Disconnected"
	StateConnecting     State = "Connecting"
	StateAuthenticating State = "Authenticating"
	StateReady          State = "Ready"
	// StateClosedTerminal is entered when the engine rejects the token.
	// Automatic reconnection stays off until the next explicit Connect.
	StateClosedTerminal State = "ClosedTerminal"
)

var allStates = []string{
	string(StateDisconnected),
	string(StateConnecting),
	string(StateAuthenticating),
	string(StateReady),
	string(StateClosedTerminal),
}

const (
	eventConnect       = "connect"
	eventOpen          = "open"
	eventAuthenticated = "authenticated"
	eventDrop          = "drop"
	eventReject        = "reject"
)

func newStateMachine(onEnter func(from, to State)) *fsm.FSM {
	return fsm.NewFSM(
		string(StateDisconnected),
		fsm.Events{
			{Name: eventConnect, Src: allStates, Dst: string(StateConnecting)},
			{Name: eventOpen, Src: []string{string(StateConnecting)}, Dst: string(StateAuthenticating)},
			{Name: eventAuthenticated, Src: []string{string(StateAuthenticating)}, Dst: string(StateReady)},
			{
				Name: eventDrop,
				Src:  []string{string(StateConnecting), string(StateAuthenticating), string(StateReady)},
				Dst:  string(StateDisconnected),
			},
			{
				Name: eventReject,
				Src:  []string{string(StateDisconnected), string(StateConnecting), string(StateAuthenticating), string(StateReady)},
				Dst:  string(StateClosedTerminal),
			},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				metrics.SetConnectionState(e.Dst, allStates)
				onEnter(State(e.Src), State(e.Dst))
			},
		},
	)
}

// fire triggers event on the state machine. It reports whether the state
// machine is now in the event's destination, treating a self-transition as success.
func (m *Manager) fire(event string) bool {
	err := m.fsm.Event(context.Background(), event)
	if err == nil {
		return true
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) && noTransition.Err == nil {
		return true
	}

	m.log.Debug("Ignoring event", "event", event, "state", m.fsm.Current(), "reason", err.Error())
	return false
}
