// file: internal/mcp/state/machine.go
package state

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/fsm"
	"github.com/dkoosis/toolwire/internal/logging"
)

// ConnectionMachine tracks the connection state of one client.
type ConnectionMachine struct {
	fsm.FSM
	logger logging.Logger
}

// NewConnectionMachine builds the client connection machine. onChange, when non-nil,
// observes every transition.
func NewConnectionMachine(logger logging.Logger, onChange fsm.StateChangeHook) (*ConnectionMachine, error) {
	log := logging.OrNoop(logger).WithField("subsystem", "connection_state")
	b := fsm.NewFSM(Disconnected, log)

	b.AddTransition(fsm.Transition{
		From:  []fsm.State{Disconnected, Reconnecting},
		Event: EventConnect,
		To:    Connecting,
	})
	b.AddTransition(fsm.Transition{
		From:  []fsm.State{Connecting},
		Event: EventHandshakeSucceeded,
		To:    Connected,
	})
	b.AddTransition(fsm.Transition{
		From:  []fsm.State{Connecting},
		Event: EventHandshakeFailed,
		To:    Disconnected,
	})
	b.AddTransition(fsm.Transition{
		From:  []fsm.State{Connecting, Connected},
		Event: EventTransportLost,
		To:    Disconnected,
	})
	b.AddTransition(fsm.Transition{
		From:  []fsm.State{Connecting, Connected, Reconnecting},
		Event: EventDisconnect,
		To:    Disconnected,
	})
	b.AddTransition(fsm.Transition{
		From:  []fsm.State{Disconnected},
		Event: EventReconnect,
		To:    Reconnecting,
	})
	b.OnStateChange(func(from, to fsm.State, event fsm.Event) {
		log.Debug("Connection state changed.", "from", from, "to", to, "event", event)
	})
	if onChange != nil {
		b.OnStateChange(onChange)
	}

	if err := b.Build(); err != nil {
		return nil, errors.Wrap(err, "failed to build connection state machine")
	}
	return &ConnectionMachine{FSM: b, logger: log}, nil
}

// Is reports whether the machine is currently in s.
func (m *ConnectionMachine) Is(s fsm.State) bool {
	return m.CurrentState() == s
}

// Fire transitions on event when it is valid from the current state and reports whether
// a transition happened. It is used for events that may legitimately race with another
// transition, such as a transport loss observed after a disconnect.
func (m *ConnectionMachine) Fire(ctx context.Context, event fsm.Event) bool {
	if !m.CanTransition(event) {
		m.logger.Debug("Ignoring event not valid in current state.", "event", event, "state", m.CurrentState())
		return false
	}
	if err := m.Transition(ctx, event, nil); err != nil {
		m.logger.Warn("Connection state transition failed.", "event", event, "error", err)
		return false
	}
	return true
}
