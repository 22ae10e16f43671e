// file: internal/mcp/state/machine_test.go
package state

import (
	"context"
	"testing"

	"github.com/dkoosis/toolwire/internal/fsm"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T) *ConnectionMachine {
	t.Helper()
	m, err := NewConnectionMachine(logging.GetNoopLogger(), nil)
	require.NoError(t, err)
	return m
}

func TestConnectionMachine_HandshakeLifecycle(t *testing.T) {
	m := newMachine(t)
	ctx := context.Background()

	assert.True(t, m.Is(Disconnected), "A new machine starts disconnected.")
	require.NoError(t, m.Transition(ctx, EventConnect, nil))
	assert.True(t, m.Is(Connecting))
	require.NoError(t, m.Transition(ctx, EventHandshakeSucceeded, nil))
	assert.True(t, m.Is(Connected))
	require.NoError(t, m.Transition(ctx, EventTransportLost, nil))
	assert.True(t, m.Is(Disconnected))
}

func TestConnectionMachine_ReconnectCycle(t *testing.T) {
	m := newMachine(t)
	ctx := context.Background()

	require.NoError(t, m.Transition(ctx, EventReconnect, nil))
	assert.True(t, m.Is(Reconnecting))
	require.NoError(t, m.Transition(ctx, EventConnect, nil))
	require.NoError(t, m.Transition(ctx, EventHandshakeFailed, nil))
	assert.True(t, m.Is(Disconnected), "A failed attempt returns to disconnected.")
	require.NoError(t, m.Transition(ctx, EventReconnect, nil), "Another attempt may start.")
}

func TestConnectionMachine_RejectsOperationsOutOfOrder(t *testing.T) {
	m := newMachine(t)
	ctx := context.Background()

	assert.Error(t, m.Transition(ctx, EventHandshakeSucceeded, nil), "Cannot complete a handshake that never started.")
	assert.False(t, m.CanTransition(EventTransportLost))

	require.NoError(t, m.Transition(ctx, EventConnect, nil))
	require.NoError(t, m.Transition(ctx, EventHandshakeSucceeded, nil))
	assert.False(t, m.CanTransition(EventReconnect), "A connected client does not start a reconnect sequence.")
	assert.True(t, m.Is(Connected))
}

func TestConnectionMachine_Fire_IgnoresInvalidEvent(t *testing.T) {
	m := newMachine(t)
	assert.False(t, m.Fire(context.Background(), EventTransportLost))
	assert.True(t, m.Is(Disconnected))
	assert.True(t, m.Fire(context.Background(), EventConnect))
	assert.True(t, m.Is(Connecting))
}

func TestConnectionMachine_OnChangeHookObservesTransitions(t *testing.T) {
	var seen []fsm.State
	m, err := NewConnectionMachine(nil, func(_, to fsm.State, _ fsm.Event) {
		seen = append(seen, to)
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Transition(ctx, EventConnect, nil))
	require.NoError(t, m.Transition(ctx, EventDisconnect, nil))
	assert.Equal(t, []fsm.State{Connecting, Disconnected}, seen)
	assert.Equal(t, float64(0), Ordinal(Disconnected))
	assert.Equal(t, float64(2), Ordinal(Connected))
}
