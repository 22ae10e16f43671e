// file: internal/fsm/fsm_test.go

// Tests for the looplab-backed state machine wrapper.
package fsm

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateFinished State = "finished"

	EventStart Event = "start"
	EventPause Event = "pause"
	EventStop  Event = "stop"
	EventReset Event = "reset"
)

func buildTestFSM(t *testing.T) FSM {
	t.Helper()
	m := NewFSM(StateIdle, logging.GetNoopLogger())
	m.AddTransition(Transition{From: []State{StateIdle, StatePaused}, Event: EventStart, To: StateRunning})
	m.AddTransition(Transition{From: []State{StateRunning}, Event: EventPause, To: StatePaused})
	m.AddTransition(Transition{From: []State{StateRunning, StatePaused}, Event: EventStop, To: StateFinished})
	m.AddTransition(Transition{From: []State{StateFinished}, Event: EventReset, To: StateIdle})
	require.NoError(t, m.Build(), "Failed to build test FSM.")
	return m
}

// TestFSM_Build_Idempotent tests calling Build twice.
func TestFSM_Build_Idempotent(t *testing.T) {
	m := NewFSM(StateIdle, nil)
	require.NoError(t, m.Build())
	require.NoError(t, m.Build(), "Calling Build() multiple times should not error.")
}

// TestFSM_BasicTransitions_Succeeds tests simple state transitions.
func TestFSM_BasicTransitions_Succeeds(t *testing.T) {
	m := buildTestFSM(t)
	ctx := context.Background()

	assert.Equal(t, StateIdle, m.CurrentState(), "Initial state should be Idle.")
	require.NoError(t, m.Transition(ctx, EventStart, nil))
	assert.Equal(t, StateRunning, m.CurrentState())
	require.NoError(t, m.Transition(ctx, EventPause, nil))
	assert.Equal(t, StatePaused, m.CurrentState())
	require.NoError(t, m.Transition(ctx, EventStart, nil), "Resume should share the start event.")
	assert.Equal(t, StateRunning, m.CurrentState())
	require.NoError(t, m.Transition(ctx, EventStop, nil))
	assert.Equal(t, StateFinished, m.CurrentState())
}

// TestFSM_InvalidTransition_Fails_When_EventNotAllowed tests rejected events.
func TestFSM_InvalidTransition_Fails_When_EventNotAllowed(t *testing.T) {
	m := buildTestFSM(t)

	assert.False(t, m.CanTransition(EventPause))
	err := m.Transition(context.Background(), EventPause, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pause")
	assert.Equal(t, StateIdle, m.CurrentState(), "State must not change on a rejected event.")
}

// TestFSM_Build_Fails_When_DestinationsConflict tests the one-destination-per-event rule.
func TestFSM_Build_Fails_When_DestinationsConflict(t *testing.T) {
	m := NewFSM(StateIdle, nil)
	m.AddTransition(Transition{From: []State{StateIdle}, Event: EventStart, To: StateRunning})
	m.AddTransition(Transition{From: []State{StatePaused}, Event: EventStart, To: StateFinished})
	assert.Error(t, m.Build())
}

// TestFSM_AddTransition_Fails_When_NoSource tests validation of transition definitions.
func TestFSM_AddTransition_Fails_When_NoSource(t *testing.T) {
	m := NewFSM(StateIdle, nil)
	m.AddTransition(Transition{Event: EventStart, To: StateRunning})
	assert.Error(t, m.Build())
}

// TestFSM_Guard_CancelsTransition tests guard conditions.
func TestFSM_Guard_CancelsTransition(t *testing.T) {
	m := NewFSM(StateIdle, nil)
	m.AddTransition(Transition{
		From:  []State{StateIdle},
		Event: EventStart,
		To:    StateRunning,
		Condition: func(_ context.Context, _ Event, data interface{}) bool {
			allowed, _ := data.(bool)
			return allowed
		},
	})
	require.NoError(t, m.Build())

	require.Error(t, m.Transition(context.Background(), EventStart, false))
	assert.Equal(t, StateIdle, m.CurrentState())

	require.NoError(t, m.Transition(context.Background(), EventStart, true))
	assert.Equal(t, StateRunning, m.CurrentState())
}

// TestFSM_ActionAndHook_Run tests actions and state change hooks.
func TestFSM_ActionAndHook_Run(t *testing.T) {
	var actions, hooks atomic.Int32
	var lastTo atomic.Value

	m := NewFSM(StateIdle, nil)
	m.AddTransition(Transition{
		From:  []State{StateIdle},
		Event: EventStart,
		To:    StateRunning,
		Action: func(_ context.Context, _ Event, _ interface{}) error {
			actions.Add(1)
			return nil
		},
	})
	m.OnStateChange(func(_, to State, _ Event) {
		hooks.Add(1)
		lastTo.Store(to)
	})
	require.NoError(t, m.Build())

	require.NoError(t, m.Transition(context.Background(), EventStart, nil))
	assert.EqualValues(t, 1, actions.Load())
	assert.EqualValues(t, 1, hooks.Load())
	assert.Equal(t, StateRunning, lastTo.Load())
}

// TestFSM_SetStateAndReset tests manual state control.
func TestFSM_SetStateAndReset(t *testing.T) {
	m := buildTestFSM(t)
	require.NoError(t, m.SetState(StatePaused))
	assert.Equal(t, StatePaused, m.CurrentState())
	require.NoError(t, m.Reset())
	assert.Equal(t, StateIdle, m.CurrentState())
}

// TestFSM_Transition_Fails_When_NotBuilt tests use before Build.
func TestFSM_Transition_Fails_When_NotBuilt(t *testing.T) {
	m := NewFSM(StateIdle, nil)
	assert.Error(t, m.Transition(context.Background(), EventStart, nil))
	assert.Equal(t, StateIdle, m.CurrentState())
}
