// file: internal/mcp/state/states.go

// Package state defines the connection lifecycle of an MCP client.
package state

import "github.com/dkoosis/toolwire/internal/fsm"

// Connection states.
const (
	// Disconnected means no transport is attached and no capabilities are known.
	Disconnected fsm.State = "disconnected"
	// Connecting means a transport is starting and the initialize handshake is in flight.
	Connecting fsm.State = "connecting"
	// Connected means the handshake succeeded; operations may be sent.
	Connected fsm.State = "connected"
	// Reconnecting means a backoff retry sequence is running.
	Reconnecting fsm.State = "reconnecting"
)

// Events driving the connection machine.
const (
	EventConnect            fsm.Event = "connect"
	EventHandshakeSucceeded fsm.Event = "handshake_succeeded"
	EventHandshakeFailed    fsm.Event = "handshake_failed"
	EventTransportLost      fsm.Event = "transport_lost"
	EventDisconnect         fsm.Event = "disconnect"
	EventReconnect          fsm.Event = "reconnect"
)

// Ordinal returns a stable number for a state, used by the state gauge.
func Ordinal(s fsm.State) float64 {
	switch s {
	case Disconnected:
		return 0
	case Connecting:
		return 1
	case Connected:
		return 2
	case Reconnecting:
		return 3
	default:
		return -1
	}
}
