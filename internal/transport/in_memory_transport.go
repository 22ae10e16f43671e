// file: internal/transport/in_memory_transport.go
package transport

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
)

// InMemoryTransport hands serialized envelopes straight to a MessageHandler in the same
// process, typically a server's HandleMessage. It exercises the full encode and decode
// path without any I/O, which makes it the transport of choice for driving the local
// registry through a client and for tests.
type InMemoryTransport struct {
	handler MessageHandler

	sent atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewInMemoryTransport binds a transport to handler.
func NewInMemoryTransport(handler MessageHandler) *InMemoryTransport {
	return &InMemoryTransport{handler: handler, done: make(chan struct{})}
}

// Start fails only when the transport was already closed.
func (t *InMemoryTransport) Start(_ context.Context) error {
	if t.isClosed() {
		return NewClosedError("start", nil)
	}
	return nil
}

// Send delivers req to the handler and decodes its reply.
func (t *InMemoryTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	out, err := t.deliver(ctx, req, req.Method)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, NewInvalidMessageError("handler produced no response for " + req.Method)
	}
	env, err := protocol.Decode(out)
	if err != nil {
		return nil, NewParseError(out, err)
	}
	if env.Kind != protocol.KindResponse || env.Response.ID != req.ID {
		return nil, NewInvalidMessageError("handler reply does not answer request " + req.ID.String())
	}
	return env.Response, nil
}

// Notify delivers n to the handler and ignores any output.
func (t *InMemoryTransport) Notify(ctx context.Context, n *protocol.Notification) error {
	_, err := t.deliver(ctx, n, n.Method)
	return err
}

func (t *InMemoryTransport) deliver(ctx context.Context, msg any, method string) ([]byte, error) {
	if t.isClosed() {
		return nil, NewClosedError(method, nil)
	}
	if ctx.Err() != nil {
		return nil, contextError(ctx, method)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s", method)
	}
	t.sent.Add(1)
	out, err := t.handler(ctx, data)
	if t.isClosed() {
		// Closed while the handler ran; the reply has nowhere to go.
		return nil, NewClosedError(method, err)
	}
	if ctx.Err() != nil {
		return nil, contextError(ctx, method)
	}
	if err != nil {
		return nil, NewError(ErrGeneric, "in-memory handler failed", err)
	}
	return out, nil
}

// MessagesSent returns how many envelopes have been delivered to the handler.
func (t *InMemoryTransport) MessagesSent() int64 {
	return t.sent.Load()
}

// Done is closed by Close.
func (t *InMemoryTransport) Done() <-chan struct{} { return t.done }

// Err reports the closed state.
func (t *InMemoryTransport) Err() error {
	if t.isClosed() {
		return NewClosedError("close", nil)
	}
	return nil
}

// Close marks the transport closed.
func (t *InMemoryTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

func (t *InMemoryTransport) isClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
