// file: internal/transport/transport.go
package transport

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/metrics"
)

// Transport carries requests and notifications from a client to one peer.
//
// Send blocks until the response with the request's id arrives, the context ends, or
// the transport closes. Implementations are safe for concurrent use.
type Transport interface {
	// Start establishes the underlying channel, for example by spawning a process.
	Start(ctx context.Context) error
	// Send writes req and returns the correlated response.
	Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
	// Notify writes a notification. No response is awaited.
	Notify(ctx context.Context, n *protocol.Notification) error
	// Done is closed once the transport can no longer carry messages.
	Done() <-chan struct{}
	// Err reports why Done was closed.
	Err() error
	// Close releases the transport. Queued writes are flushed first.
	Close() error
}

// NotificationHandler receives notifications pushed by the peer.
type NotificationHandler func(n *protocol.Notification)

// MessageHandler processes one serialized inbound message and returns the serialized
// reply, or nil when none is due.
type MessageHandler func(ctx context.Context, message []byte) ([]byte, error)

// Options are shared by all transport implementations.
type Options struct {
	Logger         logging.Logger
	Metrics        *metrics.Collector
	OnNotification NotificationHandler
}

func (o Options) logger(kind string) logging.Logger {
	return logging.OrNoop(o.Logger).WithField("transport", kind)
}

func (o Options) notify(n *protocol.Notification) {
	if o.OnNotification != nil {
		o.OnNotification(n)
	}
}

// New builds the transport selected by cfg. cfg should already have defaults applied.
func New(cfg config.RemoteServer, opts Options) (Transport, error) {
	switch cfg.Transport {
	case config.TransportStdio, "":
		return NewSubprocessTransport(cfg, opts)
	case config.TransportHTTP:
		return NewHTTPTransport(cfg, opts)
	case config.TransportInProcess:
		return nil, errors.Newf("remote %q: in-process transport must be supplied by the caller", cfg.Name)
	default:
		return nil, errors.Newf("unknown transport %q for remote %q", cfg.Transport, cfg.Name)
	}
}
