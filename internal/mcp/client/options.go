// file: internal/mcp/client/options.go
package client

import (
	"context"
	"time"

	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/metrics"
	"github.com/dkoosis/toolwire/internal/transport"
)

// TransportFactory builds a fresh, unstarted transport for every connection attempt.
type TransportFactory func(cfg config.RemoteServer, opts transport.Options) (transport.Transport, error)

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNoop(l) }
}

// WithMetrics records client requests, reconnects and state on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransportFactory replaces transport.New, for in-process peers and tests.
func WithTransportFactory(f TransportFactory) Option {
	return func(c *Client) { c.factory = f }
}

// WithSleep replaces the backoff sleep.
func WithSleep(s SleepFunc) Option {
	return func(c *Client) { c.sleep = s }
}

// WithNotificationHandler receives notifications pushed by the server.
func WithNotificationHandler(h transport.NotificationHandler) Option {
	return func(c *Client) { c.onNotification = h }
}

// WithClientInfo sets the implementation info sent in initialize.
func WithClientInfo(name, version string) Option {
	return func(c *Client) { c.clientInfo = protocol.Implementation{Name: name, Version: version} }
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
