// file: internal/mcp/client/client.go

// Package client connects to one remote MCP server and exposes its tools and resources.
//
// A Client owns at most one transport at a time. Connection state is tracked by a
// state.ConnectionMachine. An operation issued while disconnected runs one reconnect
// sequence before sending; a request lost in flight fails and is never resent.
package client

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/fsm"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/mcperrors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/mcp/state"
	"github.com/dkoosis/toolwire/internal/metrics"
	"github.com/dkoosis/toolwire/internal/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "toolwire/client"

// ErrReconnectExhausted marks the error returned after every reconnect attempt failed.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// Client is a connection to one remote MCP server. It is safe for concurrent use.
type Client struct {
	cfg            config.RemoteServer
	logger         logging.Logger
	metrics        *metrics.Collector
	factory        TransportFactory
	sleep          SleepFunc
	onNotification transport.NotificationHandler
	clientInfo     protocol.Implementation
	tracer         trace.Tracer

	machine *state.ConnectionMachine

	// lifecycle serializes Connect, Reconnect and Disconnect.
	lifecycle sync.Mutex

	mu         sync.RWMutex
	tr         transport.Transport
	serverInfo protocol.Implementation
	caps       *protocol.ServerCapabilities
	version    string
}

// New creates a disconnected client for cfg. Defaults are applied to cfg.
func New(cfg config.RemoteServer, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:        cfg,
		logger:     logging.GetNoopLogger(),
		factory:    transport.New,
		sleep:      sleepContext,
		clientInfo: protocol.Implementation{Name: "toolwire", Version: "dev"},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "mcp_client").WithField("remote", cfg.Name)

	m, err := state.NewConnectionMachine(c.logger, func(_, to fsm.State, _ fsm.Event) {
		c.metrics.SetClientState(cfg.Name, state.Ordinal(to))
	})
	if err != nil {
		return nil, err
	}
	c.machine = m
	c.metrics.SetClientState(cfg.Name, state.Ordinal(state.Disconnected))
	return c, nil
}

// Name returns the configured remote name.
func (c *Client) Name() string { return c.cfg.Name }

// State returns the current connection state.
func (c *Client) State() fsm.State { return c.machine.CurrentState() }

// IsConnected reports whether the handshake has completed on a live transport.
func (c *Client) IsConnected() bool { return c.machine.Is(state.Connected) }

// ServerInfo returns what the server reported during the last handshake.
func (c *Client) ServerInfo() protocol.Implementation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// Capabilities returns the server capabilities, or nil when disconnected.
func (c *Client) Capabilities() *protocol.ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

// ProtocolVersion returns the version the server answered with.
func (c *Client) ProtocolVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Connect starts a transport and performs the initialize handshake. It does nothing when
// the client is already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.machine.Is(state.Connected) {
		return nil
	}
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if !c.machine.Fire(ctx, state.EventConnect) {
		return errors.Newf("cannot connect to %q from state %s", c.cfg.Name, c.machine.CurrentState())
	}

	tr, err := c.factory(c.cfg, transport.Options{
		Logger:         c.logger,
		Metrics:        c.metrics,
		OnNotification: c.handleNotification,
	})
	if err != nil {
		c.machine.Fire(ctx, state.EventHandshakeFailed)
		return errors.Wrapf(err, "failed to create transport for %q", c.cfg.Name)
	}
	if err := tr.Start(ctx); err != nil {
		_ = tr.Close()
		c.machine.Fire(ctx, state.EventHandshakeFailed)
		return errors.Wrapf(err, "failed to start transport for %q", c.cfg.Name)
	}

	result, err := c.handshake(ctx, tr)
	if err != nil {
		_ = tr.Close()
		c.machine.Fire(ctx, state.EventHandshakeFailed)
		return err
	}

	c.mu.Lock()
	c.tr = tr
	c.serverInfo = result.ServerInfo
	caps := result.Capabilities
	c.caps = &caps
	c.version = result.ProtocolVersion
	ok := c.machine.Fire(ctx, state.EventHandshakeSucceeded)
	c.mu.Unlock()
	if !ok {
		_ = tr.Close()
		return transport.NewClosedError("connect", errors.New("transport lost during handshake"))
	}

	c.logger.Info("Connected to MCP server.",
		"server", result.ServerInfo.Name, "server_version", result.ServerInfo.Version, "protocol_version", result.ProtocolVersion)

	n, err := protocol.NewNotification(protocol.NotificationInitialized, nil)
	if err == nil {
		err = tr.Notify(ctx, n)
	}
	if err != nil {
		c.logger.Warn("Failed to send initialized notification.", "error", err)
	}

	go c.watch(tr)
	return nil
}

func (c *Client) handshake(ctx context.Context, tr transport.Transport) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.LatestVersion,
		ClientInfo:      c.clientInfo,
	}
	var result protocol.InitializeResult
	if err := c.send(ctx, tr, protocol.MethodInitialize, params, &result); err != nil {
		return nil, errors.Wrapf(err, "initialize handshake with %q failed", c.cfg.Name)
	}
	if result.ProtocolVersion != protocol.LatestVersion {
		c.logger.Warn("Server answered with a different protocol version.",
			"requested", protocol.LatestVersion, "received", result.ProtocolVersion)
	}
	return &result, nil
}

// watch marks the client disconnected when tr ends on its own.
func (c *Client) watch(tr transport.Transport) {
	<-tr.Done()
	c.markLost(tr, tr.Err())
}

// markLost detaches tr if it is still the active transport.
func (c *Client) markLost(tr transport.Transport, cause error) {
	c.mu.Lock()
	if c.tr != tr {
		c.mu.Unlock()
		return
	}
	c.tr = nil
	c.caps = nil
	c.machine.Fire(context.Background(), state.EventTransportLost)
	c.mu.Unlock()

	c.logger.Warn("Lost connection to MCP server.", "error", cause)
	_ = tr.Close()
}

// Reconnect runs the backoff sequence: up to MaxAttempts connect attempts, sleeping
// between them with a delay that starts at BaseDelay and doubles up to MaxDelay. It does
// nothing when already connected.
func (c *Client) Reconnect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.reconnectLocked(ctx)
}

func (c *Client) reconnectLocked(ctx context.Context) error {
	if c.machine.Is(state.Connected) {
		return nil
	}
	policy := c.cfg.Reconnect
	delay := policy.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if !c.machine.Fire(ctx, state.EventReconnect) {
			return errors.Newf("cannot reconnect to %q from state %s", c.cfg.Name, c.machine.CurrentState())
		}
		c.logger.Info("Reconnecting to MCP server.", "attempt", attempt, "max_attempts", policy.MaxAttempts)

		lastErr = c.connectLocked(ctx)
		if lastErr == nil {
			c.metrics.RecordReconnect(c.cfg.Name, true)
			return nil
		}
		c.logger.Warn("Reconnect attempt failed.", "attempt", attempt, "error", lastErr)

		if attempt == policy.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return errors.Wrapf(err, "reconnect to %q aborted", c.cfg.Name)
		}
		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	c.metrics.RecordReconnect(c.cfg.Name, false)
	return errors.Mark(
		errors.Wrapf(lastErr, "failed to reconnect to %q after %d attempts", c.cfg.Name, policy.MaxAttempts),
		ErrReconnectExhausted)
}

// Disconnect closes the active transport and forgets the server capabilities.
func (c *Client) Disconnect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	tr := c.tr
	c.tr = nil
	c.caps = nil
	c.machine.Fire(ctx, state.EventDisconnect)
	c.mu.Unlock()

	if tr == nil {
		return nil
	}
	c.logger.Info("Disconnected from MCP server.")
	return errors.Wrap(tr.Close(), "failed to close transport")
}

// Close is Disconnect with a background context.
func (c *Client) Close() error {
	return c.Disconnect(context.Background())
}

func (c *Client) active() transport.Transport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.machine.Is(state.Connected) {
		return nil
	}
	return c.tr
}

func (c *Client) handleNotification(n *protocol.Notification) {
	switch n.Method {
	case protocol.NotificationToolsChanged, protocol.NotificationResourcesChanged:
		c.logger.Info("Server list changed.", "method", n.Method)
	default:
		c.logger.Debug("Received notification.", "method", n.Method)
	}
	if c.onNotification != nil {
		c.onNotification(n)
	}
}

// IsTransient reports whether err is a transport-level failure that may succeed if tried
// again later. Errors returned by the server are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var remote *mcperrors.RemoteError
	if errors.As(err, &remote) {
		return false
	}
	return errors.Is(err, ErrReconnectExhausted) ||
		transport.IsConnectionError(err) ||
		transport.IsTimeoutError(err)
}

func outcomeOf(err error) string {
	var remote *mcperrors.RemoteError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &remote):
		return metrics.OutcomeRemoteError
	case transport.IsTimeoutError(err), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeTransportError
	}
}
