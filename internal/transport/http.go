// file: internal/transport/http.go
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/logging"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HTTPTransport sends each envelope as one POST and reads the response from the body.
// It holds no connection state; "connected" only means the handshake succeeded.
type HTTPTransport struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
	logger   logging.Logger
	opts     Options

	closeOnce sync.Once
	done      chan struct{}
}

// NewHTTPTransport prepares a transport posting to cfg.URL.
func NewHTTPTransport(cfg config.RemoteServer, opts Options) (*HTTPTransport, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid url for remote %q", cfg.Name)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("remote %q: url scheme must be http or https, got %q", cfg.Name, u.Scheme)
	}
	headers, err := config.ResolveHeaders(cfg.Headers)
	if err != nil {
		return nil, err
	}
	return &HTTPTransport{
		endpoint: u.String(),
		headers:  headers,
		client:   &http.Client{},
		logger:   opts.logger("http").WithField("remote", cfg.Name),
		opts:     opts,
		done:     make(chan struct{}),
	}, nil
}

// WithHTTPClient replaces the underlying client, for tests or custom TLS setups.
func (t *HTTPTransport) WithHTTPClient(c *http.Client) *HTTPTransport {
	t.client = c
	return t
}

// Start is a no-op; every request opens its own exchange.
func (t *HTTPTransport) Start(_ context.Context) error {
	select {
	case <-t.done:
		return NewClosedError("start", nil)
	default:
		return nil
	}
}

// Send posts req and decodes exactly one Response from the body.
func (t *HTTPTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s request", req.Method)
	}
	status, payload, err := t.post(ctx, body, req.Method)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, NewStatusError(status, payload)
	}

	env, err := protocol.Decode(payload)
	if err != nil {
		return nil, NewParseError(payload, err)
	}
	if env.Kind != protocol.KindResponse {
		return nil, NewInvalidMessageError("expected a response, got a " + env.Kind.String())
	}
	if env.Response.ID != req.ID {
		t.opts.Metrics.RecordDiscardedResponse("http", "id_mismatch")
		return nil, NewInvalidMessageError("response id " + env.Response.ID.String() + " does not match request id " + req.ID.String())
	}
	return env.Response, nil
}

// Notify posts n without waiting for a meaningful answer. Non-2xx statuses are logged.
func (t *HTTPTransport) Notify(ctx context.Context, n *protocol.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s notification", n.Method)
	}
	status, payload, err := t.post(ctx, body, n.Method)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		t.logger.Warn("Notification rejected by server.", "method", n.Method, "status", status, "body", string(payload))
	}
	return nil
}

func (t *HTTPTransport) post(ctx context.Context, body []byte, method string) (int, []byte, error) {
	select {
	case <-t.done:
		return 0, nil, NewClosedError(method, nil)
	default:
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to build HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", uuid.NewString())
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, contextError(ctx, method)
		}
		return 0, nil, NewUnavailableError(t.endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, MaxMessageSize+1))
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, contextError(ctx, method)
		}
		return 0, nil, NewClosedError(method, err)
	}
	if len(payload) > MaxMessageSize {
		return 0, nil, NewMessageSizeError(len(payload), MaxMessageSize)
	}
	return resp.StatusCode, payload, nil
}

// Done is closed by Close.
func (t *HTTPTransport) Done() <-chan struct{} { return t.done }

// Err is always nil; an HTTP transport only ends when closed.
func (t *HTTPTransport) Err() error { return nil }

// Close marks the transport closed and releases idle connections.
func (t *HTTPTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.client.CloseIdleConnections()
	})
	return nil
}
