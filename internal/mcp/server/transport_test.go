// file: internal/mcp/server/transport_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeStdio_AnswersEachRequestInOrder(t *testing.T) {
	s, _, _ := newTestServer(t)
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"t","version":"0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`not json`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`,
	}, "\n") + "\n"
	var out bytes.Buffer

	require.NoError(t, s.ServeStdio(context.Background(), strings.NewReader(in), &out), "EOF is a clean shutdown.")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4, "One reply per request plus one for the unparsable line.")

	var ids []string
	for _, line := range lines {
		env, err := protocol.Decode([]byte(line))
		require.NoError(t, err)
		require.Equal(t, protocol.KindResponse, env.Kind)
		ids = append(ids, env.Response.ID.String())
	}
	assert.Equal(t, []string{"1", "2", "null", "3"}, ids)
	assert.Contains(t, lines[3], "hi")
}

func TestServeStdio_StopsOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeStdio(ctx, r, io.Discard) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ServeStdio did not stop after cancellation.")
	}
}

// closeRecorder is a pipe reader that reports when it is closed.
type closeRecorder struct {
	*io.PipeReader
	once   sync.Once
	closed chan struct{}
}

func (c *closeRecorder) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.PipeReader.Close()
}

func TestServeStdio_CancelClosesInput(t *testing.T) {
	s, _, _ := newTestServer(t)
	r, w := io.Pipe()
	defer w.Close()
	in := &closeRecorder{PipeReader: r, closed: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeStdio(ctx, in, io.Discard) }()
	cancel()

	select {
	case <-in.closed:
	case <-time.After(time.Second):
		t.Fatal("Input was not closed after cancellation.")
	}
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ServeStdio did not stop after cancellation.")
	}
}

func TestHandler_RPCAndAuxiliaryRoutes(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	post := func(path, body string) *http.Response {
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := post("/mcp", `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"echo"`)

	resp = post("/", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = post("/", strings.Repeat("x", transport.MaxMessageSize+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	health, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	var snapshot map[string]any
	require.NoError(t, json.NewDecoder(health.Body).Decode(&snapshot))
	assert.Equal(t, "ok", snapshot["status"])

	m, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	text, err := io.ReadAll(m.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "toolwire_requests_total")
}

func TestServe_ClientTransportRoundTrip(t *testing.T) {
	s, _, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()

	tr, err := transport.NewHTTPTransport(config.RemoteServer{Name: "self", URL: "http://" + ln.Addr().String() + "/mcp"}, transport.Options{})
	require.NoError(t, err)
	require.NoError(t, tr.Start(ctx))
	defer tr.Close()

	req, err := protocol.NewRequest(protocol.NextID(), protocol.MethodToolsCall, protocol.CallToolParams{
		Name:      "echo",
		Arguments: json.RawMessage(`{"text":"over the wire"}`),
	})
	require.NoError(t, err)
	resp, err := tr.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, req.ID, resp.ID)
	assert.Contains(t, string(resp.Result), "over the wire")

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("Server did not shut down.")
	}
}
