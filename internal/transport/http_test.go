// file: internal/transport/http_test.go
package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dkoosis/toolwire/internal/config"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHTTPTransport(t *testing.T, url string) *HTTPTransport {
	t.Helper()
	tr, err := NewHTTPTransport(config.RemoteServer{
		Name:    "web",
		URL:     url,
		Headers: map[string]string{"X-Api-Key": "k"},
	}.WithDefaults(), Options{})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestHTTPTransport_Send_PostsEnvelopeAndDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		body, _ := io.ReadAll(r.Body)
		env, err := protocol.Decode(body)
		require.NoError(t, err)
		resp, _ := protocol.NewResultResponse(env.Request.ID, map[string]string{"method": env.Request.Method})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	tr := newHTTPTransport(t, srv.URL)
	req, err := protocol.NewRequest(protocol.NextID(), "tools/list", nil)
	require.NoError(t, err)

	resp, err := tr.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.ID, resp.ID)
	assert.JSONEq(t, `{"method":"tools/list"}`, string(resp.Result))
}

func TestHTTPTransport_Send_RejectsMismatchedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"someone-else","result":{}}`))
	}))
	defer srv.Close()

	tr := newHTTPTransport(t, srv.URL)
	req, err := protocol.NewRequest(protocol.NextID(), "ping", nil)
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsConnectionError(err))
}

func TestHTTPTransport_Send_Non2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := newHTTPTransport(t, srv.URL)
	req, err := protocol.NewRequest(protocol.NextID(), "ping", nil)
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), req)
	require.Error(t, err)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, ErrorTypeStatus, tErr.Type)
}

func TestHTTPTransport_Send_ConnectionRefusedIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr := newHTTPTransport(t, url)
	req, err := protocol.NewRequest(protocol.NextID(), "ping", nil)
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err), "Expected a connection error, got %v.", err)
}

func TestHTTPTransport_Notify_Non2xxIsNotSurfaced(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := newHTTPTransport(t, srv.URL)
	n, err := protocol.NewNotification(protocol.NotificationInitialized, nil)
	require.NoError(t, err)
	assert.NoError(t, tr.Notify(context.Background(), n))
	assert.EqualValues(t, 1, hits.Load())
}

func TestHTTPTransport_ClosedTransportRejectsSends(t *testing.T) {
	tr := newHTTPTransport(t, "http://127.0.0.1:1")
	require.NoError(t, tr.Close())
	<-tr.Done()

	req, err := protocol.NewRequest(protocol.NextID(), "ping", nil)
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), req)
	assert.True(t, IsClosedError(err))
}

func TestNewHTTPTransport_RejectsBadScheme(t *testing.T) {
	_, err := NewHTTPTransport(config.RemoteServer{Name: "x", URL: "ftp://example.com"}, Options{})
	assert.Error(t, err)
}
