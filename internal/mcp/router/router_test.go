// file: internal/mcp/router/router_test.go
package router

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/mcp/mcperrors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockHandler = errors.New("mock handler error")

func echoHandler(method string) Handler {
	return func(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(map[string]string{"method": method, "params": string(params)})
	}
}

func TestAddRoute_Validation(t *testing.T) {
	r := NewRouter(nil)

	require.NoError(t, r.AddRoute(Route{Method: "tools/list", Handler: echoHandler("tools/list")}))
	assert.Error(t, r.AddRoute(Route{Method: "tools/list", Handler: echoHandler("x")}), "Duplicate routes are rejected.")
	assert.Error(t, r.AddRoute(Route{Method: "", Handler: echoHandler("x")}))
	assert.Error(t, r.AddRoute(Route{Method: "nohandler"}))

	require.NoError(t, r.AddRoute(Route{Method: "initialize", Handler: echoHandler("initialize")}))
	assert.Equal(t, []string{"initialize", "tools/list"}, r.GetRoutes())
}

func TestRoute_Request(t *testing.T) {
	r := NewRouter(nil)
	require.NoError(t, r.AddRoute(Route{Method: "tools/list", Handler: echoHandler("tools/list")}))
	require.NoError(t, r.AddRoute(Route{Method: "fails", Handler: func(context.Context, json.RawMessage) (json.RawMessage, error) {
		return nil, errMockHandler
	}}))

	out, err := r.Route(context.Background(), "tools/list", json.RawMessage(`{"a":1}`), false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"tools/list","params":"{\"a\":1}"}`, string(out))

	_, err = r.Route(context.Background(), "fails", nil, false)
	assert.ErrorIs(t, err, errMockHandler)
}

func TestRoute_UnknownRequest_IsMethodNotFound(t *testing.T) {
	r := NewRouter(nil)
	require.NoError(t, r.AddRoute(Route{Method: "notifications/initialized", NotificationHandler: func(context.Context, json.RawMessage) error {
		return nil
	}}))

	_, err := r.Route(context.Background(), "nope", nil, false)
	require.Error(t, err)
	assert.Equal(t, protocol.CodeMethodNotFound, mcperrors.ToErrorObject(err).Code)

	_, err = r.Route(context.Background(), "notifications/initialized", nil, false)
	assert.Equal(t, protocol.CodeMethodNotFound, mcperrors.ToErrorObject(err).Code, "A notification-only method cannot answer a request.")
}

func TestRoute_Notifications(t *testing.T) {
	var notified, requested atomic.Int32
	r := NewRouter(nil)
	require.NoError(t, r.AddRoute(Route{Method: "notifications/cancelled", NotificationHandler: func(context.Context, json.RawMessage) error {
		notified.Add(1)
		return nil
	}}))
	require.NoError(t, r.AddRoute(Route{Method: "ping", Handler: func(context.Context, json.RawMessage) (json.RawMessage, error) {
		requested.Add(1)
		return json.RawMessage(`{}`), nil
	}}))

	out, err := r.Route(context.Background(), "notifications/cancelled", nil, true)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, int32(1), notified.Load())

	out, err = r.Route(context.Background(), "ping", nil, true)
	require.NoError(t, err)
	assert.Nil(t, out, "Results of request handlers are discarded for notifications.")
	assert.Equal(t, int32(1), requested.Load())

	out, err = r.Route(context.Background(), "notifications/unknown", nil, true)
	assert.NoError(t, err, "Unknown notifications are ignored.")
	assert.Nil(t, out)
}
