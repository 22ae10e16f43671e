// file: internal/middleware/chain_test.go
package middleware

import (
	"context"
	"strings"
	"testing"

	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/dkoosis/toolwire/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagging(tag string, trail *[]string) MiddlewareFunc {
	return func(next transport.MessageHandler) transport.MessageHandler {
		return func(ctx context.Context, msg []byte) ([]byte, error) {
			*trail = append(*trail, tag)
			return next(ctx, msg)
		}
	}
}

func TestChain_AppliesMiddlewareInOrder(t *testing.T) {
	var trail []string
	final := func(_ context.Context, msg []byte) ([]byte, error) {
		trail = append(trail, "final")
		return msg, nil
	}
	h := NewChain(final).Use(tagging("first", &trail)).Use(tagging("second", &trail)).Handler()

	out, err := h(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(out))
	assert.Equal(t, []string{"first", "second", "final"}, trail)
}

func TestRecover_PanicBecomesInternalError(t *testing.T) {
	h := NewChain(func(context.Context, []byte) ([]byte, error) {
		panic("boom")
	}).Use(Recover(nil)).Handler()

	out, err := h(context.Background(), []byte(`{"jsonrpc":"2.0","id":4,"method":"tools/call"}`))
	require.NoError(t, err)
	env, err := protocol.Decode(out)
	require.NoError(t, err)
	require.Equal(t, protocol.KindResponse, env.Kind)
	assert.Equal(t, protocol.NewNumberID(4), env.Response.ID)
	assert.Equal(t, protocol.CodeInternalError, env.Response.Error.Code)

	out, err = h(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.NoError(t, err)
	assert.Nil(t, out, "Notifications never get a response, even on panic.")
}

func TestSizeLimit_RejectsOversizedMessages(t *testing.T) {
	called := false
	h := NewChain(func(context.Context, []byte) ([]byte, error) {
		called = true
		return nil, nil
	}).Use(SizeLimit(16)).Handler()

	out, err := h(context.Background(), []byte(strings.Repeat("a", 17)))
	require.NoError(t, err)
	assert.False(t, called)
	assert.Contains(t, string(out), `"id":null`)
	assert.Contains(t, string(out), "-32600")
}
