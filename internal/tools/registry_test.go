// file: internal/tools/registry_test.go
package tools

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name   string
	schema json.RawMessage
}

func (s stubTool) Name() string                      { return s.name }
func (s stubTool) Description() string               { return "stub " + s.name }
func (s stubTool) ParametersSchema() json.RawMessage { return s.schema }
func (s stubTool) Execute(context.Context, json.RawMessage) (*Result, error) {
	return OK(s.name), nil
}

func TestRegistry_PreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	for _, n := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(stubTool{name: n}))
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Names())

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "zeta", defs[0].Name)
	assert.Equal(t, "stub zeta", defs[0].Description)
	assert.JSONEq(t, `{"type":"object"}`, string(defs[0].InputSchema), "Tools without a schema advertise an empty object schema.")
}

func TestRegistry_RejectsInvalidRegistrations(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewEcho()))

	err := r.Register(NewEcho())
	assert.True(t, errors.Is(err, ErrDuplicateTool), "Expected duplicate error, got %v.", err)
	assert.Error(t, r.Register(stubTool{name: "has space"}))
	assert.Error(t, r.Register(stubTool{name: "bad", schema: json.RawMessage(`{"type":7}`)}))
	assert.Error(t, r.Register(nil))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_GetIsExact(t *testing.T) {
	r := NewRegistry(nil).MustRegister(NewEcho())
	tool, ok := r.Get("echo")
	require.True(t, ok)
	assert.Equal(t, EchoToolName, tool.Name())

	_, ok = r.Get("Echo")
	assert.False(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_ValidateArguments(t *testing.T) {
	r := NewRegistry(nil).MustRegister(NewEcho())

	assert.NoError(t, r.ValidateArguments("echo", json.RawMessage(`{"text":"hi"}`)))

	err := r.ValidateArguments("echo", json.RawMessage(`{"text":1}`))
	var valErr *schema.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "/text", valErr.InstancePath)

	assert.Error(t, r.ValidateArguments("echo", nil), "text is required.")
	assert.Error(t, r.ValidateArguments("missing", json.RawMessage(`{}`)))
}

func TestRegistry_ConcurrentReadsDuringRegistration(t *testing.T) {
	r := NewRegistry(nil).MustRegister(NewEcho())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(stubTool{name: "t" + string(rune('a'+i))})
		}(i)
		go func() {
			defer wg.Done()
			_, ok := r.Get("echo")
			assert.True(t, ok)
			_ = r.Definitions()
		}()
	}
	wg.Wait()
	assert.Equal(t, 21, r.Len())
}

func TestEcho_Execute(t *testing.T) {
	e := NewEcho()

	res, err := e.Execute(context.Background(), json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hi", res.Text())

	res, err = e.Execute(context.Background(), json.RawMessage(`{"text":"ho","repeat":3}`))
	require.NoError(t, err)
	assert.Equal(t, "ho ho ho", res.Output)

	res, err = e.Execute(context.Background(), json.RawMessage(`not json`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Text(), "invalid arguments")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, json.RawMessage(`{"text":"hi"}`))
	assert.Error(t, err)
}

func TestResult_Text(t *testing.T) {
	assert.Equal(t, "out", OK("out").Text())
	assert.Equal(t, "boom", Failed("boom").Text())
	assert.Equal(t, "partial", (&Result{Success: false, Output: "partial"}).Text())
}
