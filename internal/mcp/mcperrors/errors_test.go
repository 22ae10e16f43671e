// file: internal/mcp/mcperrors/errors_test.go
package mcperrors

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/toolwire/internal/mcp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToErrorObject_TypedErrors_KeepCodeAndContext(t *testing.T) {
	wrapped := errors.Wrap(NewToolNotFound("missing"), "dispatch failed")

	obj := ToErrorObject(wrapped)
	require.NotNil(t, obj)
	assert.Equal(t, protocol.CodeToolNotFound, obj.Code)
	assert.Equal(t, "Tool not found: missing", obj.Message)
	assert.JSONEq(t, `{"tool":"missing"}`, string(obj.Data))
}

func TestToErrorObject_UnknownError_BecomesInternalWithoutLeakingCause(t *testing.T) {
	obj := ToErrorObject(errors.New("database password is hunter2"))
	assert.Equal(t, protocol.CodeInternalError, obj.Code)
	assert.NotContains(t, obj.Message, "hunter2")
}

func TestToErrorObject_DecodeError_KeepsObject(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"broken`))
	require.Error(t, err)
	assert.Equal(t, protocol.CodeParseError, ToErrorObject(err).Code)
}

func TestRemoteError_Predicates(t *testing.T) {
	remote := FromErrorObject(protocol.MethodToolsCall, &protocol.ErrorObject{
		Code:    protocol.CodeToolNotFound,
		Message: "Tool not found: missing",
		Data:    json.RawMessage(`{"tool":"missing"}`),
	})
	err := errors.Wrap(remote, "call_tool")

	assert.True(t, IsToolNotFound(err))
	assert.False(t, IsResourceNotFound(err))
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeToolNotFound, code)
	assert.Contains(t, err.Error(), "tool_not_found")

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}
