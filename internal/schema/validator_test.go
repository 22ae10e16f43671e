// file: internal/schema/validator_test.go
package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoSchema = `{
  "type": "object",
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "repeat": {"type": "integer", "minimum": 1}
  },
  "required": ["text"],
  "additionalProperties": false
}`

func TestCompile_ValidSchema_ValidatesArguments(t *testing.T) {
	v, err := Compile("echo", json.RawMessage(echoSchema))
	require.NoError(t, err)

	testCases := []struct {
		name         string
		args         string
		wantErr      bool
		instancePath string
	}{
		{name: "valid", args: `{"text":"hi"}`},
		{name: "valid with integer", args: `{"text":"hi","repeat":2}`},
		{name: "missing required", args: `{}`, wantErr: true, instancePath: "/"},
		{name: "absent arguments", args: ``, wantErr: true, instancePath: "/"},
		{name: "wrong type", args: `{"text":5}`, wantErr: true, instancePath: "/text"},
		{name: "non integer", args: `{"text":"a","repeat":1.5}`, wantErr: true, instancePath: "/repeat"},
		{name: "extra property", args: `{"text":"a","other":1}`, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(json.RawMessage(tc.args))
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var valErr *ValidationError
			require.True(t, errors.As(err, &valErr), "Expected ValidationError, got %T.", err)
			assert.Equal(t, ErrValidationFailed, valErr.Code)
			if tc.instancePath != "" {
				assert.Equal(t, tc.instancePath, valErr.InstancePath)
			}
			assert.NotEmpty(t, valErr.Details())
		})
	}
}

func TestCompile_EmptySchema_AcceptsAnyObject(t *testing.T) {
	v, err := Compile("noargs", nil)
	require.NoError(t, err)
	assert.NoError(t, v.Validate(json.RawMessage(`{"anything":true}`)))
	assert.NoError(t, v.Validate(nil))
	assert.Error(t, v.Validate(json.RawMessage(`[1]`)))
}

func TestCompile_InvalidSchemas(t *testing.T) {
	_, err := Compile("broken", json.RawMessage(`{"type":`))
	require.Error(t, err)

	_, err = Compile("bad-type", json.RawMessage(`{"type":"not-a-type"}`))
	require.Error(t, err)
	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, ErrSchemaCompileFailed, valErr.Code)
}

func TestValidate_MalformedArguments(t *testing.T) {
	v, err := Compile("echo", json.RawMessage(echoSchema))
	require.NoError(t, err)
	err = v.Validate(json.RawMessage(`{"text":`))
	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, ErrInvalidJSONFormat, valErr.Code)
}

func TestValidateToolName(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "echo"},
		{name: "snake case", input: "memory_search"},
		{name: "dotted", input: "fs.read"},
		{name: "empty", input: "", wantErr: true},
		{name: "leading digit", input: "1tool", wantErr: true},
		{name: "space", input: "my tool", wantErr: true},
		{name: "too long", input: "a" + strings.Repeat("b", 64), wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateToolName(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
