// file: internal/transport/ndjson_test.go
package transport

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNDJSONReader_SplitsLinesAndSkipsBlanks(t *testing.T) {
	r := NewNDJSONReader(strings.NewReader("{\"a\":1}\n\n  \n{\"b\":2}\r\n{\"c\":3}"))

	var got []string
	for {
		line, err := r.ReadMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, string(line))
	}
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}, got)
}

func TestNDJSONReader_OversizedLineIsSkippedAndStreamContinues(t *testing.T) {
	huge := `{"x":"` + strings.Repeat("a", MaxMessageSize) + `"}`
	r := NewNDJSONReader(strings.NewReader(huge + "\n{\"ok\":true}\n"))

	_, err := r.ReadMessage()
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, ErrorTypeMessageSize, tErr.Type)

	line, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(line))
}

func TestNDJSONWriter_AppendsNewlineAndRejectsEmbeddedNewline(t *testing.T) {
	var buf bytes.Buffer
	w := NewNDJSONWriter(&buf)
	require.NoError(t, w.WriteMessage([]byte(`{"a":1}`)))
	assert.Equal(t, "{\"a\":1}\n", buf.String())

	assert.Error(t, w.WriteMessage([]byte("{\n}")))
}

func TestErrorClassification(t *testing.T) {
	closed := errors.Wrap(NewClosedError("read", io.EOF), "call failed")
	assert.True(t, IsClosedError(closed))
	assert.True(t, IsConnectionError(closed))
	assert.True(t, IsTransportError(closed))

	timeout := NewTimeoutError("tools/call", nil)
	assert.True(t, IsTimeoutError(timeout))
	assert.False(t, IsConnectionError(timeout))

	assert.True(t, IsConnectionError(NewUnavailableError("x", nil)))
	assert.False(t, IsTransportError(errors.New("plain")))
	assert.True(t, errors.Is(NewClosedError("a", nil), NewClosedError("b", nil)), "Errors of the same class match with errors.Is.")
}
