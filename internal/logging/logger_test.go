// file: internal/logging/logger_test.go

// internal/logging/logger_test.go
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger(t *testing.T) {
	logger := GetLogger("test")
	require.NotNil(t, logger)
}

func TestLogOutput(t *testing.T) {
	var buf bytes.Buffer
	InitLogging(LevelDebug, &buf)
	t.Cleanup(func() { SetDefaultLogger(GetNoopLogger()) })

	logger := GetLogger("test_component")
	logger.Info("Test message.", "key1", "value1", "key2", 123)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry), "Log output should be one JSON object.")

	assert.Equal(t, "Test message.", logEntry["msg"])
	assert.Equal(t, "test_component", logEntry["component"])
	assert.Equal(t, "value1", logEntry["key1"])
	assert.EqualValues(t, 123, logEntry["key2"])
}

func TestIsDebugEnabled(t *testing.T) {
	SetLevel(LevelInfo)
	assert.False(t, IsDebugEnabled(), "IsDebugEnabled should return false when level is INFO.")

	SetLevel(LevelDebug)
	assert.True(t, IsDebugEnabled(), "IsDebugEnabled should return true when level is DEBUG.")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestOrNoop_NilLogger(t *testing.T) {
	assert.Equal(t, GetNoopLogger(), OrNoop(nil))
}
