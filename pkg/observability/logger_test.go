package observability

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)
	fn()
	return buf.String()
}

func TestLevelFiltering(t *testing.T) {
	logger := NewLoggerWithLevel("test", LogLevelWarn)

	out := captureOutput(t, func() {
		logger.Debug("debug message", nil)
		logger.Info("info message", nil)
		logger.Warn("warn message", nil)
	})

	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
}

func TestErrorAlwaysLogged(t *testing.T) {
	logger := NewLoggerWithLevel("test", LogLevelFatal)

	out := captureOutput(t, func() {
		logger.Error("something broke", nil)
	})

	assert.Contains(t, out, "something broke")
	assert.Contains(t, out, "[ERROR]")
}

func TestFieldsFormatting(t *testing.T) {
	logger := NewLoggerWithLevel("worker", LogLevelDebug)

	out := captureOutput(t, func() {
		logger.Info("document embedded", map[string]interface{}{"document_id": 42})
	})

	assert.Contains(t, out, "[worker]")
	assert.Contains(t, out, "document embedded")
	assert.Contains(t, out, "document_id=42")
}

func TestWithPrefix(t *testing.T) {
	logger := NewLoggerWithLevel("api", LogLevelInfo).WithPrefix("api.query")

	out := captureOutput(t, func() {
		logger.Info("query answered", nil)
	})

	assert.Contains(t, out, "[api.query]")
}

func TestLogLevelFromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	logger := NewLogger("test")

	out := captureOutput(t, func() {
		logger.Debug("visible at debug", nil)
	})

	assert.Contains(t, out, "visible at debug")
}
