package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devopshub/gatehouse/pkg/contextkeys"
)

func lastLine(buf *bytes.Buffer) map[string]interface{} {
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		return nil
	}
	return entry
}

func TestLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("email", "user@example.com").Info("User logged in")

	entry := lastLine(&buf)
	require.NotNil(t, entry)
	assert.Equal(t, "User logged in", entry["msg"])
	assert.Equal(t, "user@example.com", entry["email"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("suppressed")
	assert.Zero(t, buf.Len())

	logger.Warn("emitted")
	assert.NotZero(t, buf.Len())
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(assert.AnError).Error("Operation failed")

	entry := lastLine(&buf)
	require.NotNil(t, entry)
	assert.Equal(t, assert.AnError.Error(), entry["error"])
}

func TestLoggerWithErrorNilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(nil).Info("fine")

	entry := lastLine(&buf)
	require.NotNil(t, entry)
	_, hasError := entry["error"]
	assert.False(t, hasError)
}

func TestFromContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(contextkeys.WithRequestID(context.Background(), "req-123"), logger)
	FromContext(ctx).Info("handled")

	entry := lastLine(&buf)
	require.NotNil(t, entry)
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestGetLoggerFallsBackToDefault(t *testing.T) {
	logger := GetLogger(context.Background())
	assert.NotNil(t, logger)
}
