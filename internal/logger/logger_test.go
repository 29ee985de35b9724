package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitializeWithWriter(&buf, level, "json")
	t.Cleanup(func() { Initialize("info", "text") })
	return &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "warn")
	EnterMethod("svc.Do")
	Info("hidden")
	assert.Empty(t, buf.String())

	ExternalServiceResult("sendgrid", "Send", errors.New("timeout"))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sendgrid", line["service"])
	assert.Equal(t, "timeout", line["error"])
}

func TestNewContext(t *testing.T) {
	buf := capture(t, "info")

	ctx := NewContext(context.Background(), "request_id", "r-1")
	ctx = NewContext(ctx, "actor", "olive@example.com")
	FromContext(ctx).Info("handled")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "r-1", line["request_id"])
	assert.Equal(t, "olive@example.com", line["actor"])

	assert.Same(t, Get(), FromContext(context.Background()))
}
