package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "production", "info")

	ctx := WithProfileID(WithRequestID(context.Background(), "req-1"), "prof-1")
	logger.InfoContext(ctx, "hello", slog.String("k", "v"))

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"profile_id":"prof-1"`)
	assert.Contains(t, out, `"msg":"hello"`)
}

func TestLoggerWithAttrsKeepsContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "production", "info").With(slog.String("component", "test"))

	logger.InfoContext(WithRequestID(context.Background(), "req-2"), "hi")
	assert.Contains(t, buf.String(), `"request_id":"req-2"`)
	assert.Contains(t, buf.String(), `"component":"test"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "kindred-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := StartSpan(context.Background(), "op")
	EndSpan(span, errors.New("boom"))
}
