package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "development")
	require.Error(t, err)

	l, err := New("debug", "production")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestLoggerCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	ctx := WithRequestID(context.Background(), "req-123")
	NewLogger(ctx).LogError("ingest.store", errors.New("bucket gone"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "ingest.store", fields["operation"])
	assert.Equal(t, "bucket gone", fields["error"])
}

func TestLoggerWithoutRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	NewLogger(context.Background()).LogInfof("relay", "fetched %d bytes", 42)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fetched 42 bytes", entries[0].Message)
	assert.Equal(t, "unknown", entries[0].ContextMap()["request_id"])
}
