package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/pkg/logger"
)

func TestHandler_AddsContextAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := logger.NewWithWriter(&buf, slog.LevelDebug).With("job", "test")

	ctx := logger.SetRequestID(context.Background(), "req-1")
	ctx = logger.SetIP(ctx, "10.0.0.1")
	ctx = logger.SetLogType(ctx, "security")
	ctx = logger.SetRole(ctx, "ADMIN")

	l.InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	require.Equal(t, "hello", record["msg"])
	require.Equal(t, "req-1", record["request_id"])
	require.Equal(t, "10.0.0.1", record["ip"])
	require.Equal(t, "security", record["type"])
	require.Equal(t, "ADMIN", record["role"])
	require.Equal(t, "test", record["job"])
	require.Equal(t, "nightgig-auth", record["origin_service"])
	require.Nil(t, record["user_id"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, logger.ParseLevel(tt.in))
		})
	}
}
