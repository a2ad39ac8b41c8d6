package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/internal/audit"
	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/pkg/logger"
	"github.com/nightgig/platform/auth/pkg/metrics"
)

type recordingSink struct {
	events []entity.SecurityEvent
	err    error
}

func (s *recordingSink) PublishSecurityEvent(_ context.Context, e entity.SecurityEvent) error {
	s.events = append(s.events, e)
	return s.err
}

type panickingSink struct{}

func (panickingSink) PublishSecurityEvent(context.Context, entity.SecurityEvent) error {
	panic("sink exploded")
}

func TestLogger_Log(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	sink := &recordingSink{err: errors.New("broker down")}
	a := audit.New(logger.NewWithWriter(&buf, slog.LevelDebug), sink)

	ctx := logger.SetMethod(context.Background(), "POST")
	ctx = logger.SetURL(ctx, "/api/missions")
	ctx = logger.SetUserAgent(ctx, "curl/8")

	before := testutil.ToFloat64(metrics.SecurityEvents.WithLabelValues("authz.denied", "denied"))

	a.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryAuthzDenied,
		Resource: "missions",
		Action:   "create",
		Outcome:  entity.OutcomeDenied,
		Code:     "PERMISSION_DENIED",
	})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2, "event line plus sink error line")

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))

	require.Equal(t, "security.authz.denied", record["msg"])
	require.Equal(t, "WARN", record["level"])
	require.Equal(t, "anonymous", record["actor"])
	require.Equal(t, "security", record["type"])
	require.Equal(t, "missions", record["resource"])

	require.Len(t, sink.events, 1)
	require.Equal(t, "POST", sink.events[0].Method)
	require.Equal(t, "/api/missions", sink.events[0].Path)
	require.Equal(t, "curl/8", sink.events[0].UserAgent)
	require.False(t, sink.events[0].Timestamp.IsZero())

	after := testutil.ToFloat64(metrics.SecurityEvents.WithLabelValues("authz.denied", "denied"))
	require.InDelta(t, before+1, after, 0.001)
}

func TestLogger_SwallowsSinkPanics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	a := audit.New(logger.NewWithWriter(&buf, slog.LevelInfo), panickingSink{})

	require.NotPanics(t, func() {
		a.Log(context.Background(), entity.SecurityEvent{
			Category: entity.CategoryAuthnDenied,
			Outcome:  entity.OutcomeDenied,
		})
	})

	require.Contains(t, buf.String(), "security.authn.denied")
}
