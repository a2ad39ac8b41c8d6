package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/pkg/logger"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_SendPasswordReset(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := newProducer(slog.Default(), w, "notifications", "security-events")

	p.SendPasswordReset(context.Background(), "owl@nightgig.test", "https://app.nightgig.test/reset-password?token=abc")

	require.Len(t, w.msgs, 1)
	require.Equal(t, "notifications", w.msgs[0].Topic)
	require.Equal(t, "password_reset_requested:owl@nightgig.test", string(w.msgs[0].Key))

	var event NotificationEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	require.Equal(t, "email", event.Type)
	require.Equal(t, []string{"owl@nightgig.test"}, event.Recipients)
	require.Contains(t, event.Link, "token=abc")
}

func TestProducer_SendEmailVerificationLogsWriteError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w := &fakeWriter{err: errors.New("no brokers")}
	p := newProducer(logger.NewWithWriter(&buf, slog.LevelInfo), w, "notifications", "security-events")

	require.NotPanics(t, func() {
		p.SendEmailVerification(context.Background(), "owl@nightgig.test", "https://app.nightgig.test/verify-email?token=x")
	})

	require.Contains(t, buf.String(), "write kafka message")
	require.Contains(t, buf.String(), "no brokers")
}

func TestProducer_PublishSecurityEvent(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := newProducer(slog.Default(), w, "notifications", "security-events")

	err := p.PublishSecurityEvent(context.Background(), entity.SecurityEvent{
		Category: entity.CategoryAuthzDenied,
		Actor:    "user-1",
		Outcome:  entity.OutcomeDenied,
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	require.Equal(t, "security-events", w.msgs[0].Topic)
	require.Equal(t, "user-1", string(w.msgs[0].Key))

	w.err = errors.New("leader not available")
	require.Error(t, p.PublishSecurityEvent(context.Background(), entity.SecurityEvent{Actor: "user-1"}))

	p.Close()
	require.True(t, w.closed)
}
