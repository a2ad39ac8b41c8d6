// Package audit records security events. Logging never fails the caller.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/pkg/logger"
	"github.com/nightgig/platform/auth/pkg/metrics"
)

// Sink receives a copy of every event, e.g. a broker topic.
type Sink interface {
	PublishSecurityEvent(ctx context.Context, event entity.SecurityEvent) error
}

type Logger struct {
	l     *slog.Logger
	sinks []Sink
	now   func() time.Time
}

func New(l *slog.Logger, sinks ...Sink) *Logger {
	return &Logger{
		l:     l,
		sinks: sinks,
		now:   time.Now,
	}
}

// Log fills request context into event and emits it. Panics and sink errors
// are swallowed.
func (a *Logger) Log(ctx context.Context, event entity.SecurityEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().ErrorContext(ctx, "security event logging panicked", "panic", fmt.Sprint(r))
		}
	}()

	event = a.enrich(ctx, event)

	ctx = logger.SetLogType(ctx, "security")

	level := slog.LevelInfo
	if event.Outcome == entity.OutcomeDenied {
		level = slog.LevelWarn
	}

	a.l.Log(ctx, level, event.Name(),
		"category", string(event.Category),
		"actor", event.Actor,
		"actor_role", event.Role,
		"resource", event.Resource,
		"action", event.Action,
		"outcome", string(event.Outcome),
		"code", event.Code,
		"reason", event.Reason,
		"event_time", event.Timestamp,
	)

	metrics.SecurityEvents.WithLabelValues(string(event.Category), string(event.Outcome)).Inc()

	for _, sink := range a.sinks {
		if err := sink.PublishSecurityEvent(ctx, event); err != nil {
			a.l.ErrorContext(ctx, "publish security event", "error", err)
		}
	}
}

func (a *Logger) enrich(ctx context.Context, event entity.SecurityEvent) entity.SecurityEvent {
	if event.Actor == "" {
		event.Actor = entity.AnonymousActor
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = a.now().UTC()
	}

	if event.Method == "" {
		event.Method = logger.Method(ctx)
	}

	if event.Path == "" {
		event.Path = logger.URL(ctx)
	}

	if event.UserAgent == "" {
		event.UserAgent = entity.UserAgentFromCtx(ctx)
	}

	if event.UserAgent == "" {
		event.UserAgent = logger.UserAgent(ctx)
	}

	if event.IP == "" {
		event.IP = entity.IPFromCtx(ctx)
	}

	return event
}
