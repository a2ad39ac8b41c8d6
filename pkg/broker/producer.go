package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/nightgig/platform/auth/internal/entity"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	l                  *slog.Logger
	w                  messageWriter
	notificationsTopic string
	securityTopic      string
}

func NewProducer(l *slog.Logger, brokers []string, notificationsTopic, securityTopic string) *Producer {
	l = l.WithGroup("kafka")

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "",
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		Compression:            0,
		Logger:                 &kafkaLogger{l: l, level: slog.LevelDebug},
		ErrorLogger:            &kafkaLogger{l: l, level: slog.LevelError},
		AllowAutoTopicCreation: true,
	}

	return newProducer(l, w, notificationsTopic, securityTopic)
}

func newProducer(l *slog.Logger, w messageWriter, notificationsTopic, securityTopic string) *Producer {
	return &Producer{
		l:                  l,
		w:                  w,
		notificationsTopic: notificationsTopic,
		securityTopic:      securityTopic,
	}
}

type NotificationEvent struct {
	Type       string   `json:"type"`
	Template   string   `json:"template"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
	Link       string   `json:"link"`
	Recipients []string `json:"recipients"`
}

func (p *Producer) SendPasswordReset(ctx context.Context, email, link string) {
	p.sendNotification(ctx, email, NotificationEvent{
		Type:       "email",
		Template:   "password_reset_requested",
		Subject:    "Reset your NightGig password",
		Message:    "Follow the link to choose a new password. The link expires in one hour.",
		Link:       link,
		Recipients: []string{email},
	})
}

func (p *Producer) SendEmailVerification(ctx context.Context, email, link string) {
	p.sendNotification(ctx, email, NotificationEvent{
		Type:       "email",
		Template:   "email_verification_requested",
		Subject:    "Confirm your NightGig email",
		Message:    "Follow the link to confirm your email address.",
		Link:       link,
		Recipients: []string{email},
	})
}

func (p *Producer) sendNotification(ctx context.Context, email string, event NotificationEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		p.l.ErrorContext(ctx, fmt.Sprintf("marshal event: %s", err))
		return
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%s", event.Template, email)),
		Value: b,
		Topic: p.notificationsTopic,
	})
	if err != nil {
		p.l.ErrorContext(ctx, fmt.Sprintf("write kafka message: %s", err), "topic", p.notificationsTopic)
		return
	}
}

// PublishSecurityEvent forwards an audit event to the security topic.
func (p *Producer) PublishSecurityEvent(ctx context.Context, event entity.SecurityEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal security event: %w", err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Actor),
		Value: b,
		Topic: p.securityTopic,
	})
	if err != nil {
		return fmt.Errorf("write security event: %w", err)
	}

	return nil
}

func (p *Producer) Close() {
	err := p.w.Close()
	if err != nil {
		p.l.Error(fmt.Sprintf("close kafka writer: %s", err))
	}
}
