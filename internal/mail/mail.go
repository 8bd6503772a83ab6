// Package mail renders and delivers outbound email.  Delivery is either
// direct over SMTP or deferred through the RabbitMQ email queue.
package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/queue"
)

// Message is one rendered email.
type Message struct {
	Kind    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends a message.  Callers in request paths treat failures as
// non-fatal.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// JobPublisher is satisfied by queue.Publisher.
type JobPublisher interface {
	PublishEmail(ctx context.Context, job queue.EmailJob) error
}

// QueueMailer hands messages to the email queue for the background consumer.
type QueueMailer struct {
	pub JobPublisher
}

func NewQueueMailer(pub JobPublisher) *QueueMailer { return &QueueMailer{pub: pub} }

func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	return m.pub.PublishEmail(ctx, queue.EmailJob{
		Kind:    msg.Kind,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
}

// LogMailer only logs.  Used in development when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	logger.WithContext(ctx).Info("email (not sent)",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text))
	return nil
}
