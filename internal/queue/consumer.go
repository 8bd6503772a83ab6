package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/logger"
)

// EmailHandler delivers one decoded job.  mail.SMTPMailer satisfies it.
type EmailHandler interface {
	HandleEmail(ctx context.Context, job EmailJob) error
}

// EmailConsumer drains the notification.email queue into an EmailHandler.
type EmailConsumer struct {
	URL     string
	Handler EmailHandler
	Timeout time.Duration // per-delivery deadline, defaults to 30s
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  Broker failures trigger a reconnect with exponential backoff
// capped at 30s; a message that cannot be handled is rejected without
// requeue so a poison message cannot spin the loop.
func (c *EmailConsumer) Run(ctx context.Context) error {
	log := logger.L().With(zap.String("component", "email-consumer"))
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *EmailConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logger.L().Warn("email-consumer: set QoS failed", zap.Error(err))
	}
	if err := declareEmailQueue(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(EmailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleDelivery(ctx, d.Body); err != nil {
				logger.L().Error("email-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *EmailConsumer) handleDelivery(ctx context.Context, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if job.To == "" {
		return errors.New("job has no recipient")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Handler.HandleEmail(ctx, job); err != nil {
		return fmt.Errorf("deliver %s to %s: %w", job.Kind, job.To, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
