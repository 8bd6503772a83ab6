package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/logger"
)

// ErrNoBroker is returned by a Publisher built without a broker URL.
var ErrNoBroker = errors.New("rabbitmq: no broker configured")

// Publisher publishes email jobs to RabbitMQ.  A connection is opened per
// publish; email volume is low and this keeps the publisher free of
// reconnect state.  Errors are logged and returned so callers can treat
// delivery as best effort.
type Publisher struct {
	url  string
	dial func(url string) (*amqp.Connection, error)
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, dial: amqp.Dial}
}

// PublishEmail sends job to the notification.email queue as a persistent message.
func (p *Publisher) PublishEmail(ctx context.Context, job EmailJob) error {
	if p.url == "" {
		return ErrNoBroker
	}
	log := logger.WithContext(ctx)

	pub, err := encodeJob(job, time.Now().UTC())
	if err != nil {
		log.Error("rabbitmq: marshal job failed", zap.Error(err))
		return err
	}

	conn, err := p.dial(p.url)
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareEmailQueue(ch); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	if err := ch.PublishWithContext(ctx,
		"",             // default exchange
		EmailQueueName, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		pub,
	); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	return nil
}

func encodeJob(job EmailJob, now time.Time) (amqp.Publishing, error) {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = now
	}
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Type:         job.Kind,
		Body:         body,
	}, nil
}

// declareEmailQueue is idempotent.  Durable so jobs survive broker restarts.
func declareEmailQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		EmailQueueName, // name
		true,           // durable
		false,          // autoDelete
		false,          // exclusive
		false,          // noWait
		nil,            // args
	)
	return err
}
