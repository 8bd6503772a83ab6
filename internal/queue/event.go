// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

import "time"

// EmailQueueName is the durable queue carrying outbound email jobs.
const EmailQueueName = "notification.email"

// EmailJob is one outbound email.  It carries the fully rendered bodies so
// the consumer never needs to query the primary database.
type EmailJob struct {
	Kind       string    `json:"kind"` // verification, password_reset, certification_status, ...
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	HTML       string    `json:"html"`
	Text       string    `json:"text"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
