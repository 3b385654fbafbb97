// Package service holds adapters the seating engine talks to outside the
// database.  EventPublisher sends committed seating events to RabbitMQ.
// Errors are logged and returned so the engine can record them without
// interrupting the request flow.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/venue-seating/internal/queue"
)

// EventPublisher publishes SeatingEvents to a durable queue.  A
// connection is opened per publish; seating mutations are rare enough
// that holding a channel open is not worth the reconnect handling.
type EventPublisher struct {
	url   string
	queue string
	log   *slog.Logger
	// Observe, when set, is called with the result of every publish.
	Observe func(err error)
}

// NewEventPublisher returns a publisher for queueName on the broker at url.
func NewEventPublisher(url, queueName string, log *slog.Logger) *EventPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &EventPublisher{url: url, queue: queueName, log: log}
}

// Publish implements seating.Publisher.  Messages are marked persistent.
func (p *EventPublisher) Publish(ctx context.Context, ev queue.SeatingEvent) (err error) {
	defer func() {
		if p.Observe != nil {
			p.Observe(err)
		}
	}()

	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("rabbitmq: marshal event failed", "type", ev.Type, "error", err)
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", "queue", p.queue, "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.ID,
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.log.Warn("rabbitmq: publish failed", "queue", p.queue, "error", err)
		return err
	}
	return nil
}
