package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer listens on the seating events queue and appends one line per
// event to an audit log file.
type Consumer struct {
	URL     string
	Queue   string
	LogPath string
	Log     *slog.Logger
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes
// until ctx is cancelled.  Broker failures are retried with exponential
// backoff capped at 30s; a message that cannot be handled is rejected
// without requeue so a bad payload cannot stall the queue.
func (c *Consumer) Run(ctx context.Context) error {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn("seating-consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("seating-consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("seating-consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := AppendEvent(c.LogPath, d.Body); err != nil {
			log.Error("seating-consumer: handle message failed", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// AppendEvent decodes a SeatingEvent and appends its log line to path.
func AppendEvent(path string, body []byte) error {
	var ev SeatingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEvent(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders ev as a single human-friendly line ending in a
// newline.  Zero fields are omitted.
func FormatEvent(ev SeatingEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type)
	field := func(name string, v uint64) {
		if v != 0 {
			fmt.Fprintf(&b, " | %s=%d", name, v)
		}
	}
	field("actor", ev.ActorID)
	field("assignment", ev.AssignmentID)
	field("client", ev.ClientID)
	field("table", ev.TableID)
	field("chair", ev.ChairID)
	field("from_table", ev.PreviousTableID)
	field("from_chair", ev.PreviousChairID)
	if ev.Released != 0 {
		fmt.Fprintf(&b, " | released=%d", ev.Released)
	}
	if ev.TableStatus != "" {
		fmt.Fprintf(&b, " | table_status=%s", ev.TableStatus)
	}
	if ev.ChairStatus != "" {
		fmt.Fprintf(&b, " | chair_status=%s", ev.ChairStatus)
	}
	b.WriteByte('\n')
	return b.String()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
