package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer drains the event queues and appends one line per event to an
// audit log file.
type Consumer struct {
	url     string
	logPath string
	log     *zap.Logger

	mu sync.Mutex // serialises appends to logPath
}

// NewConsumer returns a consumer writing to dir/events.log.
func NewConsumer(url, dir string, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		url:     url,
		logPath: filepath.Join(dir, "events.log"),
		log:     log.Named("event-consumer"),
	}
}

// Run connects to RabbitMQ, declares both event queues and consumes them
// until ctx is cancelled. Dial failures and dropped connections are retried
// with a doubling backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}

	var streams []<-chan amqp.Delivery
	for _, q := range []string{EntrySubmittedQueue, SignupCreatedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		streams = append(streams, msgs)
	}

	entries, signups := streams[0], streams[1]
	for {
		var (
			d  amqp.Delivery
			ok bool
			q  string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-entries:
			q = EntrySubmittedQueue
		case d, ok = <-signups:
			q = SignupCreatedQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handleMessage(q, d.Body); err != nil {
			c.log.Warn("handle message failed", zap.String("queue", q), zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

// handleMessage decodes body according to queue and appends a single line to
// the audit log.
func (c *Consumer) handleMessage(queue string, body []byte) error {
	var line string
	switch queue {
	case EntrySubmittedQueue:
		var ev EntrySubmittedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.EntryID == "" || ev.UserID == "" {
			return errors.New("entry event missing ids")
		}
		line = fmt.Sprintf("[%s] Entry submitted | entry_id=%s | user_id=%s | date=%s | entry_number=%d | follow_up=%t\n",
			ev.OccurredAt, ev.EntryID, ev.UserID, ev.Date, ev.EntryNumber, ev.IsFollowUp)
	case SignupCreatedQueue:
		var ev SignupCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.SignupID == "" {
			return errors.New("signup event missing id")
		}
		line = fmt.Sprintf("[%s] Signup created | signup_id=%s | email=%s\n",
			ev.OccurredAt, ev.SignupID, ev.Email)
	default:
		return fmt.Errorf("unknown queue %q", queue)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done. It reports false if ctx ended first.
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
