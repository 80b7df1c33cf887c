// Package kafka publishes domain events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"bizledger/internal/domain/events"
	"bizledger/pkg/logger"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultQueueSize    = 1024
)

var (
	// ErrQueueFull is returned when the hand-off queue has no room. The event is dropped.
	ErrQueueFull = errors.New("event queue full")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("publisher closed")
)

// Config holds publisher settings.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	QueueSize    int
}

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes each event as one JSON message keyed by aggregate id,
// so all events of one loan or transaction land on the same partition.
//
// Publish never waits on the broker. It hands the message to a bounded queue
// drained by one background goroutine; a full queue drops the event and
// reports ErrQueueFull.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	queue   chan kafka.Message
	done    chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Compile-time check that Publisher implements events.Publisher.
var _ events.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher for cfg and starts its drain goroutine.
func NewPublisher(cfg Config) *Publisher {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: timeout,
		Async:        true,
		Completion:   logFailedDelivery,
	}
	return newPublisher(w, timeout, cfg.QueueSize)
}

func newPublisher(w messageWriter, timeout time.Duration, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &Publisher{
		writer:  w,
		timeout: timeout,
		queue:   make(chan kafka.Message, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.writer.WriteMessages(ctx, msg)
		cancel()
		logFailedDelivery([]kafka.Message{msg}, err)
	}
}

// Publish implements events.Publisher.
func (p *Publisher) Publish(_ context.Context, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.AggregateID.String()),
		Value: data,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s", ErrQueueFull, ev.Type)
	}
}

// Close stops accepting events, drains the queue and closes the writer,
// which flushes anything still buffered.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		<-p.done
		p.closeErr = p.writer.Close()
	})
	return p.closeErr
}

// logFailedDelivery logs every message of a failed batch. It is also the
// async writer's completion callback.
func logFailedDelivery(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		logger.Warn(context.Background(), "event delivery failed",
			"type", eventType(m), "key", string(m.Key), "error", err)
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
