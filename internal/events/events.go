// Package events distributes pipeline progress: over NATS to other services
// and in process to HTTP streams.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject is the NATS subject for pipeline progress.
const DefaultSubject = "persona.progress"

// Publisher sends JSON-encoded events to a subject.
type Publisher interface {
	Publish(subject string, data any) error
}

// NATSClient publishes and subscribes over a NATS connection.
type NATSClient struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *zap.Logger
}

// Connect dials url, reconnecting in the background when the server drops.
func Connect(_ context.Context, url, token string, logger *zap.Logger) (*NATSClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("persona-agent"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSClient{conn: nc, logger: logger}, nil
}

// Publish sends data as JSON.
func (c *NATSClient) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// Subscribe calls handler for every message on subject.
func (c *NATSClient) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", zap.String("subject", subject))
	return nil
}

// Close drains subscriptions and closes the connection.
func (c *NATSClient) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

// Message is one event delivered by a Broker.
type Message struct {
	Subject string
	Data    []byte
}

// Broker fans events out to in-process subscribers. Slow subscribers miss
// events rather than block publishers.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan Message]string
	buffer int
}

// NewBroker creates a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{subs: make(map[chan Message]string), buffer: buffer}
}

// Subscribe returns a channel of events for subject ("" receives all) and a
// function that ends the subscription and closes the channel.
func (b *Broker) Subscribe(subject string) (<-chan Message, func()) {
	ch := make(chan Message, b.buffer)
	b.mu.Lock()
	b.subs[ch] = subject
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers data as JSON to matching subscribers.
func (b *Broker) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, want := range b.subs {
		if want != "" && want != subject {
			continue
		}
		select {
		case ch <- Message{Subject: subject, Data: payload}:
		default:
		}
	}
	return nil
}

// Multi publishes to every non-nil publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(subject string, data any) error {
	var firstErr error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(subject, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
