// Package eventbus is the in-process publish/subscribe channel between the
// launcher's native side and the embedded GUI. Topics are plain strings such
// as "server-status"; payloads are whatever the publisher hands over and are
// JSON-encoded only at the webview boundary.
package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoggerName names the bus's own logger. Sinks that publish log records back
// onto the bus skip entries from this logger.
const LoggerName = "eventbus"

// Handler receives a payload published on a subscribed topic.
type Handler func(topic string, payload any)

// Subscription identifies a registered handler.
type Subscription struct {
	ID    string
	Topic string
}

// ErrEmptyTopic is returned when subscribing or emitting without a topic.
var ErrEmptyTopic = errors.New("topic required")

type subscriber struct {
	id      string
	handler Handler
}

// Bus delivers events synchronously, in subscription order. Emit returns only
// after every handler for the topic has run, so events published from one
// goroutine reach subscribers in publication order.
type Bus struct {
	logger atomic.Pointer[zap.Logger]

	mu     sync.RWMutex
	topics map[string][]subscriber
}

// New returns an empty bus. A nil logger disables handler panic logging.
func New(logger *zap.Logger) *Bus {
	b := &Bus{topics: make(map[string][]subscriber)}
	b.SetLogger(logger)
	return b
}

// SetLogger replaces the logger used to report handler panics. The bus is
// usually created before the logger that feeds it.
func (b *Bus) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b.logger.Store(logger.Named(LoggerName))
}

// Subscribe registers handler for topic.
func (b *Bus) Subscribe(topic string, handler Handler) (Subscription, error) {
	if topic == "" {
		return Subscription{}, ErrEmptyTopic
	}
	if handler == nil {
		return Subscription{}, errors.New("handler required")
	}
	sub := subscriber{id: uuid.NewString(), handler: handler}
	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()
	return Subscription{ID: sub.id, Topic: topic}, nil
}

// Unsubscribe removes a subscription. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[sub.Topic]
	for i, s := range subs {
		if s.id == sub.ID {
			b.topics[sub.Topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.topics[sub.Topic]) == 0 {
		delete(b.topics, sub.Topic)
	}
}

// Emit publishes payload on topic. Publishing on a topic nobody listens to is
// not an error. A panicking handler is logged and its panic propagates to the
// caller, whose panic hook reports it.
func (b *Bus) Emit(topic string, payload any) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	b.mu.RLock()
	subs := append([]subscriber(nil), b.topics[topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, topic, payload)
	}
	return nil
}

// Subscribers reports how many handlers are registered for topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Bus) deliver(s subscriber, topic string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Load().Error("event handler panicked",
				zap.String("topic", topic),
				zap.String("subscription", s.id),
				zap.Any("panic", r))
			panic(r)
		}
	}()
	s.handler(topic, payload)
}
