package webview

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/slimevr/slimevr-launcher/internal/eventbus"
)

// Evaluator runs JavaScript in the page.
type Evaluator interface {
	Eval(js string)
}

// Binder exposes Go functions to the page.
type Binder interface {
	Bind(name string, fn any) error
}

// Subscriber is the subset of the event bus the bridge needs.
type Subscriber interface {
	Subscribe(topic string, handler eventbus.Handler) (eventbus.Subscription, error)
	Unsubscribe(sub eventbus.Subscription)
}

// DispatchScript returns the statement that raises a DOM CustomEvent named
// topic with payload as its detail.
func DispatchScript(topic string, payload any) (string, error) {
	name, err := json.Marshal(topic)
	if err != nil {
		return "", err
	}
	detail, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return fmt.Sprintf("window.dispatchEvent(new CustomEvent(%s, {detail: %s}));", name, detail), nil
}

// Bridge forwards bus topics into the page as DOM events.
type Bridge struct {
	target Evaluator
	logger *zap.Logger

	mu   sync.Mutex
	bus  Subscriber
	subs []eventbus.Subscription
}

// NewBridge returns a bridge evaluating into target.
func NewBridge(target Evaluator, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Named under the bus so its own failures never ride the log topic back
	// into the bridge.
	return &Bridge{target: target, logger: logger.Named(eventbus.LoggerName).Named("bridge")}
}

// Forward subscribes to each topic on bus.
func (b *Bridge) Forward(bus Subscriber, topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bus != nil && b.bus != bus {
		return fmt.Errorf("bridge already attached to another bus")
	}
	b.bus = bus
	for _, topic := range topics {
		sub, err := bus.Subscribe(topic, b.dispatch)
		if err != nil {
			return fmt.Errorf("forward %s: %w", topic, err)
		}
		b.subs = append(b.subs, sub)
	}
	return nil
}

func (b *Bridge) dispatch(topic string, payload any) {
	js, err := DispatchScript(topic, payload)
	if err != nil {
		b.logger.Warn("dropping event", zap.String("topic", topic), zap.Error(err))
		return
	}
	b.target.Eval(js)
}

// Close removes every subscription.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		b.bus.Unsubscribe(sub)
	}
	b.subs = nil
}

// BindAll binds every command in name order.
func BindAll(target Binder, commands map[string]any) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := target.Bind(name, commands[name]); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return nil
}
