// Package eventbus is a small in-process pub/sub bus with explicit delivery
// semantics: at-most-once per publish, no replay for late subscribers. It
// replaces ambient global emitters for cross-consumer propagation.
package eventbus

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler receives published events. A panicking handler is isolated and
// logged; it never breaks delivery to the remaining subscribers.
type Handler func(topic string, payload any)

const allTopics = "*"

// Subscription identifies one registered handler.
type Subscription struct {
	id    string
	topic string
	bus   *Bus
}

// Unsubscribe removes the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.topic, s.id)
}

type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[string]Handler
}

func New() *Bus {
	return &Bus{
		subs: make(map[string]map[string]Handler),
	}
}

// Subscribe registers a handler for one topic. There is no replay: a late
// subscriber must load current state itself to catch up.
func (b *Bus) Subscribe(topic string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]Handler)
	}
	id := uuid.NewString()
	b.subs[topic][id] = handler
	return &Subscription{id: id, topic: topic, bus: b}
}

// SubscribeAll registers a handler for every topic. Used by bridges that
// mirror bus traffic outward (websocket hub, valkey).
func (b *Bus) SubscribeAll(handler Handler) *Subscription {
	return b.Subscribe(allTopics, handler)
}

// Publish delivers the payload to current subscribers of the topic,
// best-effort, at-most-once each.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic])+len(b.subs[allTopics]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	for _, h := range b.subs[allTopics] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(topic, payload, h)
	}
}

func (b *Bus) deliver(topic string, payload any, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[BUS] Handler panicked on topic %s: %v", topic, r)
		}
	}()
	h(topic, payload)
}

func (b *Bus) remove(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.subs[topic]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subs, topic)
		}
	}
}

// Subscribers returns the number of handlers registered for a topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
