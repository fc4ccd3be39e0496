package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Event is a broadcast signal scoped to one browser session.
type Event struct {
	Topic   string
	Scope   string
	Payload any
}

// Handler reacts to an event delivered by the bus.
type Handler func(ctx context.Context, ev Event) error

// Notifier observes every emitted event regardless of scope (logging, metrics).
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type subscription struct {
	id      uint64
	handler Handler
}

// subKey buckets subscriptions by topic and scope; scope "" holds the
// wildcard subscribers of the topic.
type subKey struct {
	topic string
	scope string
}

// Bus fans events out to subscribers synchronously, in subscription order.
// Handlers run on the emitting goroutine and must not emit on the same scope
// recursively without terminating.
type Bus struct {
	Notifiers []Notifier

	mu     sync.RWMutex
	nextID uint64
	subs   map[subKey][]subscription
}

// Subscribe registers h for topic. An empty scope receives events for every
// scope. The returned func removes the subscription and is safe to call twice.
func (b *Bus) Subscribe(topic, scope string, h Handler) func() {
	topic = strings.TrimSpace(topic)
	if b == nil || topic == "" || h == nil {
		return func() {}
	}
	key := subKey{topic: topic, scope: scope}
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[subKey][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[key] = append(b.subs[key], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(key, id) })
	}
}

func (b *Bus) remove(key subKey, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[key]
	for i, sub := range list {
		if sub.id == id {
			b.subs[key] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[key]) == 0 {
		delete(b.subs, key)
	}
}

// matching merges the scoped and wildcard subscribers of topic back into
// subscription order. Callers hold b.mu.
func (b *Bus) matching(topic, scope string) []subscription {
	wild := b.subs[subKey{topic: topic}]
	if scope == "" {
		return wild
	}
	scoped := b.subs[subKey{topic: topic, scope: scope}]
	out := make([]subscription, 0, len(wild)+len(scoped))
	for len(wild) > 0 && len(scoped) > 0 {
		if wild[0].id < scoped[0].id {
			out, wild = append(out, wild[0]), wild[1:]
		} else {
			out, scoped = append(out, scoped[0]), scoped[1:]
		}
	}
	out = append(out, wild...)
	return append(out, scoped...)
}

// Subscribers reports how many handlers would receive an event for topic and scope.
func (b *Bus) Subscribers(topic, scope string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.subs[subKey{topic: topic}])
	if scope != "" {
		n += len(b.subs[subKey{topic: topic, scope: scope}])
	}
	return n
}

// Emit delivers ev to every matching subscriber and then to the notifiers.
// Every handler runs even when an earlier one fails; failures are joined.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	if b == nil {
		return errors.New("events: bus not configured")
	}
	ev.Topic = strings.TrimSpace(ev.Topic)
	if ev.Topic == "" {
		return errors.New("events: topic is required")
	}

	b.mu.RLock()
	targets := b.matching(ev.Topic, ev.Scope)
	b.mu.RUnlock()

	var joined error
	for _, sub := range targets {
		if err := sub.handler(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: %s handler: %w", ev.Topic, err))
		}
	}
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
		}
	}
	return joined
}

// LogNotifier writes a debug line per emitted event.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Debug().Str("topic", ev.Topic).Str("session_id", ev.Scope).Msg("event_emitted")
	return nil
}
