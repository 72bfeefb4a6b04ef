// Package ipc carries messages between the shell and the view: typed one-way signals
// and the result envelope returned by shell operations.
package ipc

import (
	"log/slog"
	"sync"
)

// Topic is a typed publish/subscribe channel. Subscribers of one topic receive values
// synchronously and in publish order; there is no ordering between different topics.
type Topic[T any] struct {
	subs   map[uint64]func(T)
	name   string
	order  []uint64
	nextID uint64
	mu     sync.Mutex
	pubMu  sync.Mutex
}

// NewTopic creates a topic. The name only appears in logs.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name, subs: make(map[uint64]func(T))}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string {
	return t.name
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the disposer more than once is harmless.
func (t *Topic[T]) Subscribe(fn func(T)) (dispose func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs[id] = fn
	t.order = append(t.order, id)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			for i, v := range t.order {
				if v == id {
					t.order = append(t.order[:i], t.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers returns the number of registered handlers.
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Publish delivers v to every subscriber registered at the time of the call.
// Concurrent publishers are serialized so subscribers observe a single order.
// A panicking subscriber is logged and does not stop delivery to the others.
// Subscribers must not publish to the same topic.
func (t *Topic[T]) Publish(v T) {
	t.pubMu.Lock()
	defer t.pubMu.Unlock()

	t.mu.Lock()
	handlers := make([]func(T), 0, len(t.order))
	for _, id := range t.order {
		handlers = append(handlers, t.subs[id])
	}
	t.mu.Unlock()

	slog.Debug("[IPC] Publish", "topic", t.name, "subscribers", len(handlers))
	for _, h := range handlers {
		t.deliver(h, v)
	}
}

func (t *Topic[T]) deliver(h func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[IPC] Subscriber panicked", "topic", t.name, "panic", r)
		}
	}()
	h(v)
}
