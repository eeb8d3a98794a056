// Package events is a typed, in-process publish/subscribe channel. Each Bus
// carries exactly one event type, so subscribers never decode untyped payloads.
package events

import (
	"sync"
	"time"
)

// Bus delivers events of type T to every current subscriber, synchronously
// and in subscription order.
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// NewBus returns an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish hands ev to all subscribers. Subscribers may unsubscribe or
// publish from inside their callback.
func (b *Bus[T]) Publish(ev T) {
	b.mu.RLock()
	subs := make([]subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// MonthSelected is broadcast when a view selects the billing month to show.
type MonthSelected struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// Op is the kind of collection mutation.
type Op string

const (
	OpCreated  Op = "created"
	OpUpdated  Op = "updated"
	OpDeleted  Op = "deleted"
	OpReplaced Op = "replaced"
)

// Change describes a mutation applied to one of the store's collections.
// ID is empty for OpReplaced.
type Change struct {
	Collection string    `json:"collection"`
	Op         Op        `json:"op"`
	ID         string    `json:"id,omitempty"`
	ClinicID   string    `json:"clinicId,omitempty"`
	At         time.Time `json:"at"`
}
