package events

import (
	"sync"
	"sync/atomic"
)

// Broadcaster fans one value out to many subscribers. Channel subscribers never
// block the publisher: a full channel misses the value and the drop is counted.
// Func subscribers run synchronously on the publishing goroutine.
type Broadcaster[T any] struct {
	mu         sync.RWMutex
	subs       map[uint64]subscriber[T]
	nextID     uint64
	replayLast bool
	last       T
	hasLast    bool
	onDrop     func()
	dropped    atomic.Uint64
}

type subscriber[T any] struct {
	ch chan<- T
	fn func(T)
}

// NewBroadcaster creates a Broadcaster. With replayLast set, a new subscriber
// immediately receives the most recently published value, if any.
func NewBroadcaster[T any](replayLast bool) *Broadcaster[T] {
	return &Broadcaster[T]{
		subs:       make(map[uint64]subscriber[T]),
		replayLast: replayLast,
	}
}

// OnDrop registers fn to be called whenever a channel subscriber misses a value
func (b *Broadcaster[T]) OnDrop(fn func()) {
	b.mu.Lock()
	b.onDrop = fn
	b.mu.Unlock()
}

// Subscribe registers ch and returns the function that removes it
func (b *Broadcaster[T]) Subscribe(ch chan<- T) func() {
	if ch == nil {
		panic("Broadcaster: channel cannot be nil")
	}
	return b.add(subscriber[T]{ch: ch})
}

// SubscribeFunc registers fn and returns the function that removes it
func (b *Broadcaster[T]) SubscribeFunc(fn func(T)) func() {
	if fn == nil {
		panic("Broadcaster: callback cannot be nil")
	}
	return b.add(subscriber[T]{fn: fn})
}

func (b *Broadcaster[T]) add(sub subscriber[T]) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	replay, value := b.replayLast && b.hasLast, b.last
	b.mu.Unlock()

	if replay {
		b.deliver(sub, value)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers value to every current subscriber
func (b *Broadcaster[T]) Publish(value T) {
	b.mu.Lock()
	if b.replayLast {
		b.last = value
		b.hasLast = true
	}
	subs := make([]subscriber[T], 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		b.deliver(sub, value)
	}
}

func (b *Broadcaster[T]) deliver(sub subscriber[T], value T) {
	if sub.fn != nil {
		sub.fn(value)
		return
	}
	select {
	case sub.ch <- value:
	default:
		b.dropped.Add(1)
		b.mu.RLock()
		onDrop := b.onDrop
		b.mu.RUnlock()
		if onDrop != nil {
			onDrop()
		}
	}
}

// Last returns the most recently published value when replayLast is set
func (b *Broadcaster[T]) Last() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.hasLast
}

// Dropped is the number of values channel subscribers missed
func (b *Broadcaster[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of registered subscribers
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
