// Package eventbus is a small synchronous in-process publish/subscribe hub.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event is a named occurrence with an arbitrary payload.
type Event struct {
	Name    string
	Payload any
}

// Handler receives published events. Handlers run on the publisher's goroutine
// and must not block.
type Handler func(Event)

type Bus struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	next     atomic.Uint64
}

func New() *Bus {
	return &Bus{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it. Calling the
// returned function more than once is safe.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	id := b.next.Add(1)
	b.mu.Lock()
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to every current subscriber. A nil bus drops the event.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(ev)
	}
}
