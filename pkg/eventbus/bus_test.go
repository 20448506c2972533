package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()

	var got []string
	unsubscribe := b.Subscribe(func(ev Event) { got = append(got, ev.Name) })

	b.Publish(Event{Name: "a"})
	unsubscribe()
	unsubscribe()
	b.Publish(Event{Name: "b"})

	assert.Equal(t, []string{"a"}, got)
}

func TestBus_MultipleSubscribers(t *testing.T) {
	b := New()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 3; i++ {
		b.Subscribe(func(Event) {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	b.Publish(Event{Name: "x", Payload: 1})
	assert.Equal(t, 3, count)
}

func TestBus_NilIsNoop(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.Publish(Event{Name: "x"}) })
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	b := New()
	var unsubscribe func()
	calls := 0
	unsubscribe = b.Subscribe(func(Event) {
		calls++
		unsubscribe()
	})

	b.Publish(Event{Name: "x"})
	b.Publish(Event{Name: "x"})
	assert.Equal(t, 1, calls)
}
