package live

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected live event")
	}
	return Event{}
}

func assertEmpty(t *testing.T, s *Session) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event %q", ev.Name)
	default:
	}
}

func TestBroker_FanOutAndCleanup(t *testing.T) {
	b := NewBroker(nil)
	userID := uuid.New()
	first := NewSession(userID, 4)
	second := NewSession(userID, 4)

	require.True(t, b.Add(first))
	require.True(t, b.Add(second))
	assert.Equal(t, 2, b.Sessions(userID))

	n := b.Send(userID, "toast", map[string]string{"message": "X"})
	assert.Equal(t, 2, n)
	for _, s := range []*Session{first, second} {
		ev := receive(t, s)
		assert.Equal(t, "toast", ev.Name)
		assert.JSONEq(t, `{"message":"X"}`, string(ev.Data))
	}

	b.Remove(first)
	assert.Equal(t, 1, b.Send(userID, "toast", "Y"))
	assertEmpty(t, first)
	assert.Equal(t, "toast", receive(t, second).Name)

	b.Remove(second)
	_, exists := b.sessions[userID]
	assert.False(t, exists, "no residual entry for user")
	assert.Equal(t, 0, b.Users())
}

func TestBroker_SendWithoutSessionsIsNoop(t *testing.T) {
	b := NewBroker(nil)
	assert.Equal(t, 0, b.Send(uuid.New(), "toast", "hello"))
}

func TestBroker_SendOnlyToTargetUser(t *testing.T) {
	b := NewBroker(nil)
	target := NewSession(uuid.New(), 1)
	other := NewSession(uuid.New(), 1)
	b.Add(target)
	b.Add(other)

	b.Send(target.UserID(), "toast", "only-target")

	var got string
	require.NoError(t, json.Unmarshal(receive(t, target).Data, &got))
	assert.Equal(t, "only-target", got)
	assertEmpty(t, other)
}

func TestBroker_FullSessionIsDropped(t *testing.T) {
	b := NewBroker(nil)
	userID := uuid.New()
	slow := NewSession(userID, 1)
	b.Add(slow)

	assert.Equal(t, 1, b.Send(userID, "toast", 1))
	assert.Equal(t, 0, b.Send(userID, "toast", 2))

	assert.Equal(t, 0, b.Sessions(userID))
	select {
	case <-slow.Done():
	default:
		t.Fatal("dropped session should be closed")
	}
}

func TestBroker_Broadcast(t *testing.T) {
	b := NewBroker(nil)
	a := NewSession(uuid.New(), 1)
	c := NewSession(uuid.New(), 1)
	b.Add(a)
	b.Add(c)

	assert.Equal(t, 2, b.Broadcast("sync", map[string]string{"id": "n1"}))
	assert.Equal(t, "sync", receive(t, a).Name)
	assert.Equal(t, "sync", receive(t, c).Name)
}

func TestBroker_RemoveIsIdempotent(t *testing.T) {
	b := NewBroker(nil)
	s := NewSession(uuid.New(), 1)
	b.Add(s)

	b.Remove(s)
	assert.NotPanics(t, func() { b.Remove(s) })
	assert.False(t, s.Offer(Event{Name: "x"}))
}

func TestBroker_Stop(t *testing.T) {
	b := NewBroker(nil)
	s := NewSession(uuid.New(), 1)
	b.Add(s)

	b.Stop()
	b.Stop()

	<-s.Done()
	assert.Equal(t, 0, b.Users())
	assert.False(t, b.Add(NewSession(uuid.New(), 1)))
}

func TestBroker_UnencodablePayload(t *testing.T) {
	b := NewBroker(nil)
	s := NewSession(uuid.New(), 1)
	b.Add(s)

	assert.Equal(t, 0, b.Send(s.UserID(), "toast", make(chan int)))
	assert.Equal(t, 0, b.Broadcast("toast", make(chan int)))
	assertEmpty(t, s)
}
