package live

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event is one named frame for a live client. Data is already JSON encoded.
type Event struct {
	Name string
	Data json.RawMessage
}

// NewEvent encodes payload into an Event.
func NewEvent(name string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: b}, nil
}

// Session is one open live connection of a user. A transport drains Events until
// Done is closed.
type Session struct {
	userID uuid.UUID
	send   chan Event
	done   chan struct{}
	once   sync.Once
}

func NewSession(userID uuid.UUID, buffer int) *Session {
	if buffer < 1 {
		buffer = 1
	}
	return &Session{
		userID: userID,
		send:   make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

func (s *Session) UserID() uuid.UUID { return s.userID }

func (s *Session) Events() <-chan Event { return s.send }

func (s *Session) Done() <-chan struct{} { return s.done }

// Offer queues ev without blocking. It reports false when the session is closed
// or its buffer is full.
func (s *Session) Offer(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}

// Close is idempotent. The send channel is never closed so a racing Offer cannot panic.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}
