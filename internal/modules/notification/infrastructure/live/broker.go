package live

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/modules/notification/infrastructure/metrics"
)

// Broker keeps the live sessions of this process keyed by user. It is the
// best-effort "who is reachable right now" view; it never decides delivery state.
type Broker struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*Session]struct{}
	stopped  bool
	logger   *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		sessions: make(map[uuid.UUID]map[*Session]struct{}),
		logger:   logger,
	}
}

// Add registers s. It returns false after Stop.
func (b *Broker) Add(s *Session) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return false
	}
	set, ok := b.sessions[s.userID]
	if !ok {
		set = make(map[*Session]struct{})
		b.sessions[s.userID] = set
	}
	if _, dup := set[s]; !dup {
		set[s] = struct{}{}
		metrics.LiveSessions.Inc()
	}
	b.logger.Debug("live session registered", "user_id", s.userID, "sessions", len(set))
	return true
}

// Remove deregisters and closes s. The user entry goes away with its last session.
func (b *Broker) Remove(s *Session) {
	b.mu.Lock()
	if set, ok := b.sessions[s.userID]; ok {
		if _, present := set[s]; present {
			delete(set, s)
			metrics.LiveSessions.Dec()
			b.logger.Debug("live session unregistered", "user_id", s.userID, "sessions", len(set))
		}
		if len(set) == 0 {
			delete(b.sessions, s.userID)
		}
	}
	b.mu.Unlock()
	s.Close()
}

// Send delivers payload as event to every session of userID and returns how many
// sessions accepted it. No session is not an error.
func (b *Broker) Send(userID uuid.UUID, event string, payload any) int {
	ev, err := NewEvent(event, payload)
	if err != nil {
		b.logger.Error("live event encode failed", "event", event, "error", err)
		return 0
	}
	return b.Deliver(userID, ev)
}

// Broadcast delivers payload as event to every connected session.
func (b *Broker) Broadcast(event string, payload any) int {
	ev, err := NewEvent(event, payload)
	if err != nil {
		b.logger.Error("live event encode failed", "event", event, "error", err)
		return 0
	}
	return b.DeliverAll(ev)
}

// Deliver pushes an already encoded event to the sessions of userID.
func (b *Broker) Deliver(userID uuid.UUID, ev Event) int {
	b.mu.RLock()
	targets := make([]*Session, 0, len(b.sessions[userID]))
	for s := range b.sessions[userID] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()
	return b.offer(targets, ev)
}

// DeliverAll pushes an already encoded event to every session.
func (b *Broker) DeliverAll(ev Event) int {
	b.mu.RLock()
	var targets []*Session
	for _, set := range b.sessions {
		for s := range set {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()
	return b.offer(targets, ev)
}

func (b *Broker) offer(targets []*Session, ev Event) int {
	delivered := 0
	for _, s := range targets {
		if s.Offer(ev) {
			delivered++
			metrics.LiveSends.WithLabelValues(ev.Name, "ok").Inc()
			continue
		}
		// A session that cannot take the frame is treated as gone.
		metrics.LiveSends.WithLabelValues(ev.Name, "dropped").Inc()
		b.logger.Warn("live session dropped", "user_id", s.userID, "event", ev.Name)
		b.Remove(s)
	}
	return delivered
}

// Sessions reports the number of open sessions of userID.
func (b *Broker) Sessions(userID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions[userID])
}

// Users reports how many users have at least one open session.
func (b *Broker) Users() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// Stop closes every session and refuses new ones.
func (b *Broker) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	all := b.sessions
	b.sessions = make(map[uuid.UUID]map[*Session]struct{})
	b.mu.Unlock()

	b.logger.Info("stopping live broker", "users", len(all))
	for _, set := range all {
		for s := range set {
			metrics.LiveSessions.Dec()
			s.Close()
		}
	}
}
