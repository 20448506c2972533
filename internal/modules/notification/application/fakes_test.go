package application

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
)

// memStore is an in-memory stand-in for the three Postgres repositories with the
// same claim semantics.
type memStore struct {
	mu          sync.Mutex
	prefs       map[uuid.UUID]domain.Preference
	prefInserts int
	rows        []*domain.Notification
	seq         int64
	deliveries  map[[2]uuid.UUID]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		prefs:      make(map[uuid.UUID]domain.Preference),
		deliveries: make(map[[2]uuid.UUID]time.Time),
	}
}

func (m *memStore) GetOrCreate(_ context.Context, userID uuid.UUID) (domain.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prefs[userID]; ok {
		return p, nil
	}
	p := domain.DefaultPreference(userID)
	m.prefs[userID] = p
	m.prefInserts++
	return p, nil
}

func (m *memStore) Update(_ context.Context, userID uuid.UUID, patch domain.PreferencePatch) (domain.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		p = domain.DefaultPreference(userID)
		m.prefInserts++
	}
	p = patch.Apply(p)
	m.prefs[userID] = p
	return p, nil
}

func (m *memStore) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	n.Seq = m.seq
	cp := *n
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memStore) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.rows {
		if n.ID == id && n.DeliveredAt == nil {
			n.DeliveredAt = &at
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (m *memStore) ordered() []*domain.Notification {
	rows := slices.Clone(m.rows)
	slices.SortStableFunc(rows, func(a, b *domain.Notification) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})
	return rows
}

func (m *memStore) ClaimPersonal(_ context.Context, userID uuid.UUID, limit int, at time.Time) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.ordered() {
		if len(out) == limit {
			break
		}
		if n.UserID == userID && n.Target == domain.TargetUser && !n.Suppressed && n.DeliveredAt == nil {
			n.DeliveredAt = &at
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *memStore) PendingBroadcasts(_ context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.ordered() {
		if len(out) == limit {
			break
		}
		if n.Target != domain.TargetAll || n.Suppressed {
			continue
		}
		if _, seen := m.deliveries[[2]uuid.UUID{n.ID, userID}]; !seen {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *memStore) Record(_ context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inserted []uuid.UUID
	for _, id := range ids {
		key := [2]uuid.UUID{id, userID}
		if _, ok := m.deliveries[key]; ok {
			continue
		}
		m.deliveries[key] = at
		inserted = append(inserted, id)
	}
	return inserted, nil
}

func (m *memStore) row(id uuid.UUID) *domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.rows {
		if n.ID == id {
			cp := *n
			return &cp
		}
	}
	return nil
}

type sent struct {
	UserID  uuid.UUID
	Event   string
	Payload any
}

// recordingNotifier records every send and claims reach sessions took it.
type recordingNotifier struct {
	mu    sync.Mutex
	sends []sent
	reach int
}

func (n *recordingNotifier) Send(userID uuid.UUID, event string, payload any) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, sent{UserID: userID, Event: event, Payload: payload})
	return n.reach
}

func (n *recordingNotifier) Broadcast(event string, payload any) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, sent{Event: event, Payload: payload})
	return n.reach
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

type idempotencyMock struct {
	claimFn   func(context.Context, string) (bool, error)
	releaseFn func(context.Context, string) error
}

func (m idempotencyMock) Claim(ctx context.Context, key string) (bool, error) {
	return m.claimFn(ctx, key)
}

func (m idempotencyMock) Release(ctx context.Context, key string) error {
	if m.releaseFn == nil {
		return nil
	}
	return m.releaseFn(ctx, key)
}

// keySet behaves like SETNX/DEL over a map.
type keySet struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newKeySet() *keySet { return &keySet{keys: map[string]bool{}} }

func (k *keySet) Claim(_ context.Context, key string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.keys[key] {
		return false, nil
	}
	k.keys[key] = true
	return true, nil
}

func (k *keySet) Release(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, key)
	return nil
}

type notificationRepoMock struct {
	createFn            func(context.Context, *domain.Notification) error
	markDeliveredFn     func(context.Context, uuid.UUID, time.Time) error
	claimPersonalFn     func(context.Context, uuid.UUID, int, time.Time) ([]domain.Notification, error)
	pendingBroadcastsFn func(context.Context, uuid.UUID, int) ([]domain.Notification, error)
}

func (m notificationRepoMock) Create(ctx context.Context, n *domain.Notification) error {
	return m.createFn(ctx, n)
}

func (m notificationRepoMock) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.markDeliveredFn(ctx, id, at)
}

func (m notificationRepoMock) ClaimPersonal(ctx context.Context, userID uuid.UUID, limit int, at time.Time) ([]domain.Notification, error) {
	return m.claimPersonalFn(ctx, userID, limit, at)
}

func (m notificationRepoMock) PendingBroadcasts(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	return m.pendingBroadcastsFn(ctx, userID, limit)
}

type preferenceRepoMock struct {
	getOrCreateFn func(context.Context, uuid.UUID) (domain.Preference, error)
	updateFn      func(context.Context, uuid.UUID, domain.PreferencePatch) (domain.Preference, error)
}

func (m preferenceRepoMock) GetOrCreate(ctx context.Context, userID uuid.UUID) (domain.Preference, error) {
	return m.getOrCreateFn(ctx, userID)
}

func (m preferenceRepoMock) Update(ctx context.Context, userID uuid.UUID, patch domain.PreferencePatch) (domain.Preference, error) {
	return m.updateFn(ctx, userID, patch)
}

type deliveryRepoMock struct {
	recordFn func(context.Context, uuid.UUID, []uuid.UUID, time.Time) ([]uuid.UUID, error)
}

func (m deliveryRepoMock) Record(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	return m.recordFn(ctx, userID, ids, at)
}

// tickingClock advances one second per call so creation order is strict.
func tickingClock() func() time.Time {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}
