package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
	"github.com/saransh1220/ev-notify/internal/modules/notification/infrastructure/metrics"
	"github.com/saransh1220/ev-notify/pkg/eventbus"
)

// Live event names sent to client sessions.
const (
	EventToast = "toast"
	EventSync  = "sync"
	EventInit  = "init"
)

const DefaultPullLimit = 50

// DeliveryMode decides when an emitted notification counts as delivered.
type DeliveryMode string

const (
	// DeliveryConfirm marks delivery only after a live session accepted the toast.
	DeliveryConfirm DeliveryMode = "confirm"
	// DeliveryEager marks every unsuppressed emit delivered at creation.
	DeliveryEager DeliveryMode = "eager"
)

// Notifier pushes live events to connected sessions and reports how many took them.
type Notifier interface {
	Send(userID uuid.UUID, event string, payload any) int
	Broadcast(event string, payload any) int
}

type Renderer interface {
	Render(typ string, data any) (domain.Rendered, error)
}

// IdempotencyStore claims request keys. Claim returns false when key was seen before.
// Release forgets a claimed key so a failed request can be retried.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Deps struct {
	Preferences   domain.PreferenceRepository
	Notifications domain.NotificationRepository
	Deliveries    domain.DeliveryRepository
	Renderer      Renderer
	Notifier      Notifier
	Bus           *eventbus.Bus
	Idempotency   IdempotencyStore
	Logger        *slog.Logger
}

type Options struct {
	PullLimit    int
	EmitDelivery DeliveryMode
	Now          func() time.Time
}

type EmitInput struct {
	UserID         uuid.UUID
	Type           string
	Data           domain.Payload
	IdempotencyKey string
}

type CreateResult struct {
	ID         uuid.UUID `json:"id"`
	Suppressed bool      `json:"suppressed"`
}

type NotificationService struct {
	prefs         domain.PreferenceRepository
	notifications domain.NotificationRepository
	deliveries    domain.DeliveryRepository
	renderer      Renderer
	notifier      Notifier
	bus           *eventbus.Bus
	idempotency   IdempotencyStore
	logger        *slog.Logger

	pullLimit int
	mode      DeliveryMode
	now       func() time.Time
}

func NewNotificationService(deps Deps, opts Options) *NotificationService {
	if opts.PullLimit <= 0 {
		opts.PullLimit = DefaultPullLimit
	}
	if opts.EmitDelivery != DeliveryEager {
		opts.EmitDelivery = DeliveryConfirm
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &NotificationService{
		prefs:         deps.Preferences,
		notifications: deps.Notifications,
		deliveries:    deps.Deliveries,
		renderer:      deps.Renderer,
		notifier:      deps.Notifier,
		bus:           deps.Bus,
		idempotency:   deps.Idempotency,
		logger:        deps.Logger,
		pullLimit:     opts.PullLimit,
		mode:          opts.EmitDelivery,
		now:           opts.Now,
	}
}

// Emit renders and stores a notification for one user and pushes it to the user's
// live sessions unless their preferences suppress toasts.
func (s *NotificationService) Emit(ctx context.Context, in EmitInput) (CreateResult, error) {
	key := "emit:" + in.IdempotencyKey
	claimed, err := s.claim(ctx, key, in.IdempotencyKey != "")
	if err != nil {
		return CreateResult{}, err
	}

	res, err := s.emit(ctx, in)
	if err != nil && claimed {
		s.release(ctx, key)
	}
	return res, err
}

func (s *NotificationService) emit(ctx context.Context, in EmitInput) (CreateResult, error) {
	pref, err := s.prefs.GetOrCreate(ctx, in.UserID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("resolve preference: %w", err)
	}

	data, err := in.Data.Decode()
	if err != nil {
		return CreateResult{}, err
	}
	rendered, err := s.renderer.Render(in.Type, data)
	if err != nil {
		return CreateResult{}, err
	}

	now := s.now()
	n := &domain.Notification{
		ID:         uuid.New(),
		UserID:     in.UserID,
		Target:     domain.TargetUser,
		Type:       in.Type,
		Data:       in.Data,
		Rendered:   rendered,
		Suppressed: !pref.ToastEnabled(),
		CreatedAt:  now,
	}
	if s.mode == DeliveryEager && !n.Suppressed {
		n.DeliveredAt = &now
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return CreateResult{}, fmt.Errorf("store notification: %w", err)
	}

	sent := 0
	if !n.Suppressed {
		sent = s.notifier.Send(in.UserID, EventToast, rendered)
		if s.mode == DeliveryConfirm && sent > 0 {
			s.markDelivered(ctx, n.ID, now)
		}
	}

	s.publish(metrics.EventCreated, metrics.Created{Source: "emit", Suppressed: n.Suppressed, LiveSent: sent})
	s.logger.Info("notification emitted",
		"id", n.ID, "user_id", in.UserID, "type", in.Type, "suppressed", n.Suppressed, "live_sessions", sent)
	return CreateResult{ID: n.ID, Suppressed: n.Suppressed}, nil
}

// Push stores a notification the caller raised for itself. It is never sent live;
// the next Pull surfaces it.
func (s *NotificationService) Push(ctx context.Context, userID uuid.UUID, req PushRequest) (CreateResult, error) {
	rendered, err := req.Resolve(s.renderer)
	if err != nil {
		return CreateResult{}, err
	}

	pref, err := s.prefs.GetOrCreate(ctx, userID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("resolve preference: %w", err)
	}

	n := &domain.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		Target:     domain.TargetUser,
		Type:       rendered.Type,
		Data:       req.Data,
		Rendered:   rendered,
		Suppressed: !pref.ToastEnabled(),
		CreatedAt:  s.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return CreateResult{}, fmt.Errorf("store notification: %w", err)
	}

	s.publish(metrics.EventCreated, metrics.Created{Source: "push", Suppressed: n.Suppressed})
	return CreateResult{ID: n.ID, Suppressed: n.Suppressed}, nil
}

// Broadcast stores one notification for every user and nudges connected clients to pull.
func (s *NotificationService) Broadcast(ctx context.Context, issuer uuid.UUID, typ string, payload domain.Payload) (uuid.UUID, error) {
	data, err := payload.Decode()
	if err != nil {
		return uuid.Nil, err
	}
	rendered, err := s.renderer.Render(typ, data)
	if err != nil {
		return uuid.Nil, err
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    issuer,
		Target:    domain.TargetAll,
		Type:      typ,
		Data:      payload,
		Rendered:  rendered,
		CreatedAt: s.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return uuid.Nil, fmt.Errorf("store broadcast: %w", err)
	}

	sent := s.notifier.Broadcast(EventSync, map[string]string{"id": n.ID.String()})
	s.publish(metrics.EventCreated, metrics.Created{Source: "broadcast", LiveSent: sent})
	s.logger.Info("notification broadcast", "id", n.ID, "issuer", issuer, "type", typ, "live_sessions", sent)
	return n.ID, nil
}

// Pull hands out the caller's undelivered notifications, personal ones first, each
// group oldest first. Returned items are marked delivered. The result is never nil.
func (s *NotificationService) Pull(ctx context.Context, userID uuid.UUID) ([]domain.Rendered, error) {
	out := []domain.Rendered{}

	pref, err := s.prefs.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve preference: %w", err)
	}
	if !pref.ToastEnabled() {
		return out, nil
	}

	now := s.now()
	personal, err := s.notifications.ClaimPersonal(ctx, userID, s.pullLimit, now)
	if err != nil {
		return nil, fmt.Errorf("claim personal notifications: %w", err)
	}
	for _, n := range personal {
		out = append(out, n.Rendered)
	}

	// Claimed personal rows are already marked, so a broadcast failure must not lose them.
	broadcasts, err := s.claimBroadcasts(ctx, userID, now)
	if err != nil {
		s.logger.Error("pull broadcasts failed", "user_id", userID, "error", err)
	}
	for _, n := range broadcasts {
		out = append(out, n.Rendered)
	}

	s.publish(metrics.EventPulled, metrics.Pulled{Personal: len(personal), Broadcast: len(broadcasts)})
	return out, nil
}

func (s *NotificationService) claimBroadcasts(ctx context.Context, userID uuid.UUID, at time.Time) ([]domain.Notification, error) {
	pending, err := s.notifications.PendingBroadcasts(ctx, userID, s.pullLimit)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(pending))
	for i, n := range pending {
		ids[i] = n.ID
	}
	inserted, err := s.deliveries.Record(ctx, userID, ids, at)
	if err != nil {
		return nil, err
	}

	won := make(map[uuid.UUID]struct{}, len(inserted))
	for _, id := range inserted {
		won[id] = struct{}{}
	}
	claimed := make([]domain.Notification, 0, len(inserted))
	for _, n := range pending {
		if _, ok := won[n.ID]; ok {
			claimed = append(claimed, n)
		}
	}
	return claimed, nil
}

func (s *NotificationService) markDelivered(ctx context.Context, id uuid.UUID, at time.Time) {
	err := s.notifications.MarkDelivered(ctx, id, at)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotificationNotFound):
		// A concurrent pull already claimed it.
		s.logger.Debug("notification already delivered", "id", id)
	default:
		s.logger.Error("mark delivered failed", "id", id, "error", err)
	}
}

// claim rejects a repeated idempotency key. Store errors let the request through.
// claim reports whether this call now holds key. Store errors fail open.
func (s *NotificationService) claim(ctx context.Context, key string, enabled bool) (bool, error) {
	if !enabled || s.idempotency == nil {
		return false, nil
	}
	first, err := s.idempotency.Claim(ctx, key)
	if err != nil {
		s.logger.Warn("idempotency check failed", "key", key, "error", err)
		return false, nil
	}
	if !first {
		return false, domain.ErrDuplicateRequest
	}
	return true, nil
}

func (s *NotificationService) release(ctx context.Context, key string) {
	if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("idempotency release failed", "key", key, "error", err)
	}
}

func (s *NotificationService) publish(name string, payload any) {
	s.bus.Publish(eventbus.Event{Name: name, Payload: payload})
}
