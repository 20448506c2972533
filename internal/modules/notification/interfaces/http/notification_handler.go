package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/gateway/middleware"
	"github.com/saransh1220/ev-notify/internal/modules/notification/application"
	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
	"github.com/saransh1220/ev-notify/internal/modules/notification/infrastructure/live"
	"github.com/saransh1220/ev-notify/internal/shared/utils"
)

const maxBodyBytes = 64 << 10

type NotificationService interface {
	Emit(ctx context.Context, in application.EmitInput) (application.CreateResult, error)
	Push(ctx context.Context, userID uuid.UUID, req application.PushRequest) (application.CreateResult, error)
	Pull(ctx context.Context, userID uuid.UUID) ([]domain.Rendered, error)
	Broadcast(ctx context.Context, issuer uuid.UUID, typ string, data domain.Payload) (uuid.UUID, error)
}

type PreferenceService interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.Preference, error)
	Set(ctx context.Context, userID uuid.UUID, patch domain.PreferencePatch) (domain.Preference, error)
}

// LiveOptions tunes the streaming endpoints.
type LiveOptions struct {
	KeepAlive     time.Duration
	SessionBuffer int
}

type NotificationHandler struct {
	notifications NotificationService
	preferences   PreferenceService
	broker        *live.Broker
	opts          LiveOptions
	logger        *slog.Logger
}

func NewNotificationHandler(notifications NotificationService, preferences PreferenceService, broker *live.Broker, opts LiveOptions, logger *slog.Logger) *NotificationHandler {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = live.DefaultKeepAlive
	}
	if opts.SessionBuffer <= 0 {
		opts.SessionBuffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		notifications: notifications,
		preferences:   preferences,
		broker:        broker,
		opts:          opts,
		logger:        logger,
	}
}

type emitRequest struct {
	UserID uuid.UUID      `json:"userId"`
	Type   string         `json:"type"`
	Data   domain.Payload `json:"data"`
}

type broadcastRequest struct {
	Type string         `json:"type"`
	Data domain.Payload `json:"data"`
}

func (h *NotificationHandler) GetPrefs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	pref, err := h.preferences.Get(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "get preferences", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"data": pref})
}

func (h *NotificationHandler) SetPrefs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var patch domain.PreferencePatch
	if err := decodeBody(w, r, &patch); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	pref, err := h.preferences.Set(r.Context(), userID, patch)
	if err != nil {
		h.writeServiceError(w, "set preferences", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"data": pref})
}

// Stream opens a server-sent event stream. The new session gets an init event with
// the caller's preferences before any toast.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	live.ServeSSE(w, r, h.broker, s, h.opts.KeepAlive, h.logger)
}

// Subscribe is the WebSocket flavour of Stream.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	s, ok := h.openSession(w, r)
	if !ok {
		return
	}
	live.ServeWS(w, r, h.broker, s, h.opts.KeepAlive, h.logger)
}

func (h *NotificationHandler) openSession(w http.ResponseWriter, r *http.Request) (*live.Session, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return nil, false
	}

	pref, err := h.preferences.Get(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "open live session", err)
		return nil, false
	}
	init, err := live.NewEvent(application.EventInit, pref)
	if err != nil {
		h.writeServiceError(w, "open live session", err)
		return nil, false
	}

	s := live.NewSession(userID, h.opts.SessionBuffer)
	s.Offer(init)
	return s, true
}

func (h *NotificationHandler) Emit(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if err := decodeBody(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.UserID == uuid.Nil || req.Type == "" {
		utils.WriteError(w, http.StatusBadRequest, "userId and type are required", nil)
		return
	}

	res, err := h.notifications.Emit(r.Context(), application.EmitInput{
		UserID:         req.UserID,
		Type:           req.Type,
		Data:           req.Data,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.writeServiceError(w, "emit notification", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]any{"data": res})
}

func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	issuer, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req broadcastRequest
	if err := decodeBody(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Type == "" {
		utils.WriteError(w, http.StatusBadRequest, "type is required", nil)
		return
	}

	id, err := h.notifications.Broadcast(r.Context(), issuer, req.Type, req.Data)
	if err != nil {
		h.writeServiceError(w, "broadcast notification", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]any{"data": map[string]uuid.UUID{"id": id}})
}

func (h *NotificationHandler) Pull(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	items, err := h.notifications.Pull(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "pull notifications", err)
		return
	}
	if items == nil {
		items = []domain.Rendered{}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *NotificationHandler) Push(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req application.PushRequest
	if err := decodeBody(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.notifications.Push(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, "push notification", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]any{"data": res})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func (h *NotificationHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPushBody):
		utils.WriteError(w, http.StatusBadRequest, domain.ErrInvalidPushBody.Error(), nil)
	case errors.Is(err, domain.ErrInvalidPayload), errors.Is(err, domain.ErrInvalidVariant):
		utils.WriteError(w, http.StatusBadRequest, "invalid notification", err)
	case errors.Is(err, domain.ErrDuplicateRequest):
		utils.WriteError(w, http.StatusConflict, "duplicate request", err)
	case errors.Is(err, domain.ErrNotificationNotFound):
		utils.WriteError(w, http.StatusNotFound, "notification not found", err)
	default:
		h.logger.Error(op+" failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
