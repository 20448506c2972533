package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PreferenceRepository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (Preference, error)
	Update(ctx context.Context, userID uuid.UUID, patch PreferencePatch) (Preference, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	// ClaimPersonal atomically marks up to limit undelivered personal notifications of
	// userID as delivered and returns them oldest first.
	ClaimPersonal(ctx context.Context, userID uuid.UUID, limit int, at time.Time) ([]Notification, error)
	// PendingBroadcasts returns up to limit unsuppressed broadcasts without a delivery
	// record for userID, oldest first.
	PendingBroadcasts(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
}

type DeliveryRepository interface {
	// Record inserts delivery records and returns the notification ids this call
	// actually inserted. Ids already recorded for userID are skipped silently.
	Record(ctx context.Context, userID uuid.UUID, notificationIDs []uuid.UUID, at time.Time) ([]uuid.UUID, error)
}
