package postgres

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
)

const notificationColumns = `id, seq, user_id, target, type, data, rendered, suppressed, delivered_at, created_at`

type PgNotificationRepository struct {
	db *sqlx.DB
}

func NewPgNotificationRepository(db *sqlx.DB) *PgNotificationRepository {
	return &PgNotificationRepository{db: db}
}

// Create inserts n and fills its sequence number. A zero CreatedAt is set to now.
func (r *PgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Target == "" {
		n.Target = domain.TargetUser
	}

	query := `
		INSERT INTO notifications (id, user_id, target, type, data, rendered, suppressed, delivered_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq
	`
	return r.db.QueryRowxContext(ctx, query,
		n.ID, n.UserID, n.Target, n.Type, n.Data, n.Rendered, n.Suppressed, n.DeliveredAt, n.CreatedAt,
	).Scan(&n.Seq)
}

func (r *PgNotificationRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE notifications
		SET delivered_at = $2
		WHERE id = $1 AND delivered_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// ClaimPersonal marks and returns pending personal notifications in one statement.
// Rows locked by a concurrent claim are skipped, so a notification is handed out once.
func (r *PgNotificationRepository) ClaimPersonal(ctx context.Context, userID uuid.UUID, limit int, at time.Time) ([]domain.Notification, error) {
	query := `
		UPDATE notifications
		SET delivered_at = $3
		WHERE id IN (
			SELECT id FROM notifications
			WHERE user_id = $1
			  AND target = 'user'
			  AND suppressed = FALSE
			  AND delivered_at IS NULL
			ORDER BY created_at, seq
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + notificationColumns

	var items []domain.Notification
	if err := r.db.SelectContext(ctx, &items, query, userID, limit, at); err != nil {
		return nil, err
	}
	// RETURNING does not keep the subquery order.
	slices.SortStableFunc(items, compareCreated)
	return items, nil
}

func (r *PgNotificationRepository) PendingBroadcasts(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications n
		WHERE n.target = 'all'
		  AND n.suppressed = FALSE
		  AND NOT EXISTS (
			SELECT 1 FROM notification_deliveries d
			WHERE d.notification_id = n.id AND d.user_id = $1
		  )
		ORDER BY n.created_at, n.seq
		LIMIT $2
	`
	var items []domain.Notification
	if err := r.db.SelectContext(ctx, &items, query, userID, limit); err != nil {
		return nil, err
	}
	return items, nil
}

func compareCreated(a, b domain.Notification) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.Seq < b.Seq:
		return -1
	case a.Seq > b.Seq:
		return 1
	}
	return 0
}
