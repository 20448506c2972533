package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PgDeliveryRepository struct {
	db *sqlx.DB
}

func NewPgDeliveryRepository(db *sqlx.DB) *PgDeliveryRepository {
	return &PgDeliveryRepository{db: db}
}

// Record inserts one delivery row per id. The unique (notification_id, user_id)
// constraint decides the winner when two pulls race; only ids inserted here come back.
func (r *PgDeliveryRepository) Record(ctx context.Context, userID uuid.UUID, notificationIDs []uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	if len(notificationIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(notificationIDs))
	for i, id := range notificationIDs {
		ids[i] = id.String()
	}

	query := `
		INSERT INTO notification_deliveries (notification_id, user_id, delivered_at)
		SELECT unnest($2::uuid[]), $1, $3
		ON CONFLICT (notification_id, user_id) DO NOTHING
		RETURNING notification_id
	`
	var inserted []uuid.UUID
	if err := r.db.SelectContext(ctx, &inserted, query, userID, pq.Array(ids), at); err != nil {
		return nil, err
	}
	return inserted, nil
}
