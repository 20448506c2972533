package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
)

const preferenceColumns = `user_id, muted, toast_enabled, email_enabled, created_at, updated_at`

type prefRow struct {
	UserID       uuid.UUID `db:"user_id"`
	Muted        bool      `db:"muted"`
	ToastEnabled bool      `db:"toast_enabled"`
	EmailEnabled bool      `db:"email_enabled"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (p prefRow) toDomain() domain.Preference {
	return domain.Preference{
		UserID:    p.UserID,
		Muted:     p.Muted,
		Channels:  domain.Channels{Toast: p.ToastEnabled, Email: p.EmailEnabled},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type PgPreferenceRepository struct {
	db *sqlx.DB
}

func NewPgPreferenceRepository(db *sqlx.DB) *PgPreferenceRepository {
	return &PgPreferenceRepository{db: db}
}

// GetOrCreate returns the stored preference, inserting the defaults on first access.
// Two first accesses racing end up with the same single row.
func (r *PgPreferenceRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (domain.Preference, error) {
	pref, err := r.get(ctx, userID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Preference{}, err
	}

	def := domain.DefaultPreference(userID)
	query := `
		INSERT INTO notification_preferences (user_id, muted, toast_enabled, email_enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING ` + preferenceColumns

	var row prefRow
	err = r.db.GetContext(ctx, &row, query, userID, def.Muted, def.Channels.Toast, def.Channels.Email)
	if errors.Is(err, sql.ErrNoRows) {
		// Another request inserted the row first.
		return r.get(ctx, userID)
	}
	if err != nil {
		return domain.Preference{}, err
	}
	return row.toDomain(), nil
}

// Update merges patch into the stored preference; absent fields keep their value.
// A user without a row gets the defaults with the patch applied.
func (r *PgPreferenceRepository) Update(ctx context.Context, userID uuid.UUID, patch domain.PreferencePatch) (domain.Preference, error) {
	muted, toast, email := patch.Fields()
	// lib/pq sends untyped parameters; without the casts COALESCE infers text.
	def := domain.DefaultPreference(userID)

	query := `
		INSERT INTO notification_preferences (user_id, muted, toast_enabled, email_enabled)
		VALUES ($1, COALESCE($2::boolean, $5::boolean), COALESCE($3::boolean, $6::boolean), COALESCE($4::boolean, $7::boolean))
		ON CONFLICT (user_id) DO UPDATE SET
			muted = COALESCE($2::boolean, notification_preferences.muted),
			toast_enabled = COALESCE($3::boolean, notification_preferences.toast_enabled),
			email_enabled = COALESCE($4::boolean, notification_preferences.email_enabled),
			updated_at = NOW()
		RETURNING ` + preferenceColumns

	var row prefRow
	err := r.db.GetContext(ctx, &row, query,
		userID, muted, toast, email,
		def.Muted, def.Channels.Toast, def.Channels.Email,
	)
	if err != nil {
		return domain.Preference{}, err
	}
	return row.toDomain(), nil
}

func (r *PgPreferenceRepository) get(ctx context.Context, userID uuid.UUID) (domain.Preference, error) {
	var row prefRow
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return domain.Preference{}, err
	}
	return row.toDomain(), nil
}
