package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/saransh1220/ev-notify/internal/modules/notification/domain"
)

type PreferenceService struct {
	repo domain.PreferenceRepository
}

func NewPreferenceService(repo domain.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo}
}

// Get returns the caller's preferences, creating the defaults on first access.
func (s *PreferenceService) Get(ctx context.Context, userID uuid.UUID) (domain.Preference, error) {
	return s.repo.GetOrCreate(ctx, userID)
}

// Set applies a partial update and returns the merged preferences.
func (s *PreferenceService) Set(ctx context.Context, userID uuid.UUID, patch domain.PreferencePatch) (domain.Preference, error) {
	return s.repo.Update(ctx, userID, patch)
}
