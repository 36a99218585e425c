package repository

import (
	"context"

	"presence-engine/internal/presencesettings/domain"
)

// Repository persists company presence settings.
type Repository interface {
	// GetByCompanyID returns the stored settings, or nil if none (caller applies defaults).
	GetByCompanyID(ctx context.Context, companyID string) (*domain.Settings, error)
	// Upsert saves or replaces the settings for the company.
	Upsert(ctx context.Context, companyID string, s *domain.Settings) error
}
