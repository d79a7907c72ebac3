package services

import (
	"context"

	"gorm.io/gorm"

	"memdash/internal/repositories"
)

// DbServices aggregates the services backed by the database.
type DbServices struct {
	Settings SettingsService
}

// NewDbServices constructs the service container using repositories backed by db.
func NewDbServices(db *gorm.DB) *DbServices {
	settingsRepo := repositories.NewSettingsRepository(db)

	return &DbServices{
		Settings: NewSettingsService(settingsRepo),
	}
}

// StartDbServices hands the runtime context to every db-backed service and
// hydrates settings so dependents see loaded values.
func (s *DbServices) StartDbServices(ctx context.Context) {
	s.Settings.Startup(ctx)
	s.Settings.Load()
}
