package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"memdash/internal/models"
)

// SettingsRepository persists namespaced state blobs. A missing key is not
// an error; Get returns nil so callers can substitute defaults.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*models.StoredValue, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*models.StoredValue, error) {
	if key == "" {
		return nil, fmt.Errorf("storage key is required")
	}
	var record models.StoredValue
	if err := r.db.WithContext(ctx).Where("key = ?", key).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *settingsRepository) Put(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("storage key is required")
	}
	record := models.StoredValue{
		Key:   key,
		Value: value,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&record).Error
}

func (r *settingsRepository) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("storage key is required")
	}
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.StoredValue{}).Error
}
