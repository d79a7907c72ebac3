package models

import "time"

// StoredValue persists one namespaced blob of application state as a
// key/value row. The settings envelope lives under a single well-known key.
type StoredValue struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
