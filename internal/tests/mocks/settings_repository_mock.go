package mocks

import (
	"context"

	"memdash/internal/models"
)

type SettingsRepositoryMock struct {
	GetFunc    func(ctx context.Context, key string) (*models.StoredValue, error)
	PutFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error
}

func (m *SettingsRepositoryMock) Get(ctx context.Context, key string) (*models.StoredValue, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, nil
}

func (m *SettingsRepositoryMock) Put(ctx context.Context, key, value string) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, value)
	}
	return nil
}

func (m *SettingsRepositoryMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

// NewMemorySettingsRepository returns a mock backed by an in-memory map,
// for round-trip tests that simulate a reload against the same storage.
func NewMemorySettingsRepository() (*SettingsRepositoryMock, map[string]string) {
	store := make(map[string]string)
	mock := &SettingsRepositoryMock{
		GetFunc: func(ctx context.Context, key string) (*models.StoredValue, error) {
			value, ok := store[key]
			if !ok {
				return nil, nil
			}
			return &models.StoredValue{Key: key, Value: value}, nil
		},
		PutFunc: func(ctx context.Context, key, value string) error {
			store[key] = value
			return nil
		},
		DeleteFunc: func(ctx context.Context, key string) error {
			delete(store, key)
			return nil
		},
	}
	return mock, store
}
