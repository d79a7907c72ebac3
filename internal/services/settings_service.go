package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"memdash/internal/events"
	"memdash/internal/models"
	"memdash/internal/repositories"
)

// StorageKey is the namespaced key the settings envelope is stored under.
const StorageKey = "memory-app-settings"

// SchemaVersion tags the persisted envelope. A stored record with any
// other version is treated as absent so stale shapes never leak into a
// newer build.
const SchemaVersion = "1.0"

// SettingsService is the single source of truth for UserSettings. Reads
// are served from memory; every mutation writes through to storage
// immediately. Consumers subscribe for changes rather than polling.
type SettingsService interface {
	Startup(ctx context.Context)
	Load() models.UserSettings
	Get() models.UserSettings
	IsLoaded() bool
	UpdateSetting(key string, value interface{}) (*models.UserSettings, error)
	UpdateSettings(patch models.UserSettingsPatch) (*models.UserSettings, error)
	ResetSettings() models.UserSettings
	GetAPIBaseURL() string
	Subscribe(fn func(models.UserSettings)) func()
}

type settingsService struct {
	repo    repositories.SettingsRepository
	context context.Context

	mu          sync.RWMutex
	current     models.UserSettings
	loaded      bool
	subscribers map[int]func(models.UserSettings)
	nextSubID   int
}

func NewSettingsService(repo repositories.SettingsRepository) SettingsService {
	return &settingsService{
		repo:        repo,
		current:     models.DefaultUserSettings(),
		subscribers: make(map[int]func(models.UserSettings)),
	}
}

func (s *settingsService) Startup(ctx context.Context) {
	s.context = ctx
}

// settingsEnvelope is the persisted JSON shape. Data stays raw so a
// partially corrupt record can still be recovered field by field.
type settingsEnvelope struct {
	Version string          `json:"version"`
	Data    json.RawMessage `json:"data"`
	SavedAt string          `json:"savedAt"`
}

// storedSettings mirrors UserSettings with pointer fields so absent and
// present-but-invalid values can be told apart during hydration.
type storedSettings struct {
	QuestionTopK  *int     `json:"questionTopK"`
	MinSimilarity *float64 `json:"minSimilarity"`
	ServerURL     *string  `json:"serverUrl"`
	ServerPort    *int     `json:"serverPort"`
	VectorSetName *string  `json:"vectorSetName"`
}

// Load hydrates settings from storage exactly once. Corrupt or
// version-mismatched records are discarded (and removed) silently;
// individual out-of-range fields fall back to their defaults without
// invalidating the rest of the record.
func (s *settingsService) Load() models.UserSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.current
	}

	s.current = s.loadFromStorage()
	s.loaded = true
	return s.current
}

func (s *settingsService) loadFromStorage() models.UserSettings {
	defaults := models.DefaultUserSettings()

	record, err := s.repo.Get(s.ctx(), StorageKey)
	if err != nil {
		log.Printf("settings: storage read failed, using defaults: %v", err)
		return defaults
	}
	if record == nil {
		return defaults
	}

	var envelope settingsEnvelope
	if err := json.Unmarshal([]byte(record.Value), &envelope); err != nil {
		log.Printf("settings: discarding corrupt envelope %q: %v", record.Value, err)
		s.discardStored()
		return defaults
	}
	if envelope.Version != SchemaVersion {
		log.Printf("settings: discarding envelope with schema version %q (want %q)", envelope.Version, SchemaVersion)
		s.discardStored()
		return defaults
	}

	var stored storedSettings
	if err := json.Unmarshal(envelope.Data, &stored); err != nil {
		log.Printf("settings: discarding corrupt data %q: %v", string(envelope.Data), err)
		s.discardStored()
		return defaults
	}

	return sanitizeStored(stored)
}

func (s *settingsService) discardStored() {
	if err := s.repo.Delete(s.ctx(), StorageKey); err != nil {
		log.Printf("settings: failed to remove corrupt record: %v", err)
	}
}

// sanitizeStored merges each stored field with its default independently.
// A single bad field never discards the rest of the record.
func sanitizeStored(stored storedSettings) models.UserSettings {
	out := models.DefaultUserSettings()
	if stored.QuestionTopK != nil && validQuestionTopK(*stored.QuestionTopK) {
		out.QuestionTopK = *stored.QuestionTopK
	}
	if stored.MinSimilarity != nil && validMinSimilarity(*stored.MinSimilarity) {
		out.MinSimilarity = *stored.MinSimilarity
	}
	if stored.ServerURL != nil && validServerURL(*stored.ServerURL) {
		out.ServerURL = *stored.ServerURL
	}
	if stored.ServerPort != nil && validServerPort(*stored.ServerPort) {
		out.ServerPort = *stored.ServerPort
	}
	if stored.VectorSetName != nil && validVectorSetName(*stored.VectorSetName) {
		out.VectorSetName = *stored.VectorSetName
	}
	return out
}

func validQuestionTopK(v int) bool      { return v >= 1 && v <= 50 }
func validMinSimilarity(v float64) bool { return v >= 0.0 && v <= 1.0 }
func validServerPort(v int) bool        { return v >= 1 && v <= 65535 }
func validVectorSetName(v string) bool  { return strings.TrimSpace(v) != "" }

func validServerURL(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

func (s *settingsService) Get() models.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *settingsService) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// UpdateSetting replaces a single field by its JSON name. Values arrive
// from the frontend as JSON scalars, so numbers are coerced from float64.
func (s *settingsService) UpdateSetting(key string, value interface{}) (*models.UserSettings, error) {
	var patch models.UserSettingsPatch

	switch key {
	case "questionTopK":
		n, ok := toInt(value)
		if !ok {
			return nil, fmt.Errorf("questionTopK must be a number")
		}
		patch.QuestionTopK = &n
	case "minSimilarity":
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("minSimilarity must be a number")
		}
		patch.MinSimilarity = &f
	case "serverUrl":
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("serverUrl must be a string")
		}
		patch.ServerURL = &str
	case "serverPort":
		n, ok := toInt(value)
		if !ok {
			return nil, fmt.Errorf("serverPort must be a number")
		}
		patch.ServerPort = &n
	case "vectorSetName":
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("vectorSetName must be a string")
		}
		patch.VectorSetName = &str
	default:
		return nil, fmt.Errorf("unknown setting %q", key)
	}

	return s.UpdateSettings(patch)
}

// UpdateSettings merges all provided fields atomically in one persisted
// write. Invalid values reject the whole update; a failed write leaves
// memory correct but not durable, which is logged and accepted.
func (s *settingsService) UpdateSettings(patch models.UserSettingsPatch) (*models.UserSettings, error) {
	s.mu.Lock()

	next := s.current
	if patch.QuestionTopK != nil {
		if !validQuestionTopK(*patch.QuestionTopK) {
			s.mu.Unlock()
			return nil, fmt.Errorf("questionTopK must be between 1 and 50")
		}
		next.QuestionTopK = *patch.QuestionTopK
	}
	if patch.MinSimilarity != nil {
		if !validMinSimilarity(*patch.MinSimilarity) {
			s.mu.Unlock()
			return nil, fmt.Errorf("minSimilarity must be between 0.0 and 1.0")
		}
		next.MinSimilarity = *patch.MinSimilarity
	}
	if patch.ServerURL != nil {
		if !validServerURL(*patch.ServerURL) {
			s.mu.Unlock()
			return nil, fmt.Errorf("serverUrl must start with http:// or https://")
		}
		next.ServerURL = *patch.ServerURL
	}
	if patch.ServerPort != nil {
		if !validServerPort(*patch.ServerPort) {
			s.mu.Unlock()
			return nil, fmt.Errorf("serverPort must be between 1 and 65535")
		}
		next.ServerPort = *patch.ServerPort
	}
	if patch.VectorSetName != nil {
		if !validVectorSetName(*patch.VectorSetName) {
			s.mu.Unlock()
			return nil, fmt.Errorf("vectorSetName must not be empty")
		}
		next.VectorSetName = *patch.VectorSetName
	}

	s.current = next
	s.persistLocked()
	s.mu.Unlock()

	s.notify(next)
	events.Emit(s.ctx(), events.SettingsChanged, events.NewInfo("settings updated"))
	return &next, nil
}

// ResetSettings overwrites the record with hard-coded defaults.
func (s *settingsService) ResetSettings() models.UserSettings {
	s.mu.Lock()
	s.current = models.DefaultUserSettings()
	s.persistLocked()
	snapshot := s.current
	s.mu.Unlock()

	s.notify(snapshot)
	events.Emit(s.ctx(), events.SettingsReset, events.NewInfo("settings reset to defaults"))
	return snapshot
}

// GetAPIBaseURL derives the backend target from the current settings.
func (s *settingsService) GetAPIBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("%s:%d", s.current.ServerURL, s.current.ServerPort)
}

// Subscribe registers a change listener and returns its unsubscribe func.
func (s *settingsService) Subscribe(fn func(models.UserSettings)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *settingsService) notify(snapshot models.UserSettings) {
	s.mu.RLock()
	fns := make([]func(models.UserSettings), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// persistLocked writes the envelope through to storage. Write failures are
// logged, never surfaced; the in-memory record stays authoritative.
func (s *settingsService) persistLocked() {
	data, err := json.Marshal(s.current)
	if err != nil {
		log.Printf("settings: failed to marshal record: %v", err)
		return
	}
	envelope := settingsEnvelope{
		Version: SchemaVersion,
		Data:    data,
		SavedAt: time.Now().Format(time.RFC3339),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("settings: failed to marshal envelope: %v", err)
		return
	}
	if err := s.repo.Put(s.ctx(), StorageKey, string(payload)); err != nil {
		log.Printf("settings: failed to persist: %v", err)
	}
}

func (s *settingsService) ctx() context.Context {
	if s.context != nil {
		return s.context
	}
	return context.Background()
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
