package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInfo    EventType = "info"
	EventWarn    EventType = "warn"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

// Event names the frontend subscribes to.
const (
	SettingsChanged  = "events:settings:changed"
	SettingsReset    = "events:settings:reset"
	LLMConfigSaved   = "events:llm-config:saved"
	MetricsRefreshed = "events:metrics:refreshed"
)

// AppEvent is the payload emitted to the frontend for state-change
// notifications.
type AppEvent struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func NewEvent(eventType EventType, message string) AppEvent {
	return AppEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewInfo creates an info AppEvent.
func NewInfo(message string) AppEvent {
	return NewEvent(EventInfo, message)
}

// NewError creates an error AppEvent.
func NewError(message string) AppEvent {
	return NewEvent(EventError, message)
}

// NewSuccess creates a success AppEvent.
func NewSuccess(message string) AppEvent {
	return NewEvent(EventSuccess, message)
}
