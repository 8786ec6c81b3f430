package lifecycle

import "time"

// EventType represents an orchestrator event category broadcast to subscribers.
type EventType string

const (
	// EventTypeServerState is emitted on every session state transition.
	EventTypeServerState EventType = "server.state"
	// EventTypeConfigChanged is emitted after a configuration update is applied.
	EventTypeConfigChanged EventType = "config.changed"
	// EventTypeNotification is emitted for user-visible notifications so UI
	// surfaces can render them alongside the desktop toast.
	EventTypeNotification EventType = "notification"
)

// Event is a typed notification published by the orchestrator event bus.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func newEvent(eventType EventType, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
