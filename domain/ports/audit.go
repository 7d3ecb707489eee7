package ports

import "time"

// EventKind classifies audit events
type EventKind string

const (
	EventState   EventKind = "state"
	EventCommand EventKind = "command"
	EventPush    EventKind = "push"
	EventError   EventKind = "error"
)

// Event is one audit record. Command output is never part of Detail.
type Event struct {
	Timestamp time.Time `json:"ts"`
	ProfileID int       `json:"profile_id"`
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	// Detail is the state name for state events and the command text for
	// command events.
	Detail string `json:"detail"`
	Reason string `json:"reason,omitempty"`
}

// AuditLog receives session events. Record must not block on its own failure.
type AuditLog interface {
	Record(event Event)
}

// NopAuditLog discards every event.
type NopAuditLog struct{}

func (NopAuditLog) Record(Event) {}
