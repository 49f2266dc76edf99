package events

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

// EventType enumerates session lifecycle events.
type EventType string

const (
	EventSessionLoggedIn  EventType = "session_logged_in"
	EventSessionVerified  EventType = "session_verified"
	EventSessionLocked    EventType = "session_locked"
	EventSessionLoggedOut EventType = "session_logged_out"
	EventSessionResumed   EventType = "session_resumed"
	EventPINRejected      EventType = "pin_rejected"
	EventStoreSelected    EventType = "store_selected"
)

// Event is a session transition emitted by the state machine. FromState
// and ToState carry the machine states as plain strings so consumers do
// not need the session package.
type Event struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	ActorID   string           `json:"actor_id,omitempty"`
	ActorKind domain.ActorKind `json:"actor_kind,omitempty"`
	FromState string           `json:"from_state"`
	ToState   string           `json:"to_state"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   interface{}      `json:"payload,omitempty"`
}

// NewEvent stamps an event with a lexically sortable ID and the current
// time.
func NewEvent(eventType EventType, actor *domain.Actor, from, to string) Event {
	evt := Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		FromState: from,
		ToState:   to,
		Timestamp: time.Now(),
	}
	if actor != nil {
		evt.ActorID = actor.ID
		evt.ActorKind = actor.Kind
	}
	return evt
}

// NewEventWithPayload stamps an event carrying a payload.
func NewEventWithPayload(eventType EventType, actor *domain.Actor, from, to string, payload interface{}) Event {
	evt := NewEvent(eventType, actor, from, to)
	evt.Payload = payload
	return evt
}

// PINRejectedPayload payload.
type PINRejectedPayload struct {
	FailedAttempts int `json:"failed_attempts"`
	MaxAttempts    int `json:"max_attempts"`
}

// StoreSelectedPayload payload.
type StoreSelectedPayload struct {
	StoreID string `json:"store_id"`
}
