package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	eventSource  = "cbe-service"
	eventVersion = "1.0"
)

// KeyChangeEvent is fired whenever a session writes to the shared persistent
// store. It carries the changed key and the new raw value so other open
// sessions can reconcile their local state. Origin identifies the writing
// session: like browser storage events, a session never reacts to its own
// writes. A delete is signalled with Deleted=true and an empty value.
type KeyChangeEvent struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Deleted   bool      `json:"deleted"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewKeyChange creates a key-change event for a write.
func NewKeyChange(origin, key, value string) *KeyChangeEvent {
	return &KeyChangeEvent{
		ID:        uuid.New().String(),
		Origin:    origin,
		Key:       key,
		Value:     value,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now(),
	}
}

// NewKeyDelete creates a key-change event for a delete.
func NewKeyDelete(origin, key string) *KeyChangeEvent {
	ev := NewKeyChange(origin, key, "")
	ev.Deleted = true
	return ev
}
