package event

import "time"

// EventType identifies the kind of store change.
type EventType string

const (
	// Entry lifecycle
	EntryAdded   EventType = "entry.added"
	EntryUpdated EventType = "entry.updated"
	EntryDeleted EventType = "entry.deleted"

	// Tag registry
	TagAdded   EventType = "tag.added"
	TagRemoved EventType = "tag.removed"

	// Store
	StoreLoaded        EventType = "store.loaded"
	StorePersistFailed EventType = "store.persist_failed"
)

// AllTypes lists every event type the store emits.
var AllTypes = []EventType{
	EntryAdded, EntryUpdated, EntryDeleted,
	TagAdded, TagRemoved,
	StoreLoaded, StorePersistFailed,
}

// Event carries data about a store change.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]interface{}) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	}
}
