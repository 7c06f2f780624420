// Package signal carries change notifications between contexts observing the
// same backing store. A context is one independent runtime (a process, or a
// test-constructed engine.Runtime) mirroring the store; events describe
// writes it did not perform itself.
package signal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event reports that a key's raw value changed in a backing store.
type Event struct {
	ID        string    `json:"id"`
	Store     string    `json:"store"`            // backing.Store ID the write targeted
	Origin    string    `json:"origin,omitempty"` // context that wrote; empty for external writers
	Key       string    `json:"key"`
	Raw       string    `json:"raw,omitempty"` // new raw value; meaningless when Removed
	Removed   bool      `json:"removed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUpdate builds an event reporting that key now holds raw in store.
// origin identifies the writing context; pass an empty origin for writes
// observed from outside the process.
func NewUpdate(store, origin, key, raw string) Event {
	return Event{
		ID:        generateID(),
		Store:     store,
		Origin:    origin,
		Key:       key,
		Raw:       raw,
		Timestamp: time.Now(),
	}
}

// NewRemove builds an event reporting that key was removed from store.
func NewRemove(store, origin, key string) Event {
	return Event{
		ID:        generateID(),
		Store:     store,
		Origin:    origin,
		Key:       key,
		Removed:   true,
		Timestamp: time.Now(),
	}
}

func (e Event) String() string {
	return fmt.Sprintf(
		"Event{ID: %s, Store: %s, Key: %s, Removed: %t}",
		e.ID,
		e.Store,
		e.Key,
		e.Removed,
	)
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}
