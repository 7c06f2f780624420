// Package backing defines the persistent key-value stores a mirror runtime
// reflects. Implementations are stateless with respect to callers — they
// perform I/O on each call without caching — and must be safe for concurrent
// use. Caching and change notification live above this layer.
package backing

import "context"

// Store is a synchronous string-to-string persistence surface. Keys are
// opaque strings; values are the raw encoded forms produced by a codec.
type Store interface {
	// ID identifies this store instance. Change signals carry the ID so
	// subscribers can filter events down to the store they mirror.
	ID() string
	// List returns all keys currently present in the store.
	List(ctx context.Context) ([]string, error)
	// Load retrieves the raw value for key. ok is false when the key is
	// absent; err is reserved for access failures.
	Load(ctx context.Context, key string) (raw string, ok bool, err error)
	// Save persists raw under key, creating or overwriting as needed.
	Save(ctx context.Context, key, raw string) error
	// Delete removes key from the store. Missing keys are ignored.
	Delete(ctx context.Context, key string) error
}
