// Package app implements the inbox use cases and defines ports (storage and change-feed interfaces).
package app

// KVStore is an origin-scoped durable key-value store.
// Implementations: internal/repository/sqlite (Bucket) and internal/repository/memory (View).
type KVStore interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// ChangeFeed delivers "something changed" notifications for writes made by
// other views of the same origin. A view is never notified of its own writes.
type ChangeFeed interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(key string)) (unsubscribe func())
}
