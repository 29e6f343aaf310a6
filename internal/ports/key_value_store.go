package ports

import "context"

// Port: a small persisted key-value store (last known location, tokens).
// Writes from several sessions are not coordinated; the last write wins.
type KeyValueStore interface {
	// Return the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Store value under key, replacing any previous value.
	Set(ctx context.Context, key string, value string) error
}

// Optional extension of KeyValueStore for backends with native change events.
type ChangeNotifier interface {
	// Watch emits the new value every time key is written, until ctx ends.
	// The returned channel is closed when the subscription stops.
	Watch(ctx context.Context, key string) (<-chan string, error)
}
