package hub

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested key does not exist in the repository.
	ErrNotFound = errors.New("hub: key not found")
	// ErrNoToken indicates a write was attempted without a configured credential.
	ErrNoToken = errors.New("hub: no write token configured")
)

// Store is the whole-document boundary offered by the object repository.
// Fetch and Commit move complete objects; there are no partial writes and
// no compare-and-swap. Commit is assumed atomic and last-writer-wins at the
// store, a promise owed by the backend rather than enforced here.
type Store interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Commit(ctx context.Context, key string, content []byte, message string) error
	CanWrite() bool
}
