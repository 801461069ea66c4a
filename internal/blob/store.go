package blob

import (
	"context"
	"errors"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("blob: object not found")

	// ErrVersionConflict indicates a conditional write lost the race: the
	// object's current version no longer matches the caller's token.
	ErrVersionConflict = errors.New("blob: version conflict")
)

// Store is the object-store capability the pipeline is built on: durable
// key-value blobs with prefix listing and version-guarded replacement.
// Versions are opaque monotonic tokens scoped to a single key; 0 means
// "the object must not exist yet".
type Store interface {
	// Get returns the object's data and its current version token.
	Get(ctx context.Context, key string) ([]byte, int64, error)

	// Put writes the object unconditionally, creating or replacing it.
	Put(ctx context.Context, key string, data []byte) error

	// PutIf writes the object only if its current version equals expected
	// (expected 0 requires that the key does not exist). It returns the new
	// version token, or ErrVersionConflict when another writer won the race.
	PutIf(ctx context.Context, key string, data []byte, expected int64) (int64, error)

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all keys under the given prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object under the prefix. Idempotent.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Watchable is implemented by stores that can deliver object-created
// notifications. The hook is invoked once per newly written key; delivery
// is at-least-once and may happen on a separate goroutine.
type Watchable interface {
	OnCreate(fn func(key string))
}
