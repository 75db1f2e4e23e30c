// Package backend defines the storage abstraction used by taskstore.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Put for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Put.
//
// Every mutation is versioned: the backend assigns version 1 to the first
// write of a key and increments on each subsequent write. The version is the
// sole mechanism for detecting concurrent modification — PutIfVersion is the
// only safe way to perform a read-modify-write.
//
// Keys are opaque UTF-8 strings. The backend imposes no structure on them
// beyond prefix comparability; the keyspace "task:<ns>:" is owned by the
// taskstore layer and external code MUST NOT write under it.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports an absent (or logically expired) key. It is a normal
// outcome for lookups and deletes racing a sweep, not a failure.
var ErrNotFound = errors.New("taskstore: key not found")

// ConflictError reports a failed PutIfVersion precondition. Current is the
// version actually stored at the instant the CAS was applied, so callers can
// re-read and retry.
type ConflictError struct {
	Key      string
	Expected uint64
	Current  uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("taskstore: version conflict on %q: expected %d, current %d",
		e.Key, e.Expected, e.Current)
}

// Entry is one stored record as returned by Get and ListByPrefix.
type Entry struct {
	Key     string
	Value   []byte
	Version uint64
}

// Backend is a minimal versioned byte store with per-entry expiry.
// Must be safe for concurrent use. All operations are atomic with respect to
// other operations on the same key; no cross-key atomicity is implied.
//
// Expiry is backend-side metadata attached at write time. A key whose expiry
// has elapsed is logically absent: Get misses it, ListByPrefix omits it, and
// CleanupExpired eventually removes it physically. TTL <= 0 means no expiry.
type Backend interface {
	// Get returns (value, version, true, nil) on hit and
	// (nil, 0, false, nil) on miss. Errors are reserved for backend
	// failure, not absence.
	Get(ctx context.Context, key string) (value []byte, version uint64, ok bool, err error)

	// Put writes unconditionally: create at version 1, or overwrite and
	// increment. Returns the new version.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) (uint64, error)

	// PutIfVersion writes iff the key's current version equals expected.
	// expected == 0 means "create only": it succeeds iff the key is
	// logically absent. On mismatch it returns a *ConflictError carrying
	// the current version; expected > 0 against an absent key returns
	// ErrNotFound. No two concurrent callers may both succeed for the
	// same expected version.
	PutIfVersion(ctx context.Context, key string, value []byte, expected uint64, ttl time.Duration) (uint64, error)

	// Delete removes the key. Deleting an absent key returns ErrNotFound
	// so callers can detect races.
	Delete(ctx context.Context, key string) error

	// ListByPrefix returns a snapshot of all non-expired entries whose key
	// starts with prefix, in unspecified order. Entries written or removed
	// mid-scan may or may not appear.
	ListByPrefix(ctx context.Context, prefix string) ([]Entry, error)

	// CleanupExpired removes every entry whose expiry has elapsed,
	// re-evaluated against the currently stored entry, and returns the
	// count removed. Safe to call concurrently with any other operation.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
