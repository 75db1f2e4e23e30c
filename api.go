package taskstore

import (
	"context"
	"time"

	"github.com/unkn0wn-root/taskstore/backend"
	c "github.com/unkn0wn-root/taskstore/codec"
)

// Record is one task as seen through the domain API: the caller's typed
// state plus the store-maintained identity, write version and creation time.
type Record[V any] struct {
	ID        string
	State     V
	Version   uint64
	CreatedAt time.Time
}

// UpdateFunc produces the next state of a task from its current state.
// It may be invoked more than once if the CAS write loses a race, so it must
// be side-effect free.
type UpdateFunc[V any] func(current V) (V, error)

// TaskStore is the backend-agnostic task API with CAS safety via per-key
// versions. V is the caller's task state type; serialization is handled by a
// pluggable codec.Codec[V].
type TaskStore[V any] interface {
	// Create registers a new task. An empty id is replaced by a generated
	// one; the assigned id rides back on the Record. Creating an id that
	// is already live fails with ErrExists.
	Create(ctx context.Context, id string, state V) (Record[V], error)

	// Get fetches a task by id; ErrNotFound on miss.
	Get(ctx context.Context, id string) (Record[V], error)

	// Put overwrites unconditionally (last-writer-wins). Concurrent
	// updates are intentionally lost; use it only when full replacement by
	// the task's sole owner is correct.
	Put(ctx context.Context, id string, state V) (uint64, error)

	// PutIfVersion writes iff the task's current version equals expected.
	// Fails with *ConflictError carrying the current version, or
	// ErrNotFound if the task vanished.
	PutIfVersion(ctx context.Context, id string, state V, expected uint64) (uint64, error)

	// Update reads the task, applies fn, and CAS-writes the result,
	// retrying on conflict up to the configured bound before surfacing
	// the *ConflictError. The only safe way to perform a non-trivial
	// state transition without external locking.
	Update(ctx context.Context, id string, fn UpdateFunc[V]) (Record[V], error)

	// Delete removes the task; ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// List returns every live task in the store's namespace.
	List(ctx context.Context) ([]Record[V], error)

	// ListPrefix returns live tasks whose id starts with idPrefix.
	ListPrefix(ctx context.Context, idPrefix string) ([]Record[V], error)

	// Exists reports whether a live task with this id is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// Count reports the number of live tasks in the namespace.
	Count(ctx context.Context) (int, error)

	// Sweep runs one expiry pass immediately (the same pass the
	// background sweeper runs on its interval) and reports removals.
	Sweep(ctx context.Context) (int, error)

	// Close stops the background sweeper and releases the backend.
	Close(ctx context.Context) error

	// Backend exposes the underlying backend for tests and operational
	// diagnostics. Not part of the stable production contract; production
	// code must go through the domain API.
	Backend() backend.Backend
}

// Options tune the generic store. Namespace, Backend and Codec are required;
// the rest have sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions, e.g. "tasks", "jobs"
	Backend   backend.Backend
	Codec     c.Codec[V]

	Logger           Logger        // if nil, NopLogger is used
	Hooks            Hooks         // if nil, NopHooks is used
	DefaultTTL       time.Duration // per-record expiry; 0 => records never expire
	PollInterval     time.Duration // expiry sweep interval; 0 => 1m, negative => sweeper disabled
	MaxUpdateRetries int           // CAS attempts inside Update; 0 => 8
	IDGenerator      func() string // for Create with empty id; nil => UUIDv4
}

func New[V any](opts Options[V]) (TaskStore[V], error) {
	return newStore[V](opts)
}
