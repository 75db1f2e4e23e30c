// Package taskstore implements a backend-agnostic store for the lifecycle
// state of asynchronous tasks, with optimistic concurrency via per-key write
// versions, prefix enumeration, and time-based expiry.
//
// Components:
//   - backend.Backend: versioned byte store with expiry (reference
//     implementation: backend/memory, a lock-striped in-process map).
//   - codec.Codec[V]: (de)serializes the caller's task state V <-> []byte.
//   - TaskStore[V]: the generic domain layer - key namespacing, typed
//     records, CAS-retry updates, background expiry sweeping.
//   - Mem[V]: the pre-wired in-memory facade with chainable configuration.
//
// Keys:
//
//	task:<ns>:<id> - one task record per id
//
// CAS pattern:
//
//	rec, _ := store.Get(ctx, id)                       // observe version
//	_, err := store.PutIfVersion(ctx, id, next, rec.Version)
//	// or let the store drive the loop:
//	rec, err := store.Update(ctx, id, func(t Task) (Task, error) {
//	    t.Status = "running"
//	    return t, nil
//	})
package taskstore
