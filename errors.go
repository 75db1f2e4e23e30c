package taskstore

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/taskstore/backend"
)

// Re-exported so callers of the domain API rarely need to import backend.
var ErrNotFound = backend.ErrNotFound

// ConflictError is backend.ConflictError surfaced through the domain layer.
// Update retries conflicts internally; receiving one from PutIfVersion or an
// exhausted Update means "re-read and try again with fresh state", not a
// fatal condition.
type ConflictError = backend.ConflictError

// ErrExists reports a Create against a task id that is already live.
var ErrExists = errors.New("taskstore: task already exists")

// CodecError reports a task payload that could not be encoded or decoded.
// Unexpected: either the caller's codec and stored data disagree, or the
// backend returned bytes the store never wrote.
type CodecError struct {
	ID  string
	Op  string // "encode" or "decode"
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("taskstore: %s task %q: %v", e.Op, e.ID, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// BackendError wraps a backend failure with the key and operation that hit
// it. The in-memory backend should rarely, if ever, produce one.
type BackendError struct {
	Key string
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("taskstore: backend %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
