package taskstore

import "time"

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking. The store calls them on
// hot paths; wrap with hooks/async if the sink can stall.
type Hooks interface {
	// A CAS attempt inside Update lost the race and will be retried.
	ConflictRetry(storageKey string, attempt int, current uint64)

	// Update exhausted its retry budget and surfaced the conflict.
	ConflictExhausted(storageKey string, attempts int)

	// A record was deleted by the store on read.
	// reason ∈ {"corrupt_frame", "payload_decode"}
	SelfHeal(storageKey, reason string)

	// One expiry sweep finished.
	SweepDone(removed int, took time.Duration)

	// A sweep pass failed; the next tick retries.
	SweepError(err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ConflictRetry(string, int, uint64) {}
func (NopHooks) ConflictExhausted(string, int)     {}
func (NopHooks) SelfHeal(string, string)           {}
func (NopHooks) SweepDone(int, time.Duration)      {}
func (NopHooks) SweepError(error)                  {}
