package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/taskstore"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	RetryEvery    uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	retryCtr    atomic.Uint64
}

var _ taskstore.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ConflictRetry(storageKey string, attempt int, current uint64) {
	if h.l == nil || !sample(h.opts.RetryEvery, &h.retryCtr) {
		return
	}
	h.l.Debug("taskstore.conflict_retry",
		"key", h.redact(storageKey),
		"attempt", attempt,
		"current", current)
}

func (h *Hooks) ConflictExhausted(storageKey string, attempts int) {
	if h.l == nil {
		return
	}
	h.l.Warn("taskstore.conflict_exhausted",
		"key", h.redact(storageKey),
		"attempts", attempts)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("taskstore.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) SweepDone(removed int, took time.Duration) {
	if h.l == nil || removed == 0 {
		return
	}
	h.l.Debug("taskstore.sweep_done",
		"removed", removed,
		"took", took)
}

func (h *Hooks) SweepError(err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("taskstore.sweep_error",
		"err", err)
}
