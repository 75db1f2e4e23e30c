// Package memory implements taskstore's Backend contract over a lock-striped
// in-process hash map. It is the reference backend and the default for
// non-durable deployments: per-key linearizable, no persistence, no eviction
// besides explicit Delete and the expiry sweep.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/taskstore/backend"
)

const defaultShards = 32

type entry struct {
	value     []byte
	version   uint64
	expiresAt time.Time // zero => no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*entry
}

// Backend is a concurrent in-memory implementation of backend.Backend.
// Keys are striped across shards by xxhash so unrelated keys never contend
// on the same lock; each operation locks exactly one shard.
type Backend struct {
	shards []*shard
	now    func() time.Time // swapped in tests
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	// Shards is the number of lock stripes. 0 => 32.
	Shards int
}

func New(cfg Config) (*Backend, error) {
	n := cfg.Shards
	if n == 0 {
		n = defaultShards
	}
	if n < 0 {
		return nil, errors.New("memory: shard count must be positive")
	}
	b := &Backend{
		shards: make([]*shard, n),
		now:    time.Now,
	}
	for i := range b.shards {
		b.shards[i] = &shard{m: make(map[string]*entry)}
	}
	return b, nil
}

// Default returns a backend with default sharding, for the common case where
// no tuning is needed.
func Default() *Backend {
	b, _ := New(Config{})
	return b
}

func (b *Backend) shardFor(key string) *shard {
	return b.shards[xxhash.Sum64String(key)%uint64(len(b.shards))]
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, uint64, bool, error) {
	s := b.shardFor(key)
	now := b.now()

	s.mu.RLock()
	e, ok := s.m[key]
	if !ok || e.expired(now) {
		s.mu.RUnlock()
		if ok {
			// lazy reclaim; harmless if a concurrent write refreshed it
			b.reclaimExpired(s, key)
		}
		return nil, 0, false, nil
	}
	v := cloneBytes(e.value)
	ver := e.version
	s.mu.RUnlock()
	return v, ver, true, nil
}

// reclaimExpired removes key iff it is still expired under the write lock.
func (b *Backend) reclaimExpired(s *shard, key string) {
	now := b.now()
	s.mu.Lock()
	if e, ok := s.m[key]; ok && e.expired(now) {
		delete(s.m, key)
	}
	s.mu.Unlock()
}

func (b *Backend) Put(_ context.Context, key string, value []byte, ttl time.Duration) (uint64, error) {
	s := b.shardFor(key)
	now := b.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var ver uint64 = 1
	if prev, ok := s.m[key]; ok {
		// expired entries still advance the version sequence so readers
		// never observe a version decrease within one process lifetime
		ver = prev.version + 1
	}
	s.m[key] = &entry{value: cloneBytes(value), version: ver, expiresAt: expiry(now, ttl)}
	return ver, nil
}

func (b *Backend) PutIfVersion(_ context.Context, key string, value []byte, expected uint64, ttl time.Duration) (uint64, error) {
	s := b.shardFor(key)
	now := b.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.m[key]
	live := ok && !prev.expired(now)

	if expected == 0 {
		if live {
			return 0, &backend.ConflictError{Key: key, Expected: 0, Current: prev.version}
		}
	} else {
		if !live {
			return 0, backend.ErrNotFound
		}
		if prev.version != expected {
			return 0, &backend.ConflictError{Key: key, Expected: expected, Current: prev.version}
		}
	}

	var ver uint64 = 1
	if ok {
		ver = prev.version + 1
	}
	s.m[key] = &entry{value: cloneBytes(value), version: ver, expiresAt: expiry(now, ttl)}
	return ver, nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	s := b.shardFor(key)
	now := b.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		return backend.ErrNotFound
	}
	if e.expired(now) {
		// physically gone either way; logically it was already absent
		delete(s.m, key)
		return backend.ErrNotFound
	}
	delete(s.m, key)
	return nil
}

func (b *Backend) ListByPrefix(_ context.Context, prefix string) ([]backend.Entry, error) {
	var out []backend.Entry
	for _, s := range b.shards {
		now := b.now()
		s.mu.RLock()
		for k, e := range s.m {
			if !strings.HasPrefix(k, prefix) || e.expired(now) {
				continue
			}
			out = append(out, backend.Entry{Key: k, Value: cloneBytes(e.value), Version: e.version})
		}
		s.mu.RUnlock()
	}
	return out, nil
}

func (b *Backend) CleanupExpired(_ context.Context) (int, error) {
	removed := 0
	for _, s := range b.shards {
		// collect candidates under the read lock, then re-check each under
		// the write lock: a key refreshed between the two phases survives
		now := b.now()
		var stale []string
		s.mu.RLock()
		for k, e := range s.m {
			if e.expired(now) {
				stale = append(stale, k)
			}
		}
		s.mu.RUnlock()

		if len(stale) == 0 {
			continue
		}
		now = b.now()
		s.mu.Lock()
		for _, k := range stale {
			if e, ok := s.m[k]; ok && e.expired(now) {
				delete(s.m, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed, nil
}

// Close drops all entries. The backend holds no external resources.
func (b *Backend) Close(_ context.Context) error {
	for _, s := range b.shards {
		s.mu.Lock()
		s.m = make(map[string]*entry)
		s.mu.Unlock()
	}
	return nil
}

// Len reports the number of physically stored entries, including expired
// ones the sweep has not reclaimed yet. Intended for tests and diagnostics.
func (b *Backend) Len() int {
	n := 0
	for _, s := range b.shards {
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
