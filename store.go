package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/taskstore/backend"
	c "github.com/unkn0wn-root/taskstore/codec"
	"github.com/unkn0wn-root/taskstore/internal/util"
	"github.com/unkn0wn-root/taskstore/internal/wire"
)

const (
	defaultPollInterval = time.Minute
	defaultMaxRetries   = 8
)

type store[V any] struct {
	ns         string
	backend    backend.Backend
	codec      c.Codec[V]
	log        Logger
	hooks      Hooks
	ttl        time.Duration
	maxRetries int
	newID      func() string
	now        func() time.Time

	// background expiry sweep
	pollEvery time.Duration
	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

func newStore[V any](opts Options[V]) (*store[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("taskstore: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("taskstore: codec is required")
	}
	if !util.ValidNamespace(opts.Namespace) {
		return nil, fmt.Errorf("taskstore: invalid namespace %q", opts.Namespace)
	}

	s := &store[V]{
		ns:      opts.Namespace,
		backend: opts.Backend,
		codec:   opts.Codec,
		ttl:     opts.DefaultTTL,
		now:     time.Now,
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.maxRetries = opts.MaxUpdateRetries
	if s.maxRetries < 1 {
		s.maxRetries = defaultMaxRetries
	}
	s.pollEvery = coalesce(opts.PollInterval, defaultPollInterval)
	if opts.IDGenerator != nil {
		s.newID = opts.IDGenerator
	} else {
		s.newID = uuid.NewString
	}

	if s.pollEvery > 0 {
		s.ticker = time.NewTicker(s.pollEvery)
		s.stopCh = make(chan struct{})
		s.closeWg.Add(1)
		go s.sweepLoop()
	}
	return s, nil
}

func (s *store[V]) taskKey(id string) string { return util.TaskKey(s.ns, id) }

func (s *store[V]) Create(ctx context.Context, id string, state V) (Record[V], error) {
	var zero Record[V]
	if id == "" {
		id = s.newID()
	}
	k := s.taskKey(id)

	payload, err := s.codec.Encode(state)
	if err != nil {
		return zero, &CodecError{ID: id, Op: "encode", Err: err}
	}
	created := s.now()
	raw := wire.EncodeRecord(created.UnixNano(), payload)

	// expected version 0 = create-only; a live record under this id loses
	ver, err := s.backend.PutIfVersion(ctx, k, raw, 0, s.ttl)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return zero, fmt.Errorf("taskstore: create %q: %w", id, ErrExists)
		}
		return zero, &BackendError{Key: k, Op: "put_if_version", Err: err}
	}
	return Record[V]{ID: id, State: state, Version: ver, CreatedAt: created}, nil
}

func (s *store[V]) Get(ctx context.Context, id string) (Record[V], error) {
	var zero Record[V]
	k := s.taskKey(id)

	raw, ver, ok, err := s.backend.Get(ctx, k)
	if err != nil {
		return zero, &BackendError{Key: k, Op: "get", Err: err}
	}
	if !ok {
		return zero, ErrNotFound
	}
	return s.decodeRecord(ctx, id, k, raw, ver)
}

// decodeRecord unframes and decodes stored bytes. Corrupt frames are foreign
// or truncated data: self-heal (delete) and report a miss. Payloads the
// codec rejects are deleted too, but surfaced as a CodecError because the
// caller's codec and the stored data disagree - that should be seen, not
// swallowed.
func (s *store[V]) decodeRecord(ctx context.Context, id, k string, raw []byte, ver uint64) (Record[V], error) {
	var zero Record[V]
	created, payload, err := wire.DecodeRecord(raw)
	if err != nil {
		s.selfHeal(ctx, k, "corrupt_frame")
		return zero, ErrNotFound
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		s.selfHeal(ctx, k, "payload_decode")
		return zero, &CodecError{ID: id, Op: "decode", Err: err}
	}
	return Record[V]{ID: id, State: v, Version: ver, CreatedAt: time.Unix(0, created)}, nil
}

func (s *store[V]) selfHeal(ctx context.Context, k, reason string) {
	if err := s.backend.Delete(ctx, k); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Warn("self-heal delete failed", Fields{"key": k, "reason": reason, "err": err})
		return
	}
	s.hooks.SelfHeal(k, reason)
	s.log.Debug("self-healed record", Fields{"key": k, "reason": reason})
}

func (s *store[V]) Put(ctx context.Context, id string, state V) (uint64, error) {
	k := s.taskKey(id)
	payload, err := s.codec.Encode(state)
	if err != nil {
		return 0, &CodecError{ID: id, Op: "encode", Err: err}
	}
	raw := wire.EncodeRecord(s.now().UnixNano(), payload)
	ver, err := s.backend.Put(ctx, k, raw, s.ttl)
	if err != nil {
		return 0, &BackendError{Key: k, Op: "put", Err: err}
	}
	return ver, nil
}

func (s *store[V]) PutIfVersion(ctx context.Context, id string, state V, expected uint64) (uint64, error) {
	created := s.now()
	if expected != 0 {
		// preserve the original creation time across CAS updates; if the
		// version moves between this read and the CAS below, the CAS
		// reports the conflict anyway
		k := s.taskKey(id)
		raw, _, ok, err := s.backend.Get(ctx, k)
		if err != nil {
			return 0, &BackendError{Key: k, Op: "get", Err: err}
		}
		if !ok {
			return 0, ErrNotFound
		}
		if nanos, _, err := wire.DecodeRecord(raw); err == nil {
			created = time.Unix(0, nanos)
		}
	}
	return s.putIfVersion(ctx, id, state, expected, created)
}

func (s *store[V]) putIfVersion(ctx context.Context, id string, state V, expected uint64, created time.Time) (uint64, error) {
	k := s.taskKey(id)
	payload, err := s.codec.Encode(state)
	if err != nil {
		return 0, &CodecError{ID: id, Op: "encode", Err: err}
	}
	raw := wire.EncodeRecord(created.UnixNano(), payload)

	ver, err := s.backend.PutIfVersion(ctx, k, raw, expected, s.ttl)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) || errors.Is(err, ErrNotFound) {
			return 0, err
		}
		return 0, &BackendError{Key: k, Op: "put_if_version", Err: err}
	}
	return ver, nil
}

func (s *store[V]) Update(ctx context.Context, id string, fn UpdateFunc[V]) (Record[V], error) {
	var zero Record[V]
	k := s.taskKey(id)

	var lastConflict error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		rec, err := s.Get(ctx, id)
		if err != nil {
			return zero, err
		}
		next, err := fn(rec.State)
		if err != nil {
			return zero, err
		}

		ver, err := s.putIfVersion(ctx, id, next, rec.Version, rec.CreatedAt)
		if err == nil {
			rec.State = next
			rec.Version = ver
			return rec, nil
		}

		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.hooks.ConflictRetry(k, attempt, conflict.Current)
			s.log.Debug("update lost CAS race, retrying", Fields{
				"key": k, "attempt": attempt, "current": conflict.Current,
			})
			lastConflict = err
			continue
		}
		return zero, err
	}

	s.hooks.ConflictExhausted(k, s.maxRetries)
	s.log.Warn("update retries exhausted", Fields{"key": k, "attempts": s.maxRetries})
	return zero, lastConflict
}

func (s *store[V]) Delete(ctx context.Context, id string) error {
	k := s.taskKey(id)
	if err := s.backend.Delete(ctx, k); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &BackendError{Key: k, Op: "delete", Err: err}
	}
	return nil
}

func (s *store[V]) List(ctx context.Context) ([]Record[V], error) {
	return s.listByStorePrefix(ctx, util.NamespacePrefix(s.ns))
}

func (s *store[V]) ListPrefix(ctx context.Context, idPrefix string) ([]Record[V], error) {
	return s.listByStorePrefix(ctx, util.NamespacePrefix(s.ns)+idPrefix)
}

// listByStorePrefix decodes a prefix snapshot. Undecodable entries are
// self-healed and skipped rather than failing the whole enumeration;
// discovery must survive one bad record.
func (s *store[V]) listByStorePrefix(ctx context.Context, prefix string) ([]Record[V], error) {
	entries, err := s.backend.ListByPrefix(ctx, prefix)
	if err != nil {
		return nil, &BackendError{Key: prefix, Op: "list_by_prefix", Err: err}
	}

	out := make([]Record[V], 0, len(entries))
	for _, e := range entries {
		id, ok := util.TaskID(s.ns, e.Key)
		if !ok {
			continue
		}
		rec, err := s.decodeRecord(ctx, id, e.Key, e.Value, e.Version)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *store[V]) Exists(ctx context.Context, id string) (bool, error) {
	k := s.taskKey(id)
	_, _, ok, err := s.backend.Get(ctx, k)
	if err != nil {
		return false, &BackendError{Key: k, Op: "get", Err: err}
	}
	return ok, nil
}

func (s *store[V]) Count(ctx context.Context) (int, error) {
	prefix := util.NamespacePrefix(s.ns)
	entries, err := s.backend.ListByPrefix(ctx, prefix)
	if err != nil {
		return 0, &BackendError{Key: prefix, Op: "list_by_prefix", Err: err}
	}
	return len(entries), nil
}

func (s *store[V]) Sweep(ctx context.Context) (int, error) {
	n, err := s.backend.CleanupExpired(ctx)
	if err != nil {
		return 0, &BackendError{Key: "", Op: "cleanup_expired", Err: err}
	}
	return n, nil
}

func (s *store[V]) sweepLoop() {
	defer s.closeWg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.runSweep()
		case <-s.stopCh:
			return
		}
	}
}

// runSweep is best-effort: a failed pass is logged and retried on the next
// tick, never surfaced to foreground callers.
func (s *store[V]) runSweep() {
	start := s.now()
	n, err := s.backend.CleanupExpired(context.Background())
	if err != nil {
		s.hooks.SweepError(err)
		s.log.Warn("expiry sweep failed", Fields{"err": err})
		return
	}
	took := time.Since(start)
	s.hooks.SweepDone(n, took)
	if n > 0 {
		s.log.Debug("expiry sweep removed records", Fields{"removed": n, "took": took})
	}
}

func (s *store[V]) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop() // stop ticker before waiting
			s.closeWg.Wait()
		}
		err = s.backend.Close(ctx)
	})
	return err
}

func (s *store[V]) Backend() backend.Backend { return s.backend }
