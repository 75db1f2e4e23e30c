package taskstore

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/taskstore/backend"
	"github.com/unkn0wn-root/taskstore/backend/memory"
	c "github.com/unkn0wn-root/taskstore/codec"
)

// SecurityPolicy is an authorization policy the surrounding system consults
// before calls reach the store. The store carries the association and
// exposes it via Security; it does not enforce the policy itself.
type SecurityPolicy interface {
	Authorize(ctx context.Context, op, taskID string) error
}

// Mem is the in-memory-flavored facade: a TaskStore[V] pre-wired to the
// reference backend. NewMem gives a ready store with defaults (JSON codec,
// namespace "tasks", one-minute sweep); the With* methods chain
// configuration before first use. The inner store is materialized lazily on
// the first operation, so configuration applied after that point is ignored.
//
// Every domain call delegates to the generic layer; Mem adds nothing beyond
// configuration plumbing.
type Mem[V any] struct {
	cfg    *Config
	sec    SecurityPolicy
	poll   time.Duration
	codec  c.Codec[V]
	logger Logger
	hooks  Hooks

	once sync.Once
	st   TaskStore[V]
	err  error
}

var _ TaskStore[struct{}] = (*Mem[struct{}])(nil)

func NewMem[V any]() *Mem[V] { return &Mem[V]{} }

// WithConfig attaches store-wide defaults. Nil is ignored.
func (m *Mem[V]) WithConfig(cfg *Config) *Mem[V] {
	if cfg != nil {
		m.cfg = cfg
	}
	return m
}

// WithSecurity attaches the authorization policy carried for the
// surrounding system.
func (m *Mem[V]) WithSecurity(p SecurityPolicy) *Mem[V] {
	m.sec = p
	return m
}

// WithPollInterval overrides how often the expiry sweep runs. Takes
// precedence over Config.PollInterval.
func (m *Mem[V]) WithPollInterval(d time.Duration) *Mem[V] {
	m.poll = d
	return m
}

// WithCodec overrides the default JSON codec.
func (m *Mem[V]) WithCodec(cc c.Codec[V]) *Mem[V] {
	m.codec = cc
	return m
}

// WithLogger attaches a logger adapter (see log/zap, log/logrus, log/slog).
func (m *Mem[V]) WithLogger(l Logger) *Mem[V] {
	m.logger = l
	return m
}

// WithHooks attaches observability hooks.
func (m *Mem[V]) WithHooks(h Hooks) *Mem[V] {
	m.hooks = h
	return m
}

// Security returns the attached policy, or nil if none was configured.
func (m *Mem[V]) Security() SecurityPolicy { return m.sec }

func (m *Mem[V]) init() error {
	m.once.Do(func() {
		cfg := m.cfg
		if cfg == nil {
			cfg = &Config{}
		}
		be, err := memory.New(memory.Config{Shards: cfg.Shards})
		if err != nil {
			m.err = err
			return
		}
		m.st, m.err = New[V](Options[V]{
			Namespace:        coalesce(cfg.Namespace, "tasks"),
			Backend:          be,
			Codec:            coalesce[c.Codec[V]](m.codec, c.JSON[V]{}),
			Logger:           m.logger,
			Hooks:            m.hooks,
			DefaultTTL:       cfg.DefaultTTL.Std(),
			PollInterval:     coalesce(m.poll, cfg.PollInterval.Std()),
			MaxUpdateRetries: cfg.MaxUpdateRetries,
		})
	})
	return m.err
}

func (m *Mem[V]) Create(ctx context.Context, id string, state V) (Record[V], error) {
	if err := m.init(); err != nil {
		return Record[V]{}, err
	}
	return m.st.Create(ctx, id, state)
}

func (m *Mem[V]) Get(ctx context.Context, id string) (Record[V], error) {
	if err := m.init(); err != nil {
		return Record[V]{}, err
	}
	return m.st.Get(ctx, id)
}

func (m *Mem[V]) Put(ctx context.Context, id string, state V) (uint64, error) {
	if err := m.init(); err != nil {
		return 0, err
	}
	return m.st.Put(ctx, id, state)
}

func (m *Mem[V]) PutIfVersion(ctx context.Context, id string, state V, expected uint64) (uint64, error) {
	if err := m.init(); err != nil {
		return 0, err
	}
	return m.st.PutIfVersion(ctx, id, state, expected)
}

func (m *Mem[V]) Update(ctx context.Context, id string, fn UpdateFunc[V]) (Record[V], error) {
	if err := m.init(); err != nil {
		return Record[V]{}, err
	}
	return m.st.Update(ctx, id, fn)
}

func (m *Mem[V]) Delete(ctx context.Context, id string) error {
	if err := m.init(); err != nil {
		return err
	}
	return m.st.Delete(ctx, id)
}

func (m *Mem[V]) List(ctx context.Context) ([]Record[V], error) {
	if err := m.init(); err != nil {
		return nil, err
	}
	return m.st.List(ctx)
}

func (m *Mem[V]) ListPrefix(ctx context.Context, idPrefix string) ([]Record[V], error) {
	if err := m.init(); err != nil {
		return nil, err
	}
	return m.st.ListPrefix(ctx, idPrefix)
}

func (m *Mem[V]) Exists(ctx context.Context, id string) (bool, error) {
	if err := m.init(); err != nil {
		return false, err
	}
	return m.st.Exists(ctx, id)
}

func (m *Mem[V]) Count(ctx context.Context) (int, error) {
	if err := m.init(); err != nil {
		return 0, err
	}
	return m.st.Count(ctx)
}

func (m *Mem[V]) Sweep(ctx context.Context) (int, error) {
	if err := m.init(); err != nil {
		return 0, err
	}
	return m.st.Sweep(ctx)
}

func (m *Mem[V]) Close(ctx context.Context) error {
	if err := m.init(); err != nil {
		return err
	}
	return m.st.Close(ctx)
}

func (m *Mem[V]) Backend() backend.Backend {
	if err := m.init(); err != nil {
		return nil
	}
	return m.st.Backend()
}
