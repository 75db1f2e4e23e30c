// Package asynchook decouples hook sinks from the store's hot paths.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // sample logs: ~every 10th self-heal
//	    RetryEvery:    1,  // log every conflict retry
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := taskstore.New[Job](taskstore.Options[Job]{
//	    Namespace: "jobs",
//	    Backend:   be,
//	    Codec:     codec.JSON[Job]{},
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/taskstore"
)

type Hooks struct {
	inner taskstore.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ taskstore.Hooks = (*Hooks)(nil)

func New(inner taskstore.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) ConflictRetry(k string, attempt int, current uint64) {
	h.try(func() { h.inner.ConflictRetry(k, attempt, current) })
}
func (h *Hooks) ConflictExhausted(k string, attempts int) {
	h.try(func() { h.inner.ConflictExhausted(k, attempts) })
}
func (h *Hooks) SelfHeal(k, reason string) { h.try(func() { h.inner.SelfHeal(k, reason) }) }
func (h *Hooks) SweepDone(removed int, took time.Duration) {
	h.try(func() { h.inner.SweepDone(removed, took) })
}
func (h *Hooks) SweepError(err error) { h.try(func() { h.inner.SweepError(err) }) }
