package taskstore

import (
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/taskstore/backend"
	"github.com/unkn0wn-root/taskstore/backend/memory"
)

type allowAll struct{}

func (allowAll) Authorize(context.Context, string, string) error { return nil }

func TestMemDefaults(t *testing.T) {
	ctx := context.Background()
	m := NewMem[task]()
	defer m.Close(ctx)

	rec, err := m.Create(ctx, "t1", task{ID: "t1", Status: "pending"})
	if err != nil || rec.Version != 1 {
		t.Fatalf("Create: rec=%+v err=%v", rec, err)
	}
	got, err := m.Get(ctx, "t1")
	if err != nil || got.State.Status != "pending" {
		t.Fatalf("Get: rec=%+v err=%v", got, err)
	}

	if m.Security() != nil {
		t.Fatalf("default store must carry no security policy")
	}
	if m.Backend() == nil {
		t.Fatalf("Backend accessor returned nil")
	}

	// default namespace is "tasks"
	entries, err := m.Backend().ListByPrefix(ctx, "task:tasks:")
	if err != nil || len(entries) != 1 {
		t.Fatalf("default namespace keys: %v err=%v", entries, err)
	}
}

func TestMemChainedConfiguration(t *testing.T) {
	ctx := context.Background()
	policy := allowAll{}
	m := NewMem[task]().
		WithConfig(&Config{Namespace: "jobs", Shards: 4, MaxUpdateRetries: 2}).
		WithSecurity(policy).
		WithPollInterval(-1)
	defer m.Close(ctx)

	if m.Security() == nil {
		t.Fatalf("WithSecurity did not stick")
	}

	if _, err := m.Create(ctx, "j1", task{ID: "j1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	entries, err := m.Backend().ListByPrefix(ctx, "task:jobs:")
	if err != nil || len(entries) != 1 {
		t.Fatalf("configured namespace keys: %v err=%v", entries, err)
	}

	if _, ok := m.Backend().(*memory.Backend); !ok {
		t.Fatalf("facade must wire the in-memory backend, got %T", m.Backend())
	}
}

func TestMemDelegatesFullSurface(t *testing.T) {
	ctx := context.Background()
	m := NewMem[task]().WithPollInterval(-1)
	defer m.Close(ctx)

	if _, err := m.Create(ctx, "a", task{ID: "a", Status: "pending"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Put(ctx, "b", task{ID: "b"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec, err := m.Update(ctx, "a", func(cur task) (task, error) {
		cur.Status = "running"
		return cur, nil
	})
	if err != nil || rec.State.Status != "running" {
		t.Fatalf("Update: rec=%+v err=%v", rec, err)
	}
	if _, err := m.PutIfVersion(ctx, "a", task{ID: "a", Status: "done"}, rec.Version); err != nil {
		t.Fatalf("PutIfVersion: %v", err)
	}

	if ok, _ := m.Exists(ctx, "b"); !ok {
		t.Fatalf("Exists(b) should hit")
	}
	if n, _ := m.Count(ctx); n != 2 {
		t.Fatalf("Count: %d", n)
	}
	all, err := m.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("List: %v err=%v", all, err)
	}
	subset, err := m.ListPrefix(ctx, "a")
	if err != nil || len(subset) != 1 || subset[0].ID != "a" {
		t.Fatalf("ListPrefix: %v err=%v", subset, err)
	}
	if n, err := m.Sweep(ctx); err != nil || n != 0 {
		t.Fatalf("Sweep: n=%d err=%v", n, err)
	}
	if err := m.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
}

func TestMemImplementsTaskStore(t *testing.T) {
	var _ TaskStore[task] = NewMem[task]()
	var _ backend.Backend = (*memory.Backend)(nil)
}
