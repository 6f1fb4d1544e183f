package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "cpstest.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()

	if _, err := st.Get(ctx, "clickTestHistory"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.Set(ctx, "clickTestHistory", `[]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Set(ctx, "clickTestHistory", `[{"id":1}]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := st.Set(ctx, "spaceClickTestHistory", `[]`); err != nil {
		t.Fatalf("set second key: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})
	got, err := reopened.Get(ctx, "clickTestHistory")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != `[{"id":1}]` {
		t.Fatalf("unexpected value %q", got)
	}
	keys, err := reopened.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "clickTestHistory" || keys[1] != "spaceClickTestHistory" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = m.Set(ctx, "b", "2")
	_ = m.Set(ctx, "a", "1")
	if v, err := m.Get(ctx, "a"); err != nil || v != "1" {
		t.Fatalf("unexpected get result %q (%v)", v, err)
	}
	keys, _ := m.Keys(ctx)
	if len(keys) != 2 || keys[0] != "a" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
