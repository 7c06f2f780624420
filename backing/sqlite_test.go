package backing_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/mirror/backing"
)

func openTestSQLite(t *testing.T) (*backing.SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.db")
	store, err := backing.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestSQLiteStore_SaveLoadDelete(t *testing.T) {
	store, _ := openTestSQLite(t)
	ctx := context.Background()

	if err := store.Save(ctx, "theme", `"dark"`); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, ok, err := store.Load(ctx, "theme")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok || raw != `"dark"` {
		t.Errorf("Load() = (%q, %t), want (%q, true)", raw, ok, `"dark"`)
	}

	// Upsert
	if err := store.Save(ctx, "theme", `"light"`); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}
	raw, _, _ = store.Load(ctx, "theme")
	if raw != `"light"` {
		t.Errorf("Load() after upsert = %q, want %q", raw, `"light"`)
	}

	if err := store.Delete(ctx, "theme"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := store.Load(ctx, "theme"); ok {
		t.Error("Load() after Delete ok = true, want false")
	}
}

func TestSQLiteStore_List(t *testing.T) {
	store, _ := openTestSQLite(t)
	ctx := context.Background()

	for _, key := range []string{"b", "a", "c"} {
		if err := store.Save(ctx, key, "1"); err != nil {
			t.Fatalf("Save(%s) error = %v", key, err)
		}
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("List() returned %d keys, want %d", len(keys), len(want))
	}
	for i, key := range keys {
		if key != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, key, want[i])
		}
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	store, path := openTestSQLite(t)
	ctx := context.Background()

	if err := store.Save(ctx, "count", "41"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := backing.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() reopen error = %v", err)
	}
	defer reopened.Close()

	raw, ok, err := reopened.Load(ctx, "count")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok || raw != "41" {
		t.Errorf("Load() after reopen = (%q, %t), want (41, true)", raw, ok)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := backing.OpenSQLite("  "); err == nil {
		t.Error("OpenSQLite(blank) error = nil, want error")
	}
}
