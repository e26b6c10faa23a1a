package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestPutGet(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "arxiv:abc", []byte(`[1,2]`), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, "arxiv:abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get: entry not found")
	}
	if string(got) != `[1,2]` {
		t.Errorf("value = %s, want [1,2]", got)
	}
}

func TestGetMissing(t *testing.T) {
	store, _ := testStore(t)
	_, ok, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestPutReplaces(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	store.Put(ctx, "k", []byte("old"), time.Hour)
	store.Put(ctx, "k", []byte("new"), time.Hour)

	got, _, _ := store.Get(ctx, "k")
	if string(got) != "new" {
		t.Errorf("value = %q, want %q", got, "new")
	}
}

func TestExpiry(t *testing.T) {
	store, clock := testStore(t)
	ctx := context.Background()

	store.Put(ctx, "short", []byte("a"), time.Minute)
	store.Put(ctx, "long", []byte("b"), 24*time.Hour)

	*clock = clock.Add(2 * time.Minute)

	if _, ok, _ := store.Get(ctx, "short"); ok {
		t.Error("expired entry should miss")
	}
	if _, ok, _ := store.Get(ctx, "long"); !ok {
		t.Error("live entry should hit")
	}

	live, expired, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if live != 1 || expired != 1 {
		t.Errorf("Stats = (%d, %d), want (1, 1)", live, expired)
	}

	n, err := store.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	if _, ok, _ := store.Get(ctx, "long"); !ok {
		t.Error("Prune must keep live entries")
	}
}

func TestClear(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	store.Put(ctx, "a", []byte("1"), time.Hour)
	store.Put(ctx, "b", []byte("2"), time.Hour)

	n, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d, want 2", n)
	}
	if _, ok, _ := store.Get(ctx, "a"); ok {
		t.Error("entry survived Clear")
	}
}

func TestOpenInMemory(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); !ok {
		t.Error("in-memory store lost entry")
	}
}
