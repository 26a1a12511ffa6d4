package localstore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		store := openTestStore(t)
		_, ok, err := store.Get(ctx, "nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected key to be missing")
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		store := openTestStore(t)
		if err := store.Set(ctx, KeyCart, "first"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Set(ctx, KeyCart, "second"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		value, ok, err := store.Get(ctx, KeyCart)
		if err != nil || !ok {
			t.Fatalf("expected value, got ok=%v err=%v", ok, err)
		}
		if value != "second" {
			t.Errorf("expected 'second', got %q", value)
		}
	})

	t.Run("remove", func(t *testing.T) {
		store := openTestStore(t)
		_ = store.Set(ctx, KeyCurrentOrderID, "abc")
		if err := store.Remove(ctx, KeyCurrentOrderID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok, _ := store.Get(ctx, KeyCurrentOrderID); ok {
			t.Error("expected key to be removed")
		}
	})

	t.Run("survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "storefront.db")
		store, err := Open(ctx, path)
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		_ = store.Set(ctx, KeySettings, `{"language":"vi"}`)
		_ = store.Close()

		store, err = Open(ctx, path)
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		defer func() { _ = store.Close() }()

		value, ok, err := store.Get(ctx, KeySettings)
		if err != nil || !ok {
			t.Fatalf("expected value, got ok=%v err=%v", ok, err)
		}
		if value != `{"language":"vi"}` {
			t.Errorf("unexpected value %q", value)
		}
	})
}
