package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/cardbox/internal/shared"
)

func newTestStore(t *testing.T) *KVStore {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewKVStore(db)
}

func TestKVStore(t *testing.T) {
	t.Run("Get missing key", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.Get("absent")
		if !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("Set And Get", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.Set("history", []byte(`[{"id":"a"}]`)); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		got, err := store.Get("history")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if string(got) != `[{"id":"a"}]` {
			t.Errorf("unexpected value: %s", got)
		}
	})

	t.Run("Set replaces value", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.Set("k", []byte("one")); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := store.Set("k", []byte("two")); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		got, err := store.Get("k")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if string(got) != "two" {
			t.Errorf("expected overwritten value, got %s", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.Set("k", []byte("v")); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := store.Delete("k"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := store.Get("k"); !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss after delete, got %v", err)
		}

		// Deleting a missing key is a no-op.
		if err := store.Delete("k"); err != nil {
			t.Errorf("deleting a missing key should not fail: %v", err)
		}
	})
}
