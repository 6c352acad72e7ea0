package db

import (
	"path/filepath"
	"testing"

	"github.com/fieldsense/fieldsense/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logging.Disable()
	t.Cleanup(logging.Enable)

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSetGetDelete(t *testing.T) {
	store := openTestStore(t)

	if _, ok, err := store.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := store.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := store.Get("k")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}

	// Upsert overwrites.
	if err := store.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _, _ = store.Get("k")
	if string(got) != "v2" {
		t.Fatalf("Get after overwrite = %q, want v2", got)
	}

	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Fatal("key survived Delete")
	}

	// Deleting an absent key is fine.
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}
