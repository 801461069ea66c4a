package blob

import (
	"context"
	"errors"
	"testing"
)

// stores returns one instance of every Store implementation so the shared
// contract is verified against each backend.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLiteMemory()
	if err != nil {
		t.Fatalf("OpenSQLiteMemory: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStore_GetPutRoundtrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing: got %v, want ErrNotFound", err)
			}

			if err := store.Put(ctx, "a/b", []byte("one")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			data, version, err := store.Get(ctx, "a/b")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(data) != "one" {
				t.Errorf("data: got %q, want %q", data, "one")
			}
			if version != 1 {
				t.Errorf("version: got %d, want 1", version)
			}

			if err := store.Put(ctx, "a/b", []byte("two")); err != nil {
				t.Fatalf("Put replace: %v", err)
			}
			_, version, err = store.Get(ctx, "a/b")
			if err != nil {
				t.Fatalf("Get after replace: %v", err)
			}
			if version != 2 {
				t.Errorf("version after replace: got %d, want 2", version)
			}
		})
	}
}

func TestStore_PutIfConflicts(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// Create guarded by "does not exist".
			v, err := store.PutIf(ctx, "idx", []byte("v1"), 0)
			if err != nil {
				t.Fatalf("PutIf create: %v", err)
			}
			if v != 1 {
				t.Errorf("created version: got %d, want 1", v)
			}

			// A second conditional create must lose.
			if _, err := store.PutIf(ctx, "idx", []byte("other"), 0); !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("PutIf duplicate create: got %v, want ErrVersionConflict", err)
			}

			// Replace with the right token succeeds; the stale token loses.
			v, err = store.PutIf(ctx, "idx", []byte("v2"), 1)
			if err != nil {
				t.Fatalf("PutIf replace: %v", err)
			}
			if v != 2 {
				t.Errorf("replaced version: got %d, want 2", v)
			}
			if _, err := store.PutIf(ctx, "idx", []byte("stale"), 1); !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("PutIf stale token: got %v, want ErrVersionConflict", err)
			}

			data, _, err := store.Get(ctx, "idx")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(data) != "v2" {
				t.Errorf("data after stale write attempt: got %q, want %q", data, "v2")
			}
		})
	}
}

func TestStore_ListAndDeletePrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			keys := []string{
				"sessions/s1/images/doc/page_0001.png",
				"sessions/s1/images/doc/page_0002.png",
				"sessions/s1/index",
				"sessions/s2/index",
			}
			for _, k := range keys {
				if err := store.Put(ctx, k, []byte("x")); err != nil {
					t.Fatalf("Put %s: %v", k, err)
				}
			}

			listed, err := store.List(ctx, "sessions/s1/images/")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(listed) != 2 {
				t.Fatalf("List: got %d keys, want 2", len(listed))
			}
			if listed[0] != keys[0] || listed[1] != keys[1] {
				t.Errorf("List order: got %v", listed)
			}

			if err := store.DeletePrefix(ctx, "sessions/s1/"); err != nil {
				t.Fatalf("DeletePrefix: %v", err)
			}
			remaining, err := store.List(ctx, "sessions/")
			if err != nil {
				t.Fatalf("List after delete: %v", err)
			}
			if len(remaining) != 1 || remaining[0] != "sessions/s2/index" {
				t.Errorf("remaining keys: got %v", remaining)
			}

			// Deleting what is already gone is not an error.
			if err := store.DeletePrefix(ctx, "sessions/s1/"); err != nil {
				t.Errorf("DeletePrefix idempotent: %v", err)
			}
			if err := store.Delete(ctx, "sessions/s1/index"); err != nil {
				t.Errorf("Delete idempotent: %v", err)
			}
		})
	}
}

func TestStore_CreateNotifications(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var created []string
			store.(Watchable).OnCreate(func(key string) {
				created = append(created, key)
			})

			if err := store.Put(ctx, "k1", []byte("a")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			// Replacing an existing object is not a create.
			if err := store.Put(ctx, "k1", []byte("b")); err != nil {
				t.Fatalf("Put replace: %v", err)
			}
			if _, err := store.PutIf(ctx, "k2", []byte("c"), 0); err != nil {
				t.Fatalf("PutIf: %v", err)
			}

			if len(created) != 2 || created[0] != "k1" || created[1] != "k2" {
				t.Errorf("created hooks: got %v, want [k1 k2]", created)
			}
		})
	}
}
