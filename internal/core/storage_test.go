package core

import (
	"path/filepath"
	"testing"

	"stockcore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("STOCKCORE_STORAGE_DRIVER", string(StorageMemory))
	store, err := OpenPersistentStore(NewRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	t.Setenv("STOCKCORE_STORAGE_DRIVER", string(StorageSQLite))
	t.Setenv("STOCKCORE_SQLITE_PATH", path)
	store, err := OpenPersistentStore(NewRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	st, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	defer st.Close()
	if st.Path() != path {
		t.Fatalf("path = %q, want %q", st.Path(), path)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("STOCKCORE_STORAGE_DRIVER", "etcd")
	if _, err := OpenPersistentStore(NewRulesEngine()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
