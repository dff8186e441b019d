package core

import (
	"fmt"
	"os"

	"stockcore/internal/infra/persistence/postgres"
	"stockcore/internal/infra/persistence/sqlite"
	"stockcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// PersistentStore aliases the domain storage abstraction for callers wiring
// a backend without importing the domain package directly.
type PersistentStore = domain.PersistentStore

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	STOCKCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	STOCKCORE_SQLITE_PATH: path to sqlite file (default ./stockcore.db)
//	STOCKCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("STOCKCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return NewMemoryStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("STOCKCORE_SQLITE_PATH")
		return sqlite.NewStore(path, NewMemoryStore(engine))
	case StoragePostgres:
		dsn := os.Getenv("STOCKCORE_POSTGRES_DSN")
		return postgres.NewStore(dsn, NewMemoryStore(engine))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
