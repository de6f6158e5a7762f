package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MemoryPath opens a private in-memory SQLite database
const MemoryPath = ":memory:"

// OpenSQLite opens the embedded single-file backend at path, creating the
// parent directory when needed
func OpenSQLite(ctx context.Context, path string) (Adapter, error) {
	if path == "" {
		return nil, errors.New("open sqlite: path is empty")
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("open sqlite: create directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; an in-memory database also lives on a single connection
	sqlDB.SetMaxOpenConns(1)

	adapter := &gormAdapter{db: db, engine: EngineSQLite}
	if path != MemoryPath {
		if _, err := adapter.Execute(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			closeQuietly(db)
			return nil, fmt.Errorf("open sqlite: set journal mode: %w", err)
		}
	}
	if _, err := adapter.Execute(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("open sqlite: set busy timeout: %w", err)
	}
	if err := adapter.Ping(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return adapter, nil
}
