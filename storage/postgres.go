package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresOptions configures the networked backend
type PostgresOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres connects a pooled PostgreSQL adapter and verifies the connection
func OpenPostgres(ctx context.Context, opts PostgresOptions) (Adapter, error) {
	if opts.DSN == "" {
		return nil, errors.New("open postgres: connection string is empty")
	}

	db, err := gorm.Open(postgres.Open(opts.DSN), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	adapter := &gormAdapter{db: db, engine: EnginePostgres}
	if err := adapter.Ping(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return adapter, nil
}
