package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormAdapter implements Adapter on top of a gorm connection. Both engines
// share it; gorm's dialector rewrites "?" placeholders for PostgreSQL.
type gormAdapter struct {
	db     *gorm.DB
	engine Engine
}

// gormConfig is shared by both engines. TranslateError maps engine specific
// unique violations onto gorm.ErrDuplicatedKey.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

func (a *gormAdapter) Execute(ctx context.Context, statement string, args ...any) (Result, error) {
	tx := a.db.WithContext(ctx).Exec(statement, args...)
	if tx.Error != nil {
		return Result{}, &StorageError{Op: "execute", Err: tx.Error}
	}
	return Result{RowsAffected: tx.RowsAffected}, nil
}

func (a *gormAdapter) QueryAll(ctx context.Context, statement string, args ...any) ([]Row, error) {
	var raw []map[string]any
	if err := a.db.WithContext(ctx).Raw(statement, args...).Scan(&raw).Error; err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}

	rows := make([]Row, len(raw))
	for i, r := range raw {
		for column, v := range r {
			r[column] = deref(v)
		}
		rows[i] = Row(r)
	}
	return rows, nil
}

func (a *gormAdapter) QueryOne(ctx context.Context, statement string, args ...any) (Row, bool, error) {
	rows, err := a.QueryAll(ctx, statement, args...)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func (a *gormAdapter) Engine() Engine {
	return a.engine
}

func (a *gormAdapter) Ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

func (a *gormAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get %s connection pool: %w", a.engine, err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close %s connection: %w", a.engine, err)
	}
	return nil
}

// closeQuietly releases a half-initialized connection after a failed open
func closeQuietly(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
