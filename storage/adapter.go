// Package storage hides the two relational engines behind one narrow adapter.
//
// Callers write statements with positional "?" placeholders and receive rows as
// column-keyed maps, whether the engine is a pooled PostgreSQL connection or an
// embedded SQLite file.
package storage

import "context"

// Engine identifies the relational engine behind an Adapter
type Engine string

const (
	EnginePostgres Engine = "postgres"
	EngineSQLite   Engine = "sqlite"
)

// Result describes the outcome of a write statement
type Result struct {
	RowsAffected int64
}

// Adapter is the uniform statement interface over both engines
type Adapter interface {
	// Execute runs a statement that returns no rows
	Execute(ctx context.Context, statement string, args ...any) (Result, error)

	// QueryAll returns every row produced by the statement, in engine order
	QueryAll(ctx context.Context, statement string, args ...any) ([]Row, error)

	// QueryOne returns the first row; found is false when there is none
	QueryOne(ctx context.Context, statement string, args ...any) (row Row, found bool, err error)

	// Engine reports which engine is in use
	Engine() Engine

	// Ping verifies the engine is reachable
	Ping(ctx context.Context) error

	// Close releases the pool or file handle
	Close() error
}
