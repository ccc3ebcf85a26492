package db

import "context"

// Factory produces a new raw driver connection. It is supplied once via
// Engine.Initialize and may be invoked concurrently by independent execution
// contexts afterwards.
type Factory func(ctx context.Context) (Conn, error)

// Conn is the raw connection capability set the runtime relies on. It is
// owned exclusively by the lazy connection that created it and is never
// shared across execution contexts.
type Conn interface {
	// Cursor returns a cursor bound to this connection.
	Cursor(ctx context.Context) (Cursor, error)

	// Commit commits the work performed on this connection.
	Commit() error

	// Rollback discards the work performed on this connection.
	Rollback() error

	// Close releases the underlying connection.
	Close() error
}

// Cursor executes SQL statements on its connection.
type Cursor interface {
	// Query runs a statement that yields rows.
	Query(ctx context.Context, query string, args ...any) (Rows, error)

	// Exec runs a statement and returns the number of rows affected.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Close releases any cursor-scoped resources.
	Close() error
}

// Rows is the result set of a query. *sql.Rows satisfies it directly.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
