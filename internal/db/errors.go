package db

import "errors"

// Common errors returned by the connection runtime. They are wrapped with
// fmt.Errorf("%w: ...") at the call sites and should be checked with
// errors.Is.
var (
	// ErrAlreadyInitialized is returned when the engine or a context's
	// connection state is initialized twice. This is a programmer error.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrNotInitialized is returned when a cursor or statement is requested
	// with no active connection or transaction scope. This is a programmer
	// error: SQL helpers must run inside WithConnection or WithTransaction.
	ErrNotInitialized = errors.New("not initialized")

	// ErrNotConnected is returned when commit or rollback is requested on a
	// lazy connection that never physically connected. Given the scope
	// invariants this should be unreachable.
	ErrNotConnected = errors.New("not connected")

	// ErrConnection is returned when the driver factory or the physical
	// connect fails. The connection state stays uninitialized, so a later
	// cursor request retries the connect.
	ErrConnection = errors.New("database connection failed")
)
