package db

import (
	"context"
	"fmt"
	"log/slog"
)

// State holds the connection and transaction bookkeeping for one execution
// context. It is created by the first scope entered on a context, carried on
// the context.Context, and must never be shared across goroutines: raw
// connections are not safe for concurrent use.
type State struct {
	conn    *LazyConn
	txDepth int
}

type stateKey struct{}

func withState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// StateFromContext returns the connection state installed by an enclosing
// WithConnection or WithTransaction call, if any.
func StateFromContext(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(stateKey{}).(*State)
	return s, ok
}

// IsInitialized reports whether the state holds a connection.
func (s *State) IsInitialized() bool {
	return s.conn != nil
}

// Init creates a fresh lazy connection. Callers must check IsInitialized
// first; initializing twice fails with ErrAlreadyInitialized.
func (s *State) Init(engine *Engine) error {
	if s.conn != nil {
		return fmt.Errorf("%w: connection state", ErrAlreadyInitialized)
	}
	s.conn = newLazyConn(engine)
	s.txDepth = 0
	return nil
}

// Cleanup closes the connection and resets the state. It must only run once
// the transaction depth reached zero. Close failures are logged, never
// returned: cleanup runs during unwinding and must not fail itself. Cleaning
// up twice is a no-op.
func (s *State) Cleanup(log *slog.Logger) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		log.Error("failed to close database connection",
			slog.String("error", err.Error()))
	}
	s.conn = nil
}

// Cursor returns a cursor from the context's connection. It fails with
// ErrNotInitialized when called outside an active scope.
func (s *State) Cursor(ctx context.Context) (Cursor, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("%w: no active connection scope", ErrNotInitialized)
	}
	return s.conn.Cursor(ctx)
}

// InTransaction reports whether a transaction scope is currently active.
func (s *State) InTransaction() bool {
	return s.txDepth > 0
}

// Commit commits the context's connection. The query layer uses it to
// auto-commit statements executed outside a transaction scope.
func (s *State) Commit() error {
	if s.conn == nil {
		return fmt.Errorf("%w: no active connection scope", ErrNotInitialized)
	}
	return s.conn.Commit()
}
