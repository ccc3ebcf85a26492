package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warpkit/warpdb/internal/platform/logger"
)

// txScope layers transaction reference counting over the shared connection
// state. Every entry increments the depth counter; only the exit that brings
// it back to zero commits or rolls back.
type txScope struct {
	engine         *Engine
	state          *State
	ownsConnection bool
	exited         bool
}

func enterTransaction(ctx context.Context, engine *Engine, log *slog.Logger) (context.Context, *txScope, error) {
	ctx, conn, err := enterScope(ctx, engine)
	if err != nil {
		return ctx, nil, err
	}
	scope := &txScope{
		engine:         engine,
		state:          conn.state,
		ownsConnection: conn.ownsInit,
	}
	scope.state.txDepth++
	if scope.state.txDepth == 1 {
		log.Debug("begin transaction")
		engine.metrics.TransactionBegun()
	} else {
		log.Debug("join current transaction", slog.Int("depth", scope.state.txDepth))
		engine.metrics.TransactionJoined()
	}
	return ctx, scope, nil
}

// exit decrements the nesting depth and, on the transition to zero,
// finalizes the transaction according to err: nil commits, anything else
// rolls back. It returns the error the caller should observe. Finalization
// always runs strictly before the connection is released.
func (s *txScope) exit(log *slog.Logger, err error) error {
	if s.exited {
		return err
	}
	s.exited = true
	s.state.txDepth--
	if s.state.txDepth > 0 {
		return err
	}
	defer func() {
		if s.ownsConnection {
			s.state.Cleanup(log)
		}
	}()
	// A transaction that never pulled a cursor has no physical connection
	// and nothing to finalize.
	if !s.state.conn.Connected() {
		return err
	}
	if err == nil {
		return s.commit(log)
	}
	s.rollback(log)
	return err
}

// commit commits the outermost transaction. When the commit itself fails, a
// rollback is attempted as best-effort recovery and the connection is closed:
// the session is suspect after a failed commit, and a later cursor in a
// still-open outer scope must get a fresh physical connection. The commit
// failure is what the caller observes; rollback and close failures are only
// logged.
func (s *txScope) commit(log *slog.Logger) error {
	err := s.state.conn.Commit()
	if err == nil {
		log.Debug("transaction committed")
		s.engine.metrics.TransactionCommitted()
		return nil
	}
	log.Error("failed to commit transaction, trying rollback",
		slog.String("error", err.Error()))
	if rbErr := s.state.conn.Rollback(); rbErr != nil {
		log.Error("failed to roll back transaction after commit failure",
			slog.String("rollback_error", rbErr.Error()),
			slog.String("commit_error", err.Error()))
	}
	if closeErr := s.state.conn.Close(); closeErr != nil {
		log.Error("failed to close connection after commit failure",
			slog.String("error", closeErr.Error()))
	}
	return fmt.Errorf("failed to commit transaction: %w", err)
}

// rollback discards the outermost transaction. A rollback failure is logged,
// never raised: it must not mask the error that triggered it.
func (s *txScope) rollback(log *slog.Logger) {
	if err := s.state.conn.Rollback(); err != nil {
		log.Error("failed to roll back transaction",
			slog.String("error", err.Error()))
		return
	}
	log.Debug("transaction rolled back")
	s.engine.metrics.TransactionRolledBack()
}

// WithTransaction runs fn inside a transaction scope. Scopes nest freely
// within one execution context: inner scopes join the transaction already in
// progress and only the outermost exit commits (fn returned nil) or rolls
// back (fn returned an error, or panicked). The connection is released after
// finalization if this scope was the one that opened it, and fn's error is
// returned unchanged on the rollback path.
func (e *Engine) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx)
	ctx, scope, err := enterTransaction(ctx, e, log)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = scope.exit(log, fmt.Errorf("panic in transaction: %v", p))
			panic(p)
		}
	}()
	return scope.exit(log, fn(ctx))
}
