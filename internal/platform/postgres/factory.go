package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/warpkit/warpdb/internal/db"
)

// NewFactory returns a db.Factory that checks a dedicated session out of the
// given pool for each execution context. The pool handles dialing and
// credentials; the runtime owns the session for the lifetime of its scope.
func NewFactory(pool *sql.DB) db.Factory {
	return func(ctx context.Context) (db.Conn, error) {
		session, err := pool.Conn(ctx)
		if err != nil {
			return nil, MapError(err)
		}
		return &sqlConn{session: session}, nil
	}
}

// sqlConn is a dedicated database session with DB-API style transaction
// handling: the first cursor opens a transaction which stays open until
// Commit or Rollback. Commit and rollback with no open transaction are
// no-ops.
type sqlConn struct {
	session *sql.Conn
	tx      *sql.Tx
}

var _ db.Conn = (*sqlConn)(nil)

func (c *sqlConn) Cursor(ctx context.Context) (db.Cursor, error) {
	if c.tx == nil {
		tx, err := c.session.BeginTx(ctx, nil)
		if err != nil {
			return nil, MapError(err)
		}
		c.tx = tx
	}
	return &sqlCursor{tx: c.tx}, nil
}

func (c *sqlConn) Commit() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return MapError(tx.Commit())
}

func (c *sqlConn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return MapError(tx.Rollback())
}

// Close discards any open transaction and returns the session to the pool.
func (c *sqlConn) Close() error {
	var rbErr error
	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			rbErr = err
		}
		c.tx = nil
	}
	if err := c.session.Close(); err != nil {
		return MapError(err)
	}
	return MapError(rbErr)
}

// sqlCursor executes statements on the session's open transaction.
type sqlCursor struct {
	tx *sql.Tx
}

var _ db.Cursor = (*sqlCursor)(nil)

func (c *sqlCursor) Query(ctx context.Context, query string, args ...any) (db.Rows, error) {
	rows, err := c.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	return rows, nil
}

func (c *sqlCursor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := c.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// Close is a no-op: statement resources live on the returned rows.
func (c *sqlCursor) Close() error {
	return nil
}
