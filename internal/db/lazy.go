package db

import (
	"context"
	"fmt"
)

// LazyConn wraps a raw driver connection and defers the physical connect
// until a cursor is first requested. It is mutated only by the execution
// context that owns it.
type LazyConn struct {
	engine *Engine
	raw    Conn
}

func newLazyConn(engine *Engine) *LazyConn {
	return &LazyConn{engine: engine}
}

// Cursor returns a cursor bound to the raw connection, connecting first if
// needed. On connect failure the wrapper stays unconnected, so a later call
// retries.
func (c *LazyConn) Cursor(ctx context.Context) (Cursor, error) {
	if c.raw == nil {
		raw, err := c.engine.Connect(ctx)
		if err != nil {
			return nil, err
		}
		c.raw = raw
	}
	return c.raw.Cursor(ctx)
}

// Connected reports whether the physical connection has been opened.
func (c *LazyConn) Connected() bool {
	return c.raw != nil
}

// Commit delegates to the raw connection.
func (c *LazyConn) Commit() error {
	if c.raw == nil {
		return fmt.Errorf("%w: commit", ErrNotConnected)
	}
	return c.raw.Commit()
}

// Rollback delegates to the raw connection.
func (c *LazyConn) Rollback() error {
	if c.raw == nil {
		return fmt.Errorf("%w: rollback", ErrNotConnected)
	}
	return c.raw.Rollback()
}

// Close releases the raw connection if one was opened. Closing an already
// closed or never connected wrapper is a no-op.
func (c *LazyConn) Close() error {
	if c.raw == nil {
		return nil
	}
	raw := c.raw
	c.raw = nil
	c.engine.metrics.ConnectionClosed()
	c.engine.logger.Debug("closed database connection")
	return raw.Close()
}
