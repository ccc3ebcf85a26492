package db

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConn counts lifecycle calls and records their order. Individual calls
// can be made to fail through the err fields.
type fakeConn struct {
	calls []string

	cursors   int
	commits   int
	rollbacks int
	closes    int

	cursorErr   error
	commitErr   error
	rollbackErr error
	closeErr    error
}

func (c *fakeConn) Cursor(ctx context.Context) (Cursor, error) {
	c.calls = append(c.calls, "cursor")
	c.cursors++
	if c.cursorErr != nil {
		return nil, c.cursorErr
	}
	return &fakeCursor{}, nil
}

func (c *fakeConn) Commit() error {
	c.calls = append(c.calls, "commit")
	c.commits++
	return c.commitErr
}

func (c *fakeConn) Rollback() error {
	c.calls = append(c.calls, "rollback")
	c.rollbacks++
	return c.rollbackErr
}

func (c *fakeConn) Close() error {
	c.calls = append(c.calls, "close")
	c.closes++
	return c.closeErr
}

type fakeCursor struct{}

func (c *fakeCursor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return nil, nil
}

func (c *fakeCursor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, nil
}

func (c *fakeCursor) Close() error {
	return nil
}

// fakeFactory produces fakeConns and keeps every connection it handed out so
// tests can inspect them after the scopes exited.
type fakeFactory struct {
	calls int
	conns []*fakeConn
	err   error
}

func (f *fakeFactory) connect(ctx context.Context) (Conn, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	conn := &fakeConn{}
	f.conns = append(f.conns, conn)
	return conn, nil
}

// last returns the most recently created connection.
func (f *fakeFactory) last(t *testing.T) *fakeConn {
	t.Helper()
	require.NotEmpty(t, f.conns)
	return f.conns[len(f.conns)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine builds an initialized engine backed by the fake factory.
func newTestEngine(t *testing.T, factory *fakeFactory) *Engine {
	t.Helper()
	engine := NewEngine(discardLogger())
	require.NoError(t, engine.Initialize(factory.connect))
	return engine
}
