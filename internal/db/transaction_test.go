package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTransaction_CommitsOnceAndClosesOnce(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	err := engine.WithTransaction(context.Background(), func(ctx context.Context) error {
		useCursor(t, ctx)
		return nil
	})
	require.NoError(t, err)

	raw := factory.last(t)
	assert.Equal(t, 1, raw.commits)
	assert.Equal(t, 0, raw.rollbacks)
	assert.Equal(t, 1, raw.closes)
	// Finalization runs strictly before the connection is released.
	assert.Equal(t, []string{"cursor", "commit", "close"}, raw.calls)
}

func TestWithTransaction_NestedOnlyOutermostCommits(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	err := engine.WithTransaction(context.Background(), func(outer context.Context) error {
		state, ok := StateFromContext(outer)
		require.True(t, ok)
		assert.True(t, state.InTransaction())

		err := engine.WithTransaction(outer, func(inner context.Context) error {
			useCursor(t, inner)
			return nil
		})
		require.NoError(t, err)

		// No commit and no new connection from the inner scope.
		assert.Equal(t, 1, factory.calls)
		assert.Equal(t, 0, factory.last(t).commits)
		assert.True(t, state.InTransaction())
		return nil
	})
	require.NoError(t, err)

	raw := factory.last(t)
	assert.Equal(t, 1, factory.calls)
	assert.Equal(t, 1, raw.commits)
	assert.Equal(t, 0, raw.rollbacks)
	assert.Equal(t, 1, raw.closes)
}

func TestWithTransaction_ErrorRollsBackAndPropagatesUnchanged(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	wantErr := errors.New("insert failed")
	err := engine.WithTransaction(context.Background(), func(ctx context.Context) error {
		useCursor(t, ctx)
		return wantErr
	})
	assert.Equal(t, wantErr, err)

	raw := factory.last(t)
	assert.Equal(t, 0, raw.commits)
	assert.Equal(t, 1, raw.rollbacks)
	assert.Equal(t, 1, raw.closes)
	assert.Equal(t, []string{"cursor", "rollback", "close"}, raw.calls)
}

func TestWithTransaction_InnerErrorRollsBackOutermost(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	wantErr := errors.New("inner failure")
	err := engine.WithTransaction(context.Background(), func(outer context.Context) error {
		return engine.WithTransaction(outer, func(inner context.Context) error {
			useCursor(t, inner)
			return wantErr
		})
	})
	assert.Equal(t, wantErr, err)

	raw := factory.last(t)
	assert.Equal(t, 0, raw.commits)
	assert.Equal(t, 1, raw.rollbacks)
	assert.Equal(t, 1, raw.closes)
}

func TestWithTransaction_SwallowedInnerErrorCommits(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	err := engine.WithTransaction(context.Background(), func(outer context.Context) error {
		innerErr := engine.WithTransaction(outer, func(inner context.Context) error {
			useCursor(t, inner)
			return errors.New("recoverable")
		})
		// The outer scope decides: swallowing the inner error means commit.
		assert.Error(t, innerErr)
		return nil
	})
	require.NoError(t, err)

	raw := factory.last(t)
	assert.Equal(t, 1, raw.commits)
	assert.Equal(t, 0, raw.rollbacks)
}

func TestWithTransaction_CommitFailureTriggersRecoveryRollback(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	commitErr := errors.New("commit rejected")
	err := engine.WithTransaction(context.Background(), func(ctx context.Context) error {
		useCursor(t, ctx)
		factory.last(t).commitErr = commitErr
		return nil
	})
	assert.ErrorIs(t, err, commitErr)

	raw := factory.last(t)
	assert.Equal(t, 1, raw.commits)
	assert.Equal(t, 1, raw.rollbacks)
	// The session is unusable after a failed commit and gets closed exactly
	// once; the owning scope's cleanup afterwards is a no-op.
	assert.Equal(t, 1, raw.closes)
	assert.Equal(t, []string{"cursor", "commit", "rollback", "close"}, raw.calls)
}

func TestWithTransaction_RecoveryRollbackFailureDoesNotMaskCommitError(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	commitErr := errors.New("commit rejected")
	err := engine.WithTransaction(context.Background(), func(ctx context.Context) error {
		useCursor(t, ctx)
		raw := factory.last(t)
		raw.commitErr = commitErr
		raw.rollbackErr = errors.New("rollback also failed")
		return nil
	})
	assert.ErrorIs(t, err, commitErr)
	assert.NotContains(t, err.Error(), "rollback also failed")
}

func TestWithTransaction_RollbackFailureDoesNotMaskOriginalError(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	wantErr := errors.New("work failed")
	err := engine.WithTransaction(context.Background(), func(ctx context.Context) error {
		useCursor(t, ctx)
		factory.last(t).rollbackErr = errors.New("rollback failed")
		return wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 1, factory.last(t).closes)
}

func TestWithTransaction_PanicRollsBackAndRepanics(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	require.PanicsWithValue(t, "boom", func() {
		_ = engine.WithTransaction(context.Background(), func(ctx context.Context) error {
			useCursor(t, ctx)
			panic("boom")
		})
	})

	raw := factory.last(t)
	assert.Equal(t, 0, raw.commits)
	assert.Equal(t, 1, raw.rollbacks)
	assert.Equal(t, 1, raw.closes)
}

func TestWithTransaction_UnusedTransactionNeverConnects(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	err := engine.WithTransaction(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, factory.calls)
}

func TestWithTransaction_InsideConnectionScopeDoesNotOwn(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	err := engine.WithConnection(context.Background(), func(outer context.Context) error {
		err := engine.WithTransaction(outer, func(inner context.Context) error {
			useCursor(t, inner)
			return nil
		})
		require.NoError(t, err)

		raw := factory.last(t)
		// The transaction committed but the connection scope still owns the
		// connection: it stays open and usable.
		assert.Equal(t, 1, raw.commits)
		assert.Equal(t, 0, raw.closes)
		useCursor(t, outer)
		return nil
	})
	require.NoError(t, err)

	raw := factory.last(t)
	assert.Equal(t, 1, factory.calls)
	assert.Equal(t, 1, raw.closes)
}

func TestWithTransaction_ConnectionScopeInsideTransactionDoesNotOwn(t *testing.T) {
	factory := &fakeFactory{}
	engine := newTestEngine(t, factory)

	err := engine.WithTransaction(context.Background(), func(outer context.Context) error {
		return engine.WithConnection(outer, func(inner context.Context) error {
			useCursor(t, inner)
			return nil
		})
	})
	require.NoError(t, err)

	raw := factory.last(t)
	assert.Equal(t, 1, factory.calls)
	assert.Equal(t, 1, raw.commits)
	assert.Equal(t, 1, raw.closes)
	assert.Equal(t, []string{"cursor", "commit", "close"}, raw.calls)
}
