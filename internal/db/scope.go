package db

import (
	"context"

	"github.com/warpkit/warpdb/internal/platform/logger"
)

// connScope is the connection acquisition guard. It records at entry whether
// it initialized the context state, and tears the state down at exit only if
// it did. Re-entrant scopes that find the state already initialized are pure
// no-ops on exit.
type connScope struct {
	state    *State
	ownsInit bool
}

// enterScope installs the shared connection state on the context, creating
// and initializing it when no enclosing scope has done so yet. Both scope
// kinds use it, so a transaction scope nested in a connection scope (or the
// other way around) never double-owns the connection.
func enterScope(ctx context.Context, engine *Engine) (context.Context, *connScope, error) {
	state, ok := StateFromContext(ctx)
	if !ok {
		state = &State{}
		ctx = withState(ctx, state)
	}
	scope := &connScope{state: state}
	if !state.IsInitialized() {
		if err := state.Init(engine); err != nil {
			return ctx, nil, err
		}
		scope.ownsInit = true
	}
	return ctx, scope, nil
}

func (s *connScope) exit(ctx context.Context) {
	if s.ownsInit {
		s.state.Cleanup(logger.FromContext(ctx))
	}
}

// WithConnection runs fn inside a connection scope. The scope guarantees the
// context state is initialized while fn runs and releases the connection on
// every exit path, including panics, if this scope was the one that opened
// it. The physical connection is only dialed once fn first requests a
// cursor; fn's error is returned unchanged.
func (e *Engine) WithConnection(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, scope, err := enterScope(ctx, e)
	if err != nil {
		return err
	}
	defer scope.exit(ctx)
	return fn(ctx)
}
