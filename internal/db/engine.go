package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warpkit/warpdb/internal/platform/metrics"
)

// Engine holds the driver factory and hands out raw connections on demand.
// It is stateless besides the factory: it performs no pooling and no retries,
// so a connect failure surfaces immediately to the caller that triggered it.
//
// Initialize must complete before the engine is used concurrently; the
// factory is read-only afterwards and safe to invoke from many contexts.
type Engine struct {
	connect Factory
	logger  *slog.Logger
	metrics *metrics.Collector
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMetrics attaches a metrics collector to the engine. A nil collector is
// a safe no-op.
func WithMetrics(c *metrics.Collector) EngineOption {
	return func(e *Engine) {
		e.metrics = c
	}
}

// NewEngine creates an engine. It must be initialized with a factory before
// connections can be opened. A nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize stores the driver factory. Calling it a second time fails with
// ErrAlreadyInitialized.
func (e *Engine) Initialize(factory Factory) error {
	if e.connect != nil {
		return fmt.Errorf("%w: engine", ErrAlreadyInitialized)
	}
	if factory == nil {
		return fmt.Errorf("engine factory must not be nil")
	}
	e.connect = factory
	e.logger.Info("database engine initialized")
	return nil
}

// Connect invokes the factory and returns a new raw connection. Factory
// failures are wrapped as ErrConnection.
func (e *Engine) Connect(ctx context.Context) (Conn, error) {
	if e.connect == nil {
		return nil, fmt.Errorf("%w: engine", ErrNotInitialized)
	}
	conn, err := e.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	e.metrics.ConnectionOpened()
	e.logger.Debug("opened database connection")
	return conn, nil
}

// Metrics returns the collector attached to the engine, which may be nil.
func (e *Engine) Metrics() *metrics.Collector {
	return e.metrics
}
