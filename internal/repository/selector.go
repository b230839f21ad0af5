package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"salakbook/internal/metrics"
)

// Selector routes store operations to the durable backend when one was
// reachable at startup, rerunning the whole operation against the ephemeral
// fallback when a durable call fails. A failure affects only that call; the
// next operation tries durable-first again.
type Selector struct {
	durable  Backend
	fallback Backend
	logger   *zap.Logger
}

// NewSelector wires a selector. durable may be nil when the store was
// unreachable at startup, in which case every operation runs on the fallback.
func NewSelector(durable, fallback Backend, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{durable: durable, fallback: fallback, logger: logger}
}

// Active names the backend a fresh operation will hit first.
func (s *Selector) Active() string {
	if s.durable != nil {
		return s.durable.Name()
	}
	return s.fallback.Name()
}

// Fallback exposes the ephemeral backend for tests and diagnostics.
func (s *Selector) Fallback() Backend {
	return s.fallback
}

// Run executes op against the durable backend first. If any call inside op
// fails, the operation is rerun wholesale against the fallback so the
// ephemeral state never holds a half-applied durable diff. The returned
// fellBack flag tells the caller the result lives in volatile storage only.
func (s *Selector) Run(ctx context.Context, collection string, op func(ctx context.Context, c Collection) error) (fellBack bool, err error) {
	if s.durable != nil {
		durableErr := op(ctx, s.durable.Collection(collection))
		if durableErr == nil {
			return false, nil
		}
		metrics.BackendErrors.WithLabelValues(collection).Inc()
		metrics.BackendFallbacks.WithLabelValues(collection).Inc()
		s.logger.Warn("durable backend failed, retrying on fallback",
			zap.String("collection", collection),
			zap.Error(fmt.Errorf("%w: %v", ErrBackendUnavailable, durableErr)))
		fellBack = true
	}

	if err := op(ctx, s.fallback.Collection(collection)); err != nil {
		return fellBack, fmt.Errorf("fallback backend: %w", err)
	}
	return fellBack, nil
}
