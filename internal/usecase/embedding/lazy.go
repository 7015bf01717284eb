// Package embedding holds the provider-lifecycle decorators shared by the
// query and document embedders.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// Factory constructs the underlying provider. It runs at most once per
// process; anything slow — model load, endpoint probe — belongs here, not in
// the constructor.
type Factory func(ctx context.Context) (domain.Embedder, error)

// Lazy defers provider initialization to the first Embed call. Concurrent
// first callers block on the same in-flight initialization, and the outcome —
// success or failure — is cached for the process lifetime. After load the
// inner provider is a shared read-only handle, safe for unsynchronized
// concurrent use.
type Lazy struct {
	factory Factory
	logger  *zap.Logger

	once    sync.Once
	inner   domain.Embedder
	initErr error
}

// NewLazy creates the lazy-initialization decorator.
func NewLazy(factory Factory, logger *zap.Logger) *Lazy {
	return &Lazy{factory: factory, logger: logger}
}

func (l *Lazy) init(ctx context.Context) {
	l.once.Do(func() {
		inner, err := l.factory(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrProviderUnavailable) {
				err = fmt.Errorf("%v: %w", err, domain.ErrProviderUnavailable)
			}
			l.initErr = fmt.Errorf("initialize embedding provider: %w", err)
			l.logger.Error("embedding provider initialization failed", zap.Error(err))
			return
		}
		l.inner = inner
		l.logger.Info("embedding provider initialized")
	})
}

// Embed initializes the provider on first use and delegates to it. After a
// failed initialization every call returns ErrProviderUnavailable.
func (l *Lazy) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	l.init(ctx)
	if l.initErr != nil {
		return domain.EmbeddingResult{}, l.initErr
	}
	return l.inner.Embed(ctx, text)
}

// HealthCheck initializes the provider if needed and delegates the check.
func (l *Lazy) HealthCheck(ctx context.Context) error {
	l.init(ctx)
	if l.initErr != nil {
		return l.initErr
	}
	if hc, ok := l.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
