package internal

import (
	"context"
	"time"
)

const (
	DefaultQueryTimeout = 10 * time.Second
	ShutdownTimeout     = 30 * time.Second
)

// WithQueryTimeout bounds a one-off database or broker call. A non-positive
// timeout means DefaultQueryTimeout.
func WithQueryTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// WithShutdownTimeout detaches from ctx's cancellation so a drain can run after
// the signal context has fired.
func WithShutdownTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
}
