package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Timeout bounds every execution with a deadline. A zero or negative d disables it.
// The handler observes the deadline through ctx like any other cancellation.
func Timeout(d time.Duration, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, exec *Execution, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		logger.Debug("intent timeout set",
			zap.String("execution", exec.ID),
			zap.Duration("timeout", d),
		)
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
