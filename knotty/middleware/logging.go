package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Logging logs the start and end of every execution. Cancelled executions are
// logged at debug level only.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, exec *Execution, next Handler) error {
		fields := []zap.Field{
			zap.String("store", exec.Store),
			zap.String("intent", exec.IntentType),
			zap.String("strategy", exec.Strategy),
			zap.String("execution", exec.ID),
		}
		logger.Debug("intent started", fields...)

		start := time.Now()
		err := next(ctx)
		fields = append(fields, zap.Duration("elapsed", time.Since(start)))

		switch status(err) {
		case "ok":
			logger.Info("intent completed", fields...)
		case "cancelled":
			logger.Debug("intent cancelled", fields...)
		default:
			logger.Error("intent failed", append(fields, zap.Error(err))...)
		}
		return err
	}
}
