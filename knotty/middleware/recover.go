package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recover converts a panic in the rest of the chain into an error.
func Recover(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, exec *Execution, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("intent handler panicked",
					zap.String("store", exec.Store),
					zap.String("intent", exec.IntentType),
					zap.String("execution", exec.ID),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in intent %s: %v", exec.IntentType, r)
			}
		}()
		return next(ctx)
	}
}
