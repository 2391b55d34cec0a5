package log

import (
	"context"

	"github.com/on-the-ground/knotty_go/knotty/internal/helper"
	"github.com/on-the-ground/knotty_go/knotty/internal/worker"
	"go.uber.org/zap"
)

// LogLevel defines the severity level for log messages.
type LogLevel string

const (
	// LogInfo is used for general informational messages.
	LogInfo LogLevel = "info"

	// LogWarn is used for potentially harmful situations.
	LogWarn LogLevel = "warn"

	// LogError is used for error events that might still allow the application to continue running.
	LogError LogLevel = "error"

	// LogDebug is used for debugging messages with detailed internal information.
	LogDebug LogLevel = "debug"
)

// LogPayload is the payload structure for logging effect.
// It contains the log level, message string, and optional structured fields.
type LogPayload struct {
	Level   LogLevel
	Message string
	Fields  map[string]interface{}
}

type effectKey struct{}

// WithZapEffectHandler registers a fire-and-forget log effect handler using zap.Logger.
// Payloads are written by a single worker goroutine, in the order they were performed.
// The teardown function flushes pending payloads, syncs the logger and returns the parent context.
func WithZapEffectHandler(
	ctx context.Context,
	bufferSize int,
	logger *zap.Logger,
) (context.Context, func() context.Context) {
	scope := worker.NewFireAndForgetScope(
		context.WithoutCancel(ctx),
		bufferSize,
		func(_ context.Context, payload LogPayload) {
			write(logger, payload)
		},
		func() {
			if err := logger.Sync(); err != nil {
				logger.Debug("failed to sync logger", zap.Error(err))
			}
		},
	)
	ctxWith := context.WithValue(ctx, effectKey{}, scope)

	return ctxWith, func() context.Context {
		scope.Close()
		return ctx
	}
}

// Eff performs a fire-and-forget log effect using the handler registered in ctx.
// Without a registered handler the call is a no-op.
func Eff(ctx context.Context, level LogLevel, msg string, fields map[string]interface{}) {
	scope, err := helper.ContextValue[*worker.Scope[LogPayload]](ctx, effectKey{})
	if err != nil {
		return
	}
	scope.Perform(context.WithoutCancel(ctx), LogPayload{
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}

func write(logger *zap.Logger, payload LogPayload) {
	fields := make([]zap.Field, 0, len(payload.Fields))
	for k, v := range payload.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	switch payload.Level {
	case LogInfo:
		logger.Info(payload.Message, fields...)
	case LogWarn:
		logger.Warn(payload.Message, fields...)
	case LogError:
		logger.Error(payload.Message, fields...)
	case LogDebug:
		logger.Debug(payload.Message, fields...)
	default:
		logger.Info(payload.Message, fields...)
	}
}
