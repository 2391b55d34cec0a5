package log

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewConsole builds a human-readable logger writing to stdout at the given level.
func NewConsole(level zapcore.Level) *zap.Logger {
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		level,
	)
	return zap.New(consoleCore)
}

// NewObserved builds a logger whose entries are captured in memory for assertions.
func NewObserved(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func WithTestEffectHandler(
	ctx context.Context,
) (context.Context, func() context.Context) {
	return WithZapEffectHandler(
		ctx,
		1,
		NewConsole(zap.DebugLevel),
	)
}
