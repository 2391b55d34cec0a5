package log_test

import (
	"context"
	"testing"

	"github.com/on-the-ground/knotty_go/knotty/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogEffect_WritesThroughZap(t *testing.T) {
	logger, logs := log.NewObserved(zap.DebugLevel)

	ctx, endOfLogHandler := log.WithZapEffectHandler(context.Background(), 4, logger)

	log.Eff(ctx, log.LogInfo, "hello", map[string]interface{}{"key": "value"})
	log.Eff(ctx, log.LogError, "broken", nil)
	log.Eff(ctx, log.LogDebug, "details", nil)
	log.Eff(ctx, log.LogWarn, "careful", nil)

	endOfLogHandler()

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "value", entries[0].ContextMap()["key"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
}

func TestLogEffect_NoHandlerIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		log.Eff(context.Background(), log.LogInfo, "nobody listens", nil)
	})
}

func TestLogEffect_AfterTeardownIsDropped(t *testing.T) {
	logger, logs := log.NewObserved(zap.DebugLevel)

	ctx, endOfLogHandler := log.WithZapEffectHandler(context.Background(), 1, logger)
	parent := endOfLogHandler()

	log.Eff(ctx, log.LogInfo, "too late", nil)

	assert.Equal(t, 0, logs.Len())
	assert.Equal(t, context.Background(), parent)
}
