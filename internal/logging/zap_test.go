package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_LevelsAndFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewZapLogger(zap.New(core))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "dbg", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, int64(4), entries[3].ContextMap()["d"])
}

func TestZapLogger_With(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewZapLogger(zap.New(core)).With("module", "oauth")

	log.Info(context.Background(), "hello", "subject", "u1")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "oauth", fields["module"])
	assert.Equal(t, "u1", fields["subject"])
}

func TestZapLogger_RequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewZapLogger(zap.New(core))

	log.Warn(WithRequestID(context.Background(), "req-7"), "slow upstream")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
}

func TestNew_Formats(t *testing.T) {
	l, err := New("slog", "debug")
	require.NoError(t, err)
	assert.IsType(t, &SlogLogger{}, l)

	l, err = New("zap", "info")
	require.NoError(t, err)
	assert.IsType(t, &ZapLogger{}, l)

	_, err = New("logrus", "info")
	assert.Error(t, err)
}
