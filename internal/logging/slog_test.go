package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(t *testing.T, level slog.Level) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG msg=dbg a=1",
		"level=INFO msg=inf b=2",
		"level=WARN msg=wrn c=3",
		"level=ERROR msg=err d=4",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_MinLevel(t *testing.T) {
	log, buf := newTestLogger(t, slog.LevelWarn)
	ctx := context.Background()

	log.Info(ctx, "quiet")
	log.Warn(ctx, "loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestSlogLogger_RequestIDFromContext(t *testing.T) {
	log, buf := newTestLogger(t, slog.LevelDebug)
	ctx := WithRequestID(context.Background(), "req-42")

	log.With("component", "uploads").Info(ctx, "staged", "file_id", "f1")

	out := buf.String()
	assert.Contains(t, out, "component=uploads")
	assert.Contains(t, out, "file_id=f1")
	assert.Contains(t, out, "request_id=req-42")
}

func TestSlogLogger_NoRequestID(t *testing.T) {
	log, buf := newTestLogger(t, slog.LevelDebug)

	log.Info(context.TODO(), "plain")
	log.Info(WithRequestID(context.Background(), ""), "empty")

	assert.False(t, strings.Contains(buf.String(), "request_id"))
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
	assert.Equal(t, "abc", RequestID(WithRequestID(context.Background(), "abc")))
}
