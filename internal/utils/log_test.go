package utils

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogInterceptorPrefixesCompleteLines(t *testing.T) {
	var out bytes.Buffer
	li := NewLogInterceptor(&out)

	n, err := li.Write([]byte("first\r\nsec"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = li.Write([]byte("ond\nthird"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "line=1 time="))
	assert.True(t, strings.HasSuffix(lines[0], " first"))
	assert.True(t, strings.HasPrefix(lines[1], "line=2 time="))
	assert.True(t, strings.HasSuffix(lines[1], " second"))

	require.NoError(t, li.Close())
	assert.True(t, strings.HasSuffix(out.String(), " third\n"))
	assert.Contains(t, out.String(), "line=3 ")

	require.NoError(t, li.Close())
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiLogHandler(t *testing.T) {
	var debug, info bytes.Buffer
	h := NewMultiLogHandler(
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	logger := slog.New(h).With("pass", 1)

	logger.Debug("planning")
	logger.Info("synced", "files", 3)

	assert.Contains(t, debug.String(), "msg=planning pass=1")
	assert.Contains(t, debug.String(), "msg=synced pass=1 files=3")
	assert.NotContains(t, info.String(), "planning")
	assert.Contains(t, info.String(), "msg=synced pass=1 files=3")
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug-1))
}

func TestMultiLogHandlerKeepsGoingAfterFailure(t *testing.T) {
	var out bytes.Buffer
	text := slog.NewTextHandler(&out, nil)
	h := NewMultiLogHandler(failingHandler{text}, text)

	err := slog.New(h).Handler().Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "hello", 0))
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, out.String(), "msg=hello")
}
