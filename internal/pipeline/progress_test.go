package pipeline

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpProgressCallback(t *testing.T) {
	var cb NoOpProgressCallback
	cb.OnStart(10)
	cb.OnProgress(5, 10)
	cb.OnError(5, errors.New("boom"))
	cb.OnComplete()
}

func TestProgressFuncAdapter(t *testing.T) {
	var calls [][2]int
	f := ProgressFunc(func(current, total int) {
		calls = append(calls, [2]int{current, total})
	})

	f.OnStart(4)
	f.OnProgress(2, 4)
	f.OnComplete()

	require.Len(t, calls, 2)
	assert.Equal(t, [2]int{0, 4}, calls[0])
	assert.Equal(t, [2]int{2, 4}, calls[1])
}

func TestConsoleProgressCallbackOutput(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "batch: ").
		WithWidth(10).
		WithUpdateInterval(0)

	cb.OnStart(4)
	cb.OnProgress(2, 4)
	cb.OnProgress(4, 4)
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "batch: 0/4")
	assert.Contains(t, out, "2/4")
	assert.Contains(t, out, "4/4 (100.0%)")
	assert.Contains(t, out, "Completed in")
}

func TestConsoleProgressCallbackError(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "")
	cb.OnStart(2)
	cb.OnError(1, errors.New("decode failed"))

	assert.Contains(t, buf.String(), "Error at item 1: decode failed")
}

func TestConsoleProgressCallbackThrottlesUpdates(t *testing.T) {
	var buf bytes.Buffer
	cb := NewConsoleProgressCallback(&buf, "").
		WithUpdateInterval(time.Hour)

	cb.OnStart(100)
	cb.OnProgress(1, 100) // first update always renders
	before := buf.Len()
	cb.OnProgress(2, 100)
	cb.OnProgress(3, 100)
	assert.Equal(t, before, buf.Len(), "mid-run updates inside the interval are dropped")

	// The final update always renders.
	cb.OnProgress(100, 100)
	assert.Contains(t, buf.String(), "100/100")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cb := NewLogProgressCallback(logger, slog.LevelInfo, "rectify: ").WithInterval(2)

	cb.OnStart(4)
	cb.OnProgress(1, 4) // below interval, not logged
	cb.OnProgress(2, 4)
	cb.OnProgress(4, 4)
	cb.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "rectify: Starting processing")
	assert.Equal(t, 2, strings.Count(out, "Progress update"))
	assert.Contains(t, out, "rectify: Processing completed")
}

func TestThrottledProgressCallback(t *testing.T) {
	cb := &recordingCallback{}
	throttled := NewThrottledProgressCallback(cb, time.Hour)

	throttled.OnStart(10)
	throttled.OnProgress(1, 10) // first update passes
	throttled.OnProgress(2, 10) // throttled
	throttled.OnProgress(10, 10)
	throttled.OnComplete()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Equal(t, 10, cb.started)
	assert.Equal(t, 2, cb.updates)
	assert.True(t, cb.completed)
}
