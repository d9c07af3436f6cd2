package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCallback is a thread-safe ProgressCallback for assertions.
type recordingCallback struct {
	mu        sync.Mutex
	started   int
	updates   int
	completed bool
	errs      int
}

func (r *recordingCallback) OnStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = total
}

func (r *recordingCallback) OnProgress(current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
}

func (r *recordingCallback) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
}

func (r *recordingCallback) OnError(current int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs++
}

func batchImages(n int) []image.Image {
	images := make([]image.Image, n)
	for i := range images {
		// Distinct page sizes so result order is observable.
		w := 200 + i*20
		h := 160 + i*16
		images[i] = pageImage(w, h, 30, 24, w-30, h-24)
	}
	return images
}

func TestProcessImagesParallelOrdered(t *testing.T) {
	p := mustBuild(t, NewBuilder().WithScaleBounds(0.25, 4))
	images := batchImages(6)

	results, err := p.ProcessImagesParallel(images, ParallelConfig{MaxWorkers: 3})
	require.NoError(t, err)
	require.Len(t, results, len(images))

	for i, res := range results {
		require.NotNil(t, res, "result %d missing", i)
		expectedW := (200 + i*20) - 60
		assert.InDelta(t, expectedW, res.Width, 14, "result %d out of order", i)
	}
}

func TestProcessImagesParallelEmpty(t *testing.T) {
	p := mustBuild(t, NewBuilder())
	_, err := p.ProcessImagesParallel(nil, ParallelConfig{})
	require.Error(t, err)
}

func TestProcessImagesParallelSingleFallsBackSequential(t *testing.T) {
	p := mustBuild(t, NewBuilder().WithScaleBounds(0.25, 4))
	images := batchImages(1)

	results, err := p.ProcessImagesParallel(images, ParallelConfig{MaxWorkers: 8})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0])
}

func TestProcessImagesParallelReportsFirstError(t *testing.T) {
	p := mustBuild(t, NewBuilder().WithScaleBounds(0.25, 4))
	images := batchImages(4)
	images[2] = nil // unsupported input

	var handlerCalls int
	var mu sync.Mutex
	cfg := ParallelConfig{
		MaxWorkers: 2,
		ErrorHandler: func(index int, _ image.Image, err error) {
			mu.Lock()
			defer mu.Unlock()
			handlerCalls++
			assert.Equal(t, 2, index)
			assert.Error(t, err)
		},
	}

	results, err := p.ProcessImagesParallel(images, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 2")
	require.Len(t, results, 4)
	assert.Nil(t, results[2])
	assert.NotNil(t, results[0])
	assert.NotNil(t, results[1])
	assert.NotNil(t, results[3])
	assert.Equal(t, 1, handlerCalls)
}

func TestProcessImagesParallelProgress(t *testing.T) {
	p := mustBuild(t, NewBuilder().WithScaleBounds(0.25, 4))
	images := batchImages(5)

	cb := &recordingCallback{}
	_, err := p.ProcessImagesParallel(images, ParallelConfig{MaxWorkers: 2, ProgressCallback: cb})
	require.NoError(t, err)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	assert.Equal(t, 5, cb.started)
	assert.Equal(t, 5, cb.updates)
	assert.True(t, cb.completed)
	assert.Zero(t, cb.errs)
}

func TestProcessImagesParallelCancelled(t *testing.T) {
	p := mustBuild(t, NewBuilder())
	images := batchImages(8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessImagesParallelContext(ctx, images, ParallelConfig{MaxWorkers: 4})
	require.Error(t, err)
}

func TestCalculateParallelStats(t *testing.T) {
	images := batchImages(4)
	results := []*Result{{}, nil, {}, {}}

	stats := CalculateParallelStats(images, results, 2*time.Second, 3)
	assert.Equal(t, 4, stats.TotalImages)
	assert.Equal(t, 3, stats.ProcessedImages)
	assert.Equal(t, 1, stats.FailedImages)
	assert.Equal(t, 3, stats.WorkerCount)
	assert.InDelta(t, 1.5, stats.ThroughputPerSec, 1e-9)
	assert.Equal(t, 2*time.Second/3, stats.AveragePerImage)
}
