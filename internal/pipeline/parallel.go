package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                           // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback              // Optional progress reporting
	ErrorHandler     func(int, image.Image, error) // Optional per-image error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		MaxWorkers: runtime.NumCPU(),
	}
}

// imageJob represents a single image processing job.
type imageJob struct {
	index int
	image image.Image
}

// imageResult represents the result of processing a single image.
type imageResult struct {
	index  int
	result *Result
	err    error
}

// ProcessImagesParallel rectifies multiple images in parallel using a worker
// pool. Results come back in input order.
func (p *Pipeline) ProcessImagesParallel(images []image.Image, config ParallelConfig) ([]*Result, error) {
	return p.ProcessImagesParallelContext(context.Background(), images, config)
}

// ProcessImagesParallelContext rectifies images in parallel with context
// cancellation support. A failed image leaves a nil slot in the result
// slice; the first error is returned alongside the partial results.
func (p *Pipeline) ProcessImagesParallelContext(ctx context.Context, images []image.Image, config ParallelConfig) ([]*Result, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if p == nil || p.detector == nil {
		return nil, errors.New("pipeline not initialized")
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}

	// A single image or worker degenerates to the sequential path.
	if len(images) == 1 || config.MaxWorkers == 1 {
		return p.ProcessImagesContext(ctx, images)
	}

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(images))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan imageJob, len(images))
	results := make(chan imageResult, len(images))

	var wg sync.WaitGroup
	for range config.MaxWorkers {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, img := range images {
			select {
			case jobs <- imageJob{index: i, image: img}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	resultMap := make(map[int]*Result)
	errorMap := make(map[int]error)
	processedCount := 0

	for result := range results {
		resultMap[result.index] = result.result
		errorMap[result.index] = result.err
		processedCount++

		if config.ProgressCallback != nil {
			config.ProgressCallback.OnProgress(processedCount, len(images))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orderedResults := make([]*Result, len(images))
	var firstError error

	for i := range images {
		if err := errorMap[i]; err != nil {
			if firstError == nil {
				firstError = fmt.Errorf("image %d: %w", i, err)
			}
			if config.ErrorHandler != nil {
				config.ErrorHandler(i, images[i], err)
			}
			if config.ProgressCallback != nil {
				config.ProgressCallback.OnError(i, err)
			}
		} else {
			orderedResults[i] = resultMap[i]
		}
	}

	return orderedResults, firstError
}

// worker rectifies images from the jobs channel.
func (p *Pipeline) worker(
	ctx context.Context,
	jobs <-chan imageJob,
	results chan<- imageResult,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}

			result, err := p.ProcessContext(ctx, job.image, nil)

			select {
			case results <- imageResult{index: job.index, result: result, err: err}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats summarizes a parallel run for reporting.
func CalculateParallelStats(
	images []image.Image,
	results []*Result,
	duration time.Duration,
	workerCount int,
) ParallelStats {
	totalImages := len(images)
	processedImages := 0
	failedImages := 0

	for _, result := range results {
		if result != nil {
			processedImages++
		} else {
			failedImages++
		}
	}

	var avgPerImage time.Duration
	var throughput float64

	if processedImages > 0 {
		avgPerImage = duration / time.Duration(processedImages)
		throughput = float64(processedImages) / duration.Seconds()
	}

	return ParallelStats{
		TotalImages:      totalImages,
		ProcessedImages:  processedImages,
		FailedImages:     failedImages,
		WorkerCount:      workerCount,
		TotalDuration:    duration,
		AveragePerImage:  avgPerImage,
		ThroughputPerSec: throughput,
	}
}
