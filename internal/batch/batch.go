// Package batch rectifies collections of document images from the
// filesystem: discovery, parallel per-file processing and result
// summaries.
package batch

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/squaredoc/rectify/internal/common"
	"github.com/squaredoc/rectify/internal/pipeline"
)

// Result holds the outcome of a batch run.
type Result struct {
	Files       []*FileResult
	Duration    time.Duration
	WorkerCount int
}

// Processed counts files that produced an output image.
func (r *Result) Processed() int {
	n := 0
	for _, f := range r.Files {
		if f != nil && f.Error == "" {
			n++
		}
	}
	return n
}

// Failed counts files that recorded an error.
func (r *Result) Failed() int {
	return len(r.Files) - r.Processed()
}

// ProcessBatch rectifies a batch of images with the given configuration.
// Individual file failures are recorded in the result; only discovery and
// setup problems abort the run.
func ProcessBatch(imagePaths []string, config *Config) (*Result, error) {
	files, err := discoverImageFiles(imagePaths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}

	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var progressCallback pipeline.ProgressCallback
	if config.ShowProgress && !config.Quiet {
		progressCallback = pipeline.NewConsoleProgressCallback(
			os.Stdout,
			"Processing: ",
		).WithUpdateInterval(config.ProgressInterval)
	}

	pl, err := buildPipeline(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build rectification pipeline: %w", err)
	}

	timer := common.NewNamedTimer("batch")
	results := processFilesParallel(pl, files, config, progressCallback)
	duration := timer.Stop()

	workers := config.Workers
	if workers <= 0 {
		workers = pipeline.DefaultParallelConfig().MaxWorkers
	}

	return &Result{
		Files:       results,
		Duration:    duration,
		WorkerCount: workers,
	}, nil
}

// buildPipeline creates a rectification pipeline from the batch configuration.
func buildPipeline(config *Config) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilder().
		WithDetectorConfig(config.Detector).
		WithEnhanceConfig(config.Enhance).
		WithParallelWorkers(config.Workers).
		Build()
}

// FormatResults formats the batch results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Files, format)
}

// SaveResults saves the formatted results to a file or stdout.
func (r *Result) SaveResults(format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(os.Stdout, output)
	}

	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(quiet bool) {
	if quiet {
		return
	}
	processed := r.Processed()
	var avg time.Duration
	var throughput float64
	if processed > 0 {
		avg = r.Duration / time.Duration(processed)
		throughput = float64(processed) / r.Duration.Seconds()
	}
	_, _ = fmt.Fprintf(os.Stdout, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(os.Stdout, "  Total images: %d\n", len(r.Files))
	_, _ = fmt.Fprintf(os.Stdout, "  Processed: %d\n", processed)
	_, _ = fmt.Fprintf(os.Stdout, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(os.Stdout, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(os.Stdout, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(os.Stdout, "  Avg per image: %v\n", avg.Round(time.Millisecond))
	_, _ = fmt.Fprintf(os.Stdout, "  Throughput: %.1f images/sec\n", throughput)
	_, _ = fmt.Fprintf(os.Stdout, "  Memory: %s\n", common.GetMemoryStats())
}
