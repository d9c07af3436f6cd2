// Package pipeline wires corner detection, perspective warping and
// enhancement into a single document rectification flow.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/squaredoc/rectify/internal/detector"
	"github.com/squaredoc/rectify/internal/enhance"
)

// Config holds configuration for the rectification pipeline and its components.
type Config struct {
	Detector detector.Config
	Enhance  enhance.Config

	// Parallel processing configuration
	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Detector: detector.DefaultConfig(),
		Enhance:  enhance.DefaultConfig(),
		Parallel: DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg    Config
	logger *slog.Logger
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithDetectorConfig replaces the whole detection configuration.
func (b *Builder) WithDetectorConfig(cfg detector.Config) *Builder {
	b.cfg.Detector = cfg
	return b
}

// WithEdgeThreshold overrides the fixed edge magnitude threshold.
func (b *Builder) WithEdgeThreshold(th float64) *Builder {
	if th > 0 {
		b.cfg.Detector.EdgeThreshold = th
	}
	return b
}

// WithAutoThreshold toggles Otsu-based edge thresholding.
func (b *Builder) WithAutoThreshold(enabled bool) *Builder {
	b.cfg.Detector.AutoThreshold = enabled
	return b
}

// WithMinAreaRatio sets the minimum contour area relative to the frame.
func (b *Builder) WithMinAreaRatio(ratio float64) *Builder {
	if ratio > 0 {
		b.cfg.Detector.MinAreaRatio = ratio
	}
	return b
}

// WithMaxProcessingDim caps the working resolution used during detection.
func (b *Builder) WithMaxProcessingDim(dim int) *Builder {
	if dim > 0 {
		b.cfg.Detector.MaxProcessingDim = dim
	}
	return b
}

// WithSnapToMinRect snaps detected quads to their minimum-area rectangle.
func (b *Builder) WithSnapToMinRect(enabled bool) *Builder {
	b.cfg.Detector.SnapToMinRect = enabled
	return b
}

// WithEnhanceConfig replaces the whole enhancement configuration.
func (b *Builder) WithEnhanceConfig(cfg enhance.Config) *Builder {
	b.cfg.Enhance = cfg
	return b
}

// WithDenoise enables noise reduction with the given strength.
// A strength of zero keeps the current value.
func (b *Builder) WithDenoise(enabled bool, strength float64) *Builder {
	b.cfg.Enhance.Denoise = enabled
	if strength > 0 {
		b.cfg.Enhance.DenoiseStrength = strength
	}
	return b
}

// WithContrast enables adaptive contrast with the given clip limit.
// A clip limit of zero keeps the current value.
func (b *Builder) WithContrast(enabled bool, clipLimit float64) *Builder {
	b.cfg.Enhance.Contrast = enabled
	if clipLimit > 0 {
		b.cfg.Enhance.ContrastClipLimit = clipLimit
	}
	return b
}

// WithSharpen enables unsharp masking with the given amount.
// Amount zero is a legal value and is passed through.
func (b *Builder) WithSharpen(enabled bool, amount float64) *Builder {
	b.cfg.Enhance.Sharpen = enabled
	b.cfg.Enhance.SharpenAmount = amount
	return b
}

// WithScaleBounds sets the output size policy relative to the input.
func (b *Builder) WithScaleBounds(minScale, maxScale float64) *Builder {
	if minScale > 0 {
		b.cfg.Enhance.MinScaleFactor = minScale
	}
	if maxScale > 0 {
		b.cfg.Enhance.MaxScaleFactor = maxScale
	}
	return b
}

// WithParallelWorkers sets the worker count for batch processing.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback attaches progress reporting to batch runs.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// WithLogger sets the logger used for stage diagnostics.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration looks sane.
func (b *Builder) Validate() error {
	if b.cfg.Detector.MaxProcessingDim < 0 {
		return fmt.Errorf("max processing dimension must not be negative: %d", b.cfg.Detector.MaxProcessingDim)
	}
	if b.cfg.Detector.MinAreaRatio < 0 || b.cfg.Detector.MinAreaRatio > 1 {
		return fmt.Errorf("min area ratio out of range [0, 1]: %g", b.cfg.Detector.MinAreaRatio)
	}
	if b.cfg.Parallel.MaxWorkers < 0 {
		return fmt.Errorf("worker count must not be negative: %d", b.cfg.Parallel.MaxWorkers)
	}
	return nil
}

// Pipeline runs detection, warping and enhancement on document images.
type Pipeline struct {
	cfg      Config
	detector *detector.Detector
	enhancer *enhance.Enhancer
	logger   *slog.Logger
}

// Build initializes the rectification pipeline components.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      b.cfg,
		detector: detector.New(b.cfg.Detector),
		enhancer: enhance.NewEnhancer(b.cfg.Enhance, logger),
		logger:   logger,
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Info returns a map with key pipeline properties.
func (p *Pipeline) Info() map[string]interface{} {
	det := p.cfg.Detector
	enh := p.enhancer.Config()
	return map[string]interface{}{
		"detector": map[string]interface{}{
			"max_processing_dim": det.MaxProcessingDim,
			"edge_threshold":     det.EdgeThreshold,
			"auto_threshold":     det.AutoThreshold,
			"min_area_ratio":     det.MinAreaRatio,
			"snap_to_min_rect":   det.SnapToMinRect,
		},
		"enhance": map[string]interface{}{
			"denoise":          enh.Denoise,
			"denoise_strength": enh.DenoiseStrength,
			"contrast":         enh.Contrast,
			"clip_limit":       enh.ContrastClipLimit,
			"sharpen":          enh.Sharpen,
			"sharpen_amount":   enh.SharpenAmount,
			"min_scale":        enh.MinScaleFactor,
			"max_scale":        enh.MaxScaleFactor,
		},
		"parallel": map[string]interface{}{
			"max_workers":           p.cfg.Parallel.MaxWorkers,
			"has_progress_callback": p.cfg.Parallel.ProgressCallback != nil,
		},
	}
}
