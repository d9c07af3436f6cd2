package enhance

import (
	"errors"
	"image"
	"log/slog"
)

// Stage is one enhancement step operating on an NRGBA buffer.
type Stage interface {
	Name() string
	Apply(img *image.NRGBA) (*image.NRGBA, error)
}

var errEmptyImage = errors.New("empty image")

// Enhancer applies the configured stages in order.
type Enhancer struct {
	cfg    Config
	stages []Stage
	logger *slog.Logger
}

// NewEnhancer builds an Enhancer from cfg. The configuration is clamped,
// never rejected. A nil logger falls back to slog.Default().
func NewEnhancer(cfg Config, logger *slog.Logger) *Enhancer {
	cfg = cfg.Clamped()
	if logger == nil {
		logger = slog.Default()
	}
	var stages []Stage
	if cfg.Denoise {
		stages = append(stages, &denoiseStage{strength: cfg.DenoiseStrength})
	}
	if cfg.Contrast {
		stages = append(stages, &contrastStage{clipLimit: cfg.ContrastClipLimit})
	}
	if cfg.Sharpen {
		stages = append(stages, &sharpenStage{amount: cfg.SharpenAmount})
	}
	return &Enhancer{cfg: cfg, stages: stages, logger: logger}
}

// Config returns the effective (clamped) configuration.
func (e *Enhancer) Config() Config { return e.cfg }

// Enhance runs the optional stages and then the size policy. refW and refH
// are the dimensions of the original input image; the size policy bounds
// the output's longest side relative to theirs. A failing stage logs a
// warning and passes its input through unchanged.
func (e *Enhancer) Enhance(img *image.NRGBA, refW, refH int) *image.NRGBA {
	if img == nil {
		return nil
	}
	cur := img
	for _, s := range e.stages {
		out, err := s.Apply(cur)
		if err != nil {
			e.logger.Warn("enhancement stage failed, passing image through",
				"stage", s.Name(), "error", err)
			continue
		}
		cur = out
	}
	return applySizePolicy(cur, refW, refH, e.cfg.MinScaleFactor, e.cfg.MaxScaleFactor)
}
