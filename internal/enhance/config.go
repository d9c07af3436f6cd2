// Package enhance post-processes a rectified page image. Stages run in a
// fixed order: denoise, local contrast, sharpen, then the mandatory size
// policy. Each optional stage fails open; a stage error leaves the image
// unchanged and processing continues.
package enhance

// Parameter bounds. Out-of-range values are clamped, never rejected.
const (
	MinDenoiseStrength = 5.0
	MaxDenoiseStrength = 20.0

	MinClipLimit = 1.0
	MaxClipLimit = 4.0

	MinSharpenAmount = 0.0
	MaxSharpenAmount = 2.0
)

// Config controls the enhancement stages.
type Config struct {
	// Denoise runs non-local means noise reduction.
	Denoise         bool
	DenoiseStrength float64

	// Contrast runs contrast-limited adaptive histogram equalization on
	// the lightness channel.
	Contrast          bool
	ContrastClipLimit float64

	// Sharpen runs an unsharp mask. An amount of zero is an exact no-op.
	Sharpen       bool
	SharpenAmount float64

	// MaxScaleFactor and MinScaleFactor bound the output size relative to
	// the original input's longest dimension. The size policy always runs.
	MaxScaleFactor float64
	MinScaleFactor float64
}

// DefaultConfig returns the standard enhancement parameters with all
// optional stages disabled.
func DefaultConfig() Config {
	return Config{
		DenoiseStrength:   10,
		ContrastClipLimit: 2.0,
		SharpenAmount:     1.2,
		MaxScaleFactor:    1.25,
		MinScaleFactor:    0.75,
	}
}

// Clamped returns a copy with every parameter forced into its documented
// range. Zero-valued parameters take their defaults so a partially filled
// Config behaves sensibly.
func (c Config) Clamped() Config {
	def := DefaultConfig()
	if c.DenoiseStrength == 0 {
		c.DenoiseStrength = def.DenoiseStrength
	}
	if c.ContrastClipLimit == 0 {
		c.ContrastClipLimit = def.ContrastClipLimit
	}
	if c.MaxScaleFactor == 0 {
		c.MaxScaleFactor = def.MaxScaleFactor
	}
	if c.MinScaleFactor == 0 {
		c.MinScaleFactor = def.MinScaleFactor
	}

	c.DenoiseStrength = clamp(c.DenoiseStrength, MinDenoiseStrength, MaxDenoiseStrength)
	c.ContrastClipLimit = clamp(c.ContrastClipLimit, MinClipLimit, MaxClipLimit)
	c.SharpenAmount = clamp(c.SharpenAmount, MinSharpenAmount, MaxSharpenAmount)
	c.MaxScaleFactor = clamp(c.MaxScaleFactor, 1.0, 4.0)
	c.MinScaleFactor = clamp(c.MinScaleFactor, 0.25, 1.0)
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
