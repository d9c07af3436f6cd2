package batch

import (
	"time"

	"github.com/squaredoc/rectify/internal/detector"
	"github.com/squaredoc/rectify/internal/enhance"
)

// Config holds all configuration for batch rectification.
type Config struct {
	// Component settings
	Detector detector.Config
	Enhance  enhance.Config

	// Output settings
	OutputDir  string
	OverlayDir string
	Format     string
	OutputFile string

	// Parallel processing settings
	Workers int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
}

// DefaultConfig returns batch defaults with component defaults filled in.
func DefaultConfig() Config {
	return Config{
		Detector:         detector.DefaultConfig(),
		Enhance:          enhance.DefaultConfig(),
		Format:           "text",
		ShowProgress:     true,
		ProgressInterval: 100 * time.Millisecond,
	}
}
