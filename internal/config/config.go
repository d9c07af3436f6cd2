// Package config defines the application configuration for all commands
// and loads it from files, environment variables and flags.
package config

import (
	"fmt"
	"strings"

	"github.com/squaredoc/rectify/internal/batch"
	"github.com/squaredoc/rectify/internal/detector"
	"github.com/squaredoc/rectify/internal/enhance"
	"github.com/squaredoc/rectify/internal/pipeline"
)

// Config represents the complete configuration for the rectify application.
// It covers all commands (image, batch, serve) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// PipelineConfig contains rectification pipeline settings.
type PipelineConfig struct {
	// Page boundary detection
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Post-warp enhancement
	Enhance EnhanceConfig `mapstructure:"enhance" yaml:"enhance" json:"enhance"`

	// Parallel processing
	Parallel ParallelConfig `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
}

// DetectorConfig contains page boundary detection settings.
type DetectorConfig struct {
	MaxProcessingDim   int     `mapstructure:"max_processing_dim" yaml:"max_processing_dim" json:"max_processing_dim"`
	BlurRadius         float64 `mapstructure:"blur_radius" yaml:"blur_radius" json:"blur_radius"`
	EdgeThreshold      float64 `mapstructure:"edge_threshold" yaml:"edge_threshold" json:"edge_threshold"`
	AutoThreshold      bool    `mapstructure:"auto_threshold" yaml:"auto_threshold" json:"auto_threshold"`
	DilateKernelSize   int     `mapstructure:"dilate_kernel_size" yaml:"dilate_kernel_size" json:"dilate_kernel_size"`
	DilateIterations   int     `mapstructure:"dilate_iterations" yaml:"dilate_iterations" json:"dilate_iterations"`
	ErodeIterations    int     `mapstructure:"erode_iterations" yaml:"erode_iterations" json:"erode_iterations"`
	MinAreaRatio       float64 `mapstructure:"min_area_ratio" yaml:"min_area_ratio" json:"min_area_ratio"`
	ApproxEpsilonRatio float64 `mapstructure:"approx_epsilon_ratio" yaml:"approx_epsilon_ratio" json:"approx_epsilon_ratio"`
	SnapToMinRect      bool    `mapstructure:"snap_to_min_rect" yaml:"snap_to_min_rect" json:"snap_to_min_rect"`
}

// EnhanceConfig contains post-warp enhancement settings.
type EnhanceConfig struct {
	Denoise           bool    `mapstructure:"denoise" yaml:"denoise" json:"denoise"`
	DenoiseStrength   float64 `mapstructure:"denoise_strength" yaml:"denoise_strength" json:"denoise_strength"`
	Contrast          bool    `mapstructure:"contrast" yaml:"contrast" json:"contrast"`
	ContrastClipLimit float64 `mapstructure:"contrast_clip_limit" yaml:"contrast_clip_limit" json:"contrast_clip_limit"`
	Sharpen           bool    `mapstructure:"sharpen" yaml:"sharpen" json:"sharpen"`
	SharpenAmount     float64 `mapstructure:"sharpen_amount" yaml:"sharpen_amount" json:"sharpen_amount"`
	MinScaleFactor    float64 `mapstructure:"min_scale_factor" yaml:"min_scale_factor" json:"min_scale_factor"`
	MaxScaleFactor    float64 `mapstructure:"max_scale_factor" yaml:"max_scale_factor" json:"max_scale_factor"`
}

// ParallelConfig contains parallel processing settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// OutputConfig contains output settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	Dir        string `mapstructure:"dir" yaml:"dir" json:"dir"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimitPerSec int    `mapstructure:"rate_limit_per_sec" yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	RateLimitBurst  int    `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" json:"rate_limit_burst"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers   int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			Detector: defaultDetectorConfig(),
			Enhance:  defaultEnhanceConfig(),
			Parallel: ParallelConfig{
				MaxWorkers: pipeline.DefaultParallelConfig().MaxWorkers,
			},
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimitPerSec: 10,
			RateLimitBurst:  20,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
	}
}

// defaultDetectorConfig mirrors the detector package defaults.
func defaultDetectorConfig() DetectorConfig {
	cfg := detector.DefaultConfig()
	return DetectorConfig{
		MaxProcessingDim:   cfg.MaxProcessingDim,
		BlurRadius:         cfg.BlurRadius,
		EdgeThreshold:      cfg.EdgeThreshold,
		AutoThreshold:      cfg.AutoThreshold,
		DilateKernelSize:   cfg.DilateKernelSize,
		DilateIterations:   cfg.DilateIterations,
		ErodeIterations:    cfg.ErodeIterations,
		MinAreaRatio:       cfg.MinAreaRatio,
		ApproxEpsilonRatio: cfg.ApproxEpsilonRatio,
		SnapToMinRect:      cfg.SnapToMinRect,
	}
}

// defaultEnhanceConfig mirrors the enhance package defaults.
func defaultEnhanceConfig() EnhanceConfig {
	cfg := enhance.DefaultConfig()
	return EnhanceConfig{
		Denoise:           cfg.Denoise,
		DenoiseStrength:   cfg.DenoiseStrength,
		Contrast:          cfg.Contrast,
		ContrastClipLimit: cfg.ContrastClipLimit,
		Sharpen:           cfg.Sharpen,
		SharpenAmount:     cfg.SharpenAmount,
		MinScaleFactor:    cfg.MinScaleFactor,
		MaxScaleFactor:    cfg.MaxScaleFactor,
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := validateRatio(c.Pipeline.Detector.EdgeThreshold, "detector.edge_threshold"); err != nil {
		return err
	}
	if err := validateRatio(c.Pipeline.Detector.MinAreaRatio, "detector.min_area_ratio"); err != nil {
		return err
	}
	if c.Pipeline.Detector.MaxProcessingDim <= 0 {
		return fmt.Errorf("invalid detector.max_processing_dim: %d (must be positive)", c.Pipeline.Detector.MaxProcessingDim)
	}

	if c.Pipeline.Enhance.MinScaleFactor > c.Pipeline.Enhance.MaxScaleFactor {
		return fmt.Errorf("enhance.min_scale_factor %.2f exceeds enhance.max_scale_factor %.2f",
			c.Pipeline.Enhance.MinScaleFactor, c.Pipeline.Enhance.MaxScaleFactor)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Pipeline.Parallel.MaxWorkers <= 0 {
		return fmt.Errorf("invalid parallel max workers: %d (must be positive)", c.Pipeline.Parallel.MaxWorkers)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}

	return nil
}

// ToDetectorConfig converts to detector.Config.
func (c *Config) ToDetectorConfig() detector.Config {
	d := c.Pipeline.Detector
	return detector.Config{
		MaxProcessingDim:   d.MaxProcessingDim,
		BlurRadius:         d.BlurRadius,
		EdgeThreshold:      d.EdgeThreshold,
		AutoThreshold:      d.AutoThreshold,
		DilateKernelSize:   d.DilateKernelSize,
		DilateIterations:   d.DilateIterations,
		ErodeIterations:    d.ErodeIterations,
		MinAreaRatio:       d.MinAreaRatio,
		ApproxEpsilonRatio: d.ApproxEpsilonRatio,
		SnapToMinRect:      d.SnapToMinRect,
	}
}

// ToEnhanceConfig converts to enhance.Config.
func (c *Config) ToEnhanceConfig() enhance.Config {
	e := c.Pipeline.Enhance
	return enhance.Config{
		Denoise:           e.Denoise,
		DenoiseStrength:   e.DenoiseStrength,
		Contrast:          e.Contrast,
		ContrastClipLimit: e.ContrastClipLimit,
		Sharpen:           e.Sharpen,
		SharpenAmount:     e.SharpenAmount,
		MinScaleFactor:    e.MinScaleFactor,
		MaxScaleFactor:    e.MaxScaleFactor,
	}
}

// ToPipelineConfig converts to the internal pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		Detector: c.ToDetectorConfig(),
		Enhance:  c.ToEnhanceConfig(),
		Parallel: pipeline.ParallelConfig{
			MaxWorkers: c.Pipeline.Parallel.MaxWorkers,
		},
	}
}

// ToBatchConfig converts to batch.Config.
func (c *Config) ToBatchConfig() batch.Config {
	cfg := batch.DefaultConfig()
	cfg.Detector = c.ToDetectorConfig()
	cfg.Enhance = c.ToEnhanceConfig()
	cfg.Workers = c.Batch.Workers
	cfg.Recursive = c.Batch.Recursive
	cfg.OutputDir = c.Output.Dir
	cfg.OverlayDir = c.Output.OverlayDir
	cfg.Format = c.Output.Format
	cfg.OutputFile = c.Output.File
	return cfg
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateRatio validates that a value is between 0.0 and 1.0.
func validateRatio(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
