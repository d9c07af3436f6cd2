package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "rectify"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "RECTIFY"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a configuration loader backed by the global viper
// instance so cobra flag bindings are visible.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderFrom creates a loader backed by a specific viper instance.
// Used by tests to avoid global state.
func NewLoaderFrom(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables, and defaults,
// then validates it.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.LoadWithoutValidation()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation loads configuration without running validation.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshal()
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	cfg, err := l.unmarshal()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}

	l.v.AddConfigPath("/etc/rectify")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "rectify"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "rectify"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()

	// Replace dots and dashes with underscores in env var names
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	// Global settings
	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	// Detector defaults
	l.v.SetDefault("pipeline.detector.max_processing_dim", defaults.Pipeline.Detector.MaxProcessingDim)
	l.v.SetDefault("pipeline.detector.blur_radius", defaults.Pipeline.Detector.BlurRadius)
	l.v.SetDefault("pipeline.detector.edge_threshold", defaults.Pipeline.Detector.EdgeThreshold)
	l.v.SetDefault("pipeline.detector.auto_threshold", defaults.Pipeline.Detector.AutoThreshold)
	l.v.SetDefault("pipeline.detector.dilate_kernel_size", defaults.Pipeline.Detector.DilateKernelSize)
	l.v.SetDefault("pipeline.detector.dilate_iterations", defaults.Pipeline.Detector.DilateIterations)
	l.v.SetDefault("pipeline.detector.erode_iterations", defaults.Pipeline.Detector.ErodeIterations)
	l.v.SetDefault("pipeline.detector.min_area_ratio", defaults.Pipeline.Detector.MinAreaRatio)
	l.v.SetDefault("pipeline.detector.approx_epsilon_ratio", defaults.Pipeline.Detector.ApproxEpsilonRatio)
	l.v.SetDefault("pipeline.detector.snap_to_min_rect", defaults.Pipeline.Detector.SnapToMinRect)

	// Enhance defaults
	l.v.SetDefault("pipeline.enhance.denoise", defaults.Pipeline.Enhance.Denoise)
	l.v.SetDefault("pipeline.enhance.denoise_strength", defaults.Pipeline.Enhance.DenoiseStrength)
	l.v.SetDefault("pipeline.enhance.contrast", defaults.Pipeline.Enhance.Contrast)
	l.v.SetDefault("pipeline.enhance.contrast_clip_limit", defaults.Pipeline.Enhance.ContrastClipLimit)
	l.v.SetDefault("pipeline.enhance.sharpen", defaults.Pipeline.Enhance.Sharpen)
	l.v.SetDefault("pipeline.enhance.sharpen_amount", defaults.Pipeline.Enhance.SharpenAmount)
	l.v.SetDefault("pipeline.enhance.min_scale_factor", defaults.Pipeline.Enhance.MinScaleFactor)
	l.v.SetDefault("pipeline.enhance.max_scale_factor", defaults.Pipeline.Enhance.MaxScaleFactor)

	l.v.SetDefault("pipeline.parallel.max_workers", defaults.Pipeline.Parallel.MaxWorkers)

	// Output defaults
	l.v.SetDefault("output.format", defaults.Output.Format)

	// Server defaults
	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit_per_sec", defaults.Server.RateLimitPerSec)
	l.v.SetDefault("server.rate_limit_burst", defaults.Server.RateLimitBurst)

	// Batch defaults
	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.recursive", defaults.Batch.Recursive)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile generates a default configuration file.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderFrom(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = "rectify.yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
		paths = append(paths, filepath.Join(home, ".config", "rectify"))
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "rectify"))
	}

	paths = append(paths, "/etc/rectify")

	return paths
}
