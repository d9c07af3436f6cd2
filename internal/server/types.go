package server

import (
	"image"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/squaredoc/rectify/internal/pipeline"
	"github.com/squaredoc/rectify/internal/utils"
)

// rectifier defines the methods the server needs from a pipeline.
type rectifier interface {
	Process(img image.Image, quad *utils.Quad) (*pipeline.Result, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    rectifier
	baseConfig  pipeline.Config
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
	Burst             int
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	PipelineConfig pipeline.Config
	RateLimit      RateLimitConfig
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// Corner is a single quad corner in source image coordinates.
type Corner struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RectifyResult describes a rectified image and the geometry behind it.
type RectifyResult struct {
	Corners    [4]Corner `json:"corners"`
	Detected   bool      `json:"detected"`
	Confidence float64   `json:"confidence"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	ImagePNG   string    `json:"image_png,omitempty"` // base64-encoded PNG
	Processing struct {
		DetectionNs int64 `json:"detection_ns"`
		WarpNs      int64 `json:"warp_ns"`
		EnhanceNs   int64 `json:"enhance_ns"`
		TotalNs     int64 `json:"total_ns"`
	} `json:"processing"`
}

type RectifyResponse struct {
	Success bool           `json:"success"`
	Result  *RectifyResult `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// NewServer creates a new rectification server instance.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.NewBuilder().
		WithDetectorConfig(config.PipelineConfig.Detector).
		WithEnhanceConfig(config.PipelineConfig.Enhance).
		Build()
	if err != nil {
		return nil, err
	}

	var rl *RateLimiter
	if config.RateLimit.Enabled {
		rl = NewRateLimiter(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	}

	return &Server{
		pipeline:    pl,
		baseConfig:  config.PipelineConfig,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		rateLimiter: rl,
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/rectify", s.corsMiddleware(s.rateLimitMiddleware(s.rectifyImageHandler)))
	mux.HandleFunc("/rectify/ws", s.rectifyWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
