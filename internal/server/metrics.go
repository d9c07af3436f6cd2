package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rectify_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rectify_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Rectification processing metrics
	rectifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rectify_requests_total",
			Help: "Total number of rectification requests",
		},
		[]string{"type", "status"}, // type: image, websocket
	)

	rectifyProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rectify_processing_duration_seconds",
			Help:    "Rectification processing duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		},
		[]string{"type"},
	)

	detectionConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rectify_detection_confidence",
			Help:    "Confidence of detected page quads",
			Buckets: []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		},
		[]string{"type"},
	)

	outputPixels = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rectify_output_pixels",
			Help:    "Pixel count of rectified output images",
			Buckets: []float64{10e3, 100e3, 500e3, 1e6, 2e6, 5e6, 10e6, 25e6},
		},
		[]string{"type"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rectify_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rectify_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rectify_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rectify_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
