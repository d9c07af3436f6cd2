package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/squaredoc/rectify/internal/utils"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketRectifyRequest is a rectification request sent by a client.
// Image carries the raw encoded bytes (base64 over the JSON wire).
type WebSocketRectifyRequest struct {
	Image   []byte                 `json:"image,omitempty"`
	Corners []float64              `json:"corners,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// WebSocketRectifyResponse is a progress or completion message sent to
// the client. Stage names the pipeline step currently running.
type WebSocketRectifyResponse struct {
	Type      string         `json:"type"`
	Status    string         `json:"status"` // "processing", "completed", "error"
	Stage     string         `json:"stage,omitempty"`
	Current   int            `json:"current"`
	Total     int            `json:"total"`
	Result    *RectifyResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorType string         `json:"error_type,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Progress stages reported while a request is processed.
const (
	wsStageReceived = "received"
	wsStageDetect   = "detect"
	wsStageRectify  = "rectify"
	wsStageDone     = "done"
	wsTotalStages   = 3
)

// rectifyWebSocketHandler handles WebSocket connections for streaming
// rectification.
func (s *Server) rectifyWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	// Track active connections
	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Send ping messages to keep connection alive
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
		}
	}
}

// handleWebSocketMessage processes a single rectification request.
func (s *Server) handleWebSocketMessage(conn *websocket.Conn, data []byte) {
	var req WebSocketRectifyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	// Generate a request ID for tracking
	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	s.sendWebSocketResponse(conn, WebSocketRectifyResponse{
		Type:      "rectify_response",
		Status:    "processing",
		Stage:     wsStageReceived,
		Current:   0,
		Total:     wsTotalStages,
		RequestID: requestID,
	})

	s.processWebSocketImage(conn, req, requestID)
}

// processWebSocketImage rectifies an image request and streams progress.
func (s *Server) processWebSocketImage(conn *websocket.Conn, req WebSocketRectifyRequest, requestID string) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No image data provided")
		return
	}

	img, _, err := image.Decode(bytes.NewReader(req.Image))
	if err != nil {
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Image)))

	quad, err := cornersFromSlice(req.Corners)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", err.Error())
		return
	}

	overrides := extractWebSocketOverrides(req.Options)
	pl, err := s.pipelineForRequest(overrides)
	if err != nil {
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Failed to configure pipeline: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketRectifyResponse{
		Type:      "rectify_response",
		Status:    "processing",
		Stage:     wsStageDetect,
		Current:   1,
		Total:     wsTotalStages,
		RequestID: requestID,
	})

	start := time.Now()
	res, err := pl.Process(img, quad)
	duration := time.Since(start)

	if err != nil {
		rectifyRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Rectification failed: %v", err))
		return
	}

	rectifyRequestsTotal.WithLabelValues("websocket", "success").Inc()
	rectifyProcessingDuration.WithLabelValues("websocket").Observe(duration.Seconds())
	if res.Detection != nil {
		detectionConfidence.WithLabelValues("websocket").Observe(res.Detection.Confidence)
	}
	outputPixels.WithLabelValues("websocket").Observe(float64(res.Width * res.Height))

	s.sendWebSocketResponse(conn, WebSocketRectifyResponse{
		Type:      "rectify_response",
		Status:    "processing",
		Stage:     wsStageRectify,
		Current:   2,
		Total:     wsTotalStages,
		RequestID: requestID,
	})

	result, err := buildRectifyResult(res, true)
	if err != nil {
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Failed to encode result: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketRectifyResponse{
		Type:      "rectify_response",
		Status:    "completed",
		Stage:     wsStageDone,
		Current:   wsTotalStages,
		Total:     wsTotalStages,
		Result:    result,
		RequestID: requestID,
	})
}

// cornersFromSlice converts a flat [x0,y0,...,x3,y3] list into an
// ordered quad. An empty slice yields nil without error.
func cornersFromSlice(vals []float64) (*utils.Quad, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	if len(vals) != 8 {
		return nil, fmt.Errorf("corners must contain 8 values, got %d", len(vals))
	}
	pts := make([]utils.Point, 4)
	for i := range pts {
		pts[i] = utils.Point{X: vals[2*i], Y: vals[2*i+1]}
	}
	q, err := utils.OrderCorners(pts)
	if err != nil {
		return nil, fmt.Errorf("invalid corners: %w", err)
	}
	return &q, nil
}

// extractWebSocketOverrides maps request options onto enhancement
// overrides. Unknown keys are ignored.
func extractWebSocketOverrides(options map[string]interface{}) *enhanceOverrides {
	o := &enhanceOverrides{}
	if options == nil {
		return o
	}

	if val, ok := options["denoise"].(bool); ok {
		o.denoise = &val
	}
	if val, ok := options["denoise-strength"].(float64); ok {
		o.denoiseStrength = &val
	}
	if val, ok := options["contrast"].(bool); ok {
		o.contrast = &val
	}
	if val, ok := options["clip-limit"].(float64); ok {
		o.clipLimit = &val
	}
	if val, ok := options["sharpen"].(bool); ok {
		o.sharpen = &val
	}
	if val, ok := options["sharpen-amount"].(float64); ok {
		o.sharpenAmount = &val
	}

	return o
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketRectifyResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string) {
	response := WebSocketRectifyResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	}

	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket error response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket error message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
