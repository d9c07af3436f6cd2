package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/squaredoc/rectify/internal/utils"
	"github.com/squaredoc/rectify/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := RectifyResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Log error, but can't send another response
		fmt.Fprintf(os.Stderr, "Error writing error response: %v\n", err)
	}
}

// parseCorners parses a comma-separated "x0,y0,x1,y1,x2,y2,x3,y3" list
// into four points. An empty string yields nil without error.
func parseCorners(s string) ([]utils.Point, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 8 {
		return nil, fmt.Errorf("corners must contain 8 comma-separated values, got %d", len(parts))
	}

	vals := make([]float64, 8)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid corner value %q: %w", p, err)
		}
		vals[i] = v
	}

	pts := make([]utils.Point, 4)
	for i := range pts {
		pts[i] = utils.Point{X: vals[2*i], Y: vals[2*i+1]}
	}
	return pts, nil
}

// parseBoolValue interprets common truthy spellings used in form fields.
func parseBoolValue(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// quadCorners converts a quad into the wire representation.
func quadCorners(q utils.Quad) [4]Corner {
	var out [4]Corner
	for i, p := range q.Points() {
		out[i] = Corner{X: p.X, Y: p.Y}
	}
	return out
}
