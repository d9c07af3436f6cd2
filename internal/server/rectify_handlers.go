package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/squaredoc/rectify/internal/pipeline"
	"github.com/squaredoc/rectify/internal/utils"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const (
	formatJSON  = "json"
	formatImage = "image"
	formatPNG   = "png"
)

// enhanceOverrides holds per-request enhancement settings parsed from
// form fields. Nil pointers mean "keep the server default".
type enhanceOverrides struct {
	denoise         *bool
	denoiseStrength *float64
	contrast        *bool
	clipLimit       *float64
	sharpen         *bool
	sharpenAmount   *float64
}

func (o *enhanceOverrides) empty() bool {
	return o.denoise == nil && o.denoiseStrength == nil &&
		o.contrast == nil && o.clipLimit == nil &&
		o.sharpen == nil && o.sharpenAmount == nil
}

// rectifyImageHandler processes image rectification requests.
func (s *Server) rectifyImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Set content length limit
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	// Parse multipart form
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	// Get uploaded file
	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	// Validate file size
	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	// Read file content
	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	uploadSizeBytes.Observe(float64(len(imageData)))

	// Decode image
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	// Optional manual corners
	corners, err := parseCorners(r.FormValue("corners"))
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	var quad *utils.Quad
	if corners != nil {
		q, err := utils.OrderCorners(corners)
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("Invalid corners: %v", err), http.StatusBadRequest)
			return
		}
		quad = &q
	}

	overrides, err := parseEnhanceOverrides(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	pl, err := s.pipelineForRequest(overrides)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to configure pipeline: %v", err), http.StatusInternalServerError)
		return
	}
	if pl == nil {
		s.writeErrorResponse(w, "Rectification pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	res, err := pl.Process(img, quad)
	duration := time.Since(start)

	if err != nil {
		rectifyRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Rectification failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	rectifyRequestsTotal.WithLabelValues("image", "success").Inc()
	rectifyProcessingDuration.WithLabelValues("image").Observe(duration.Seconds())
	if res.Detection != nil {
		detectionConfidence.WithLabelValues("image").Observe(res.Detection.Confidence)
	}
	outputPixels.WithLabelValues("image").Observe(float64(res.Width * res.Height))

	// Determine output format: default json; allow 'format' in query or form
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}

	if format == formatImage || format == formatPNG {
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, res.Image); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding image response: %v\n", err)
		}
		return
	}

	result, err := buildRectifyResult(res, true)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to encode result: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	response := RectifyResponse{Success: true, Result: result}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding rectify response: %v\n", err)
	}
}

// buildRectifyResult converts a pipeline result into the wire format,
// optionally embedding the output image as base64 PNG.
func buildRectifyResult(res *pipeline.Result, includeImage bool) (*RectifyResult, error) {
	out := &RectifyResult{
		Corners: quadCorners(res.Quad),
		Width:   res.Width,
		Height:  res.Height,
	}
	if res.Detection != nil {
		out.Detected = res.Detection.Valid
		out.Confidence = res.Detection.Confidence
	} else {
		// Caller supplied the corners, nothing was detected but the
		// geometry is trusted.
		out.Detected = true
		out.Confidence = 1.0
	}
	out.Processing.DetectionNs = res.Processing.DetectionNs
	out.Processing.WarpNs = res.Processing.WarpNs
	out.Processing.EnhanceNs = res.Processing.EnhanceNs
	out.Processing.TotalNs = res.Processing.TotalNs

	if includeImage {
		var buf bytes.Buffer
		if err := png.Encode(&buf, res.Image); err != nil {
			return nil, err
		}
		out.ImagePNG = base64.StdEncoding.EncodeToString(buf.Bytes())
	}
	return out, nil
}

// parseEnhanceOverrides extracts per-request enhancement settings from
// form fields.
func parseEnhanceOverrides(r *http.Request) (*enhanceOverrides, error) {
	o := &enhanceOverrides{}

	boolFields := []struct {
		name string
		dst  **bool
	}{
		{"denoise", &o.denoise},
		{"contrast", &o.contrast},
		{"sharpen", &o.sharpen},
	}
	for _, f := range boolFields {
		if v := r.FormValue(f.name); v != "" {
			b, ok := parseBoolValue(v)
			if !ok {
				return nil, fmt.Errorf("invalid boolean value for %s: %q", f.name, v)
			}
			*f.dst = &b
		}
	}

	floatFields := []struct {
		name string
		dst  **float64
	}{
		{"denoise-strength", &o.denoiseStrength},
		{"clip-limit", &o.clipLimit},
		{"sharpen-amount", &o.sharpenAmount},
	}
	for _, f := range floatFields {
		if v := r.FormValue(f.name); v != "" {
			fv, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value for %s: %q", f.name, v)
			}
			*f.dst = &fv
		}
	}

	return o, nil
}

// pipelineForRequest returns the shared pipeline, or builds a request
// scoped one when enhancement overrides are present.
func (s *Server) pipelineForRequest(o *enhanceOverrides) (rectifier, error) {
	if o == nil || o.empty() {
		return s.pipeline, nil
	}

	cfg := s.baseConfig.Enhance
	if o.denoise != nil {
		cfg.Denoise = *o.denoise
	}
	if o.denoiseStrength != nil {
		cfg.DenoiseStrength = *o.denoiseStrength
	}
	if o.contrast != nil {
		cfg.Contrast = *o.contrast
	}
	if o.clipLimit != nil {
		cfg.ContrastClipLimit = *o.clipLimit
	}
	if o.sharpen != nil {
		cfg.Sharpen = *o.sharpen
	}
	if o.sharpenAmount != nil {
		cfg.SharpenAmount = *o.sharpenAmount
	}

	return pipeline.NewBuilder().
		WithDetectorConfig(s.baseConfig.Detector).
		WithEnhanceConfig(cfg).
		Build()
}
