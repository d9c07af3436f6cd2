package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/squaredoc/rectify/internal/detector"
	"github.com/squaredoc/rectify/internal/utils"
	"github.com/squaredoc/rectify/internal/warp"
)

// UnsupportedImageError reports an input image the pipeline cannot process.
type UnsupportedImageError struct {
	Reason string
}

func (e *UnsupportedImageError) Error() string {
	return "unsupported image: " + e.Reason
}

// Result is the outcome of rectifying a single image.
type Result struct {
	// Image is the rectified, enhanced output.
	Image image.Image `json:"-"`

	// Quad holds the corners actually used for the warp, in source
	// image coordinates.
	Quad utils.Quad `json:"quad"`

	// Detection is nil when the caller supplied corners manually.
	Detection *detector.Result `json:"detection,omitempty"`

	// Width and Height are the output dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	Processing struct {
		DetectionNs int64 `json:"detection_ns"`
		WarpNs      int64 `json:"warp_ns"`
		EnhanceNs   int64 `json:"enhance_ns"`
		TotalNs     int64 `json:"total_ns"`
	} `json:"processing"`
}

// Process rectifies a single image. A nil quad triggers automatic page
// detection; a caller-supplied quad bypasses it.
func (p *Pipeline) Process(img image.Image, quad *utils.Quad) (*Result, error) {
	return p.ProcessContext(context.Background(), img, quad)
}

// ProcessContext is like Process but allows cancellation via context.
// Cancellation is coarse: the context is checked between stages, not
// inside them.
func (p *Pipeline) ProcessContext(ctx context.Context, img image.Image, quad *utils.Quad) (*Result, error) {
	if p == nil || p.detector == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if err := validateInput(img); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	p.logger.Debug("starting rectification", "width", w, "height", h, "manual_quad", quad != nil)

	totalStart := time.Now()
	out := &Result{}

	// Corner selection
	var q utils.Quad
	if quad != nil {
		ordered, err := utils.OrderCorners(quad.Points())
		if err != nil {
			return nil, fmt.Errorf("manual corners: %w", err)
		}
		q = ordered
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		detStart := time.Now()
		det := p.detector.Detect(img)
		out.Processing.DetectionNs = time.Since(detStart).Nanoseconds()
		out.Detection = &det
		q = det.Quad
		p.logger.Debug("page detection finished",
			"valid", det.Valid,
			"confidence", det.Confidence,
			"duration_ms", out.Processing.DetectionNs/1e6)
	}
	q = q.ClampToBounds(w, h)
	out.Quad = q

	// Perspective warp
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	warpStart := time.Now()
	warped, err := warp.Warp(img, q)
	if err != nil {
		return nil, fmt.Errorf("warp failed: %w", err)
	}
	out.Processing.WarpNs = time.Since(warpStart).Nanoseconds()

	// Enhancement and size policy
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enhStart := time.Now()
	enhanced := p.enhancer.Enhance(imaging.Clone(warped), w, h)
	out.Processing.EnhanceNs = time.Since(enhStart).Nanoseconds()

	out.Image = enhanced
	ob := enhanced.Bounds()
	out.Width, out.Height = ob.Dx(), ob.Dy()
	out.Processing.TotalNs = time.Since(totalStart).Nanoseconds()

	p.logger.Debug("rectification finished",
		"out_width", out.Width,
		"out_height", out.Height,
		"total_ms", out.Processing.TotalNs/1e6)
	return out, nil
}

// ProcessImages rectifies multiple images sequentially.
func (p *Pipeline) ProcessImages(images []image.Image) ([]*Result, error) {
	return p.ProcessImagesContext(context.Background(), images)
}

// ProcessImagesContext rectifies images sequentially with cancellation
// support. Detection runs per image; manual corners are not supported in
// batch form.
func (p *Pipeline) ProcessImagesContext(ctx context.Context, images []image.Image) ([]*Result, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	results := make([]*Result, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.ProcessContext(ctx, img, nil)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		results[i] = res
	}
	return results, nil
}

// validateInput rejects images the warp and enhancement stages cannot
// handle.
func validateInput(img image.Image) error {
	if img == nil {
		return &UnsupportedImageError{Reason: "image is nil"}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &UnsupportedImageError{Reason: "image has no pixels"}
	}
	if _, ok := img.(*image.Paletted); ok {
		return &UnsupportedImageError{Reason: "paletted images are not supported"}
	}
	return nil
}
