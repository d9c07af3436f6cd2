// Package detector locates the quadrilateral outline of a document page in a
// photo. The pipeline is entirely classical: downscale, blur, Sobel edges,
// dilation, contour tracing and polygon approximation. Detection is
// deterministic and never fails hard; when no plausible page boundary is
// found the full image frame is reported with Valid set to false.
package detector

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/squaredoc/rectify/internal/mempool"
	"github.com/squaredoc/rectify/internal/utils"
)

// Config controls the detection pipeline.
type Config struct {
	// MaxProcessingDim caps the longest image side during analysis.
	MaxProcessingDim int
	// BlurRadius is the Gaussian blur applied before edge extraction.
	BlurRadius float64
	// EdgeThreshold gates the normalized Sobel magnitude, range (0,1).
	EdgeThreshold float64
	// AutoThreshold derives the edge gate from the magnitude histogram
	// (Otsu) instead of EdgeThreshold.
	AutoThreshold bool
	// DilateKernelSize and DilateIterations close gaps in the edge map.
	DilateKernelSize int
	DilateIterations int
	// ErodeIterations shrinks the dilated edge map back with the same
	// kernel, turning the gap-closing dilation into a morphological
	// closing. Off by default; keeps the traced contour tight against
	// the true page edge when heavy dilation is needed.
	ErodeIterations int
	// MinAreaRatio is the smallest acceptable page area relative to the image.
	MinAreaRatio float64
	// ApproxEpsilonRatio scales the polygon simplification tolerance by
	// the contour perimeter.
	ApproxEpsilonRatio float64
	// SnapToMinRect replaces the accepted quad with its minimum-area
	// enclosing rectangle.
	SnapToMinRect bool
}

// DefaultConfig returns the standard detection parameters.
func DefaultConfig() Config {
	return Config{
		MaxProcessingDim:   800,
		BlurRadius:         1.4,
		EdgeThreshold:      75.0 / 255.0,
		DilateKernelSize:   3,
		DilateIterations:   2,
		MinAreaRatio:       0.10,
		ApproxEpsilonRatio: 0.02,
	}
}

// normalized fills unset or out-of-range fields with defaults. Detection
// must stay total, so bad configuration degrades to known-good values
// instead of erroring.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxProcessingDim <= 0 {
		c.MaxProcessingDim = def.MaxProcessingDim
	}
	if c.BlurRadius < 0 {
		c.BlurRadius = def.BlurRadius
	}
	if c.EdgeThreshold <= 0 || c.EdgeThreshold >= 1 {
		c.EdgeThreshold = def.EdgeThreshold
	}
	if c.DilateKernelSize <= 0 {
		c.DilateKernelSize = def.DilateKernelSize
	}
	if c.DilateIterations < 0 {
		c.DilateIterations = def.DilateIterations
	}
	if c.ErodeIterations < 0 {
		c.ErodeIterations = 0
	}
	if c.MinAreaRatio <= 0 || c.MinAreaRatio >= 1 {
		c.MinAreaRatio = def.MinAreaRatio
	}
	if c.ApproxEpsilonRatio <= 0 {
		c.ApproxEpsilonRatio = def.ApproxEpsilonRatio
	}
	return c
}

// Result is the outcome of page boundary detection. Quad is always a usable
// quadrilateral; Valid reports whether it came from an actual detection or
// from the full-frame fallback. Confidence is the detected contour area
// relative to the analyzed image, zero for the fallback.
type Result struct {
	Quad       utils.Quad
	Valid      bool
	Confidence float64
}

// Detector finds document page boundaries in images.
type Detector struct {
	cfg Config
}

// New creates a Detector with a normalized configuration.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg.normalized()}
}

// Config returns the effective configuration.
func (d *Detector) Config() Config { return d.cfg }

// Detect locates the dominant quadrilateral in img. Result coordinates are
// native image coordinates, clamped to the frame.
func (d *Detector) Detect(img image.Image) Result {
	if img == nil {
		return Result{Quad: utils.FullImageQuad(1, 1)}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	fallback := Result{Quad: utils.FullImageQuad(w, h)}
	if w < 3 || h < 3 {
		return fallback
	}

	var small image.Image = d.downscale(img, w, h)
	if d.cfg.BlurRadius > 0 {
		small = blur.Gaussian(small, d.cfg.BlurRadius)
	}

	gray, sw, sh := grayscaleFloat32(small)
	defer mempool.PutFloat32(gray)
	mag := sobelMagnitude(gray, sw, sh)
	defer mempool.PutFloat32(mag)

	threshold := float32(d.cfg.EdgeThreshold)
	if d.cfg.AutoThreshold {
		threshold = otsuThreshold(mag, 256)
		if threshold <= 0 {
			// uniform image, nothing to segment
			return fallback
		}
	}
	mask := edgeMask(mag, sw, sh, threshold)
	defer mempool.PutBool(mask)
	edges := dilateMask(mask, sw, sh, d.cfg.DilateKernelSize, d.cfg.DilateIterations)
	if d.cfg.ErodeIterations > 0 {
		edges = erodeMask(edges, sw, sh, d.cfg.DilateKernelSize, d.cfg.ErodeIterations)
	}

	comps, labels := connectedComponents(edges, sw, sh)
	cand, ok := fitQuad(comps, labels, sw, sh, d.cfg)
	if !ok {
		return fallback
	}

	sx := float64(w) / float64(sw)
	sy := float64(h) / float64(sh)
	// Contour points are pixel centers, so map through the center lattice
	// rather than scaling raw indices.
	pts := utils.OffsetPoints(cand.corners, 0.5, 0.5)
	pts = utils.ScalePoints(pts, sx, sy)
	pts = utils.OffsetPoints(pts, -0.5, -0.5)
	q, err := utils.OrderCorners(pts)
	if err != nil {
		return fallback
	}
	q = q.ClampToBounds(w, h)

	conf := cand.area / (float64(sw) * float64(sh))
	if conf > 1 {
		conf = 1
	}
	return Result{Quad: q, Valid: true, Confidence: conf}
}

// downscale shrinks the image so its longest side is at most
// MaxProcessingDim, preserving aspect ratio.
func (d *Detector) downscale(img image.Image, w, h int) image.Image {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= d.cfg.MaxProcessingDim {
		return img
	}
	if w >= h {
		return imaging.Resize(img, d.cfg.MaxProcessingDim, 0, imaging.Box)
	}
	return imaging.Resize(img, 0, d.cfg.MaxProcessingDim, imaging.Box)
}
