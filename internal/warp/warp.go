// Package warp flattens a quadrilateral page region into an axis-aligned
// rectangle using an inverse homography with bilinear resampling.
package warp

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/squaredoc/rectify/internal/utils"
)

// TargetSize derives the output rectangle dimensions for a source quad.
// Width follows the longer of the two horizontal edges and height the
// longer of the two vertical edges, so no page content is compressed.
func TargetSize(q utils.Quad) (int, int) {
	top := utils.Dist(q.TopLeft(), q.TopRight())
	bottom := utils.Dist(q.BottomLeft(), q.BottomRight())
	left := utils.Dist(q.TopLeft(), q.BottomLeft())
	right := utils.Dist(q.TopRight(), q.BottomRight())

	w := int(math.Round(math.Max(top, bottom)))
	h := int(math.Round(math.Max(left, right)))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Warp extracts the quadrilateral region q from src into a W x H rectangle
// where W and H come from TargetSize. The quad corners map to the rectangle
// corners top-left to (0,0), top-right to (W,0), bottom-right to (W,H) and
// bottom-left to (0,H). Source samples outside the image are edge-clamped.
// Degenerate quads are rejected with DegenerateGeometryError.
func Warp(src image.Image, q utils.Quad) (image.Image, error) {
	if src == nil {
		return nil, &utils.ImageProcessingError{Operation: "warp", Err: errors.New("input image is nil")}
	}
	if q.IsDegenerate() {
		return nil, &utils.DegenerateGeometryError{Reason: "warp quad has no usable area"}
	}

	dstW, dstH := TargetSize(q)
	return warpPerspective(src, q, dstW, dstH)
}

// warpPerspective maps every destination pixel back into the source quad
// via the dst->src homography and samples bilinearly.
func warpPerspective(src image.Image, q utils.Quad, dstW, dstH int) (image.Image, error) {
	d0 := utils.Point{X: 0, Y: 0}
	d1 := utils.Point{X: float64(dstW), Y: 0}
	d2 := utils.Point{X: float64(dstW), Y: float64(dstH)}
	d3 := utils.Point{X: 0, Y: float64(dstH)}
	H, ok := computeHomography(
		[4]utils.Point{d0, d1, d2, d3},
		[4]utils.Point{q[0], q[1], q[2], q[3]},
	)
	if !ok {
		return nil, &utils.DegenerateGeometryError{Reason: "homography system is singular"}
	}

	out := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	sb := src.Bounds()
	for y := range dstH {
		for x := range dstW {
			sx, sy := applyHomography(H, float64(x), float64(y))
			cr := bilinearSample(src, sx+float64(sb.Min.X), sy+float64(sb.Min.Y))
			out.Set(x, y, cr)
		}
	}
	return out, nil
}

// bilinearSample interpolates the four neighboring pixels around (x, y).
// Coordinates outside the image clamp to the nearest edge pixel, so warps
// that reach slightly past the frame extend the border instead of
// introducing black wedges.
func bilinearSample(src image.Image, x, y float64) color.Color {
	b := src.Bounds()
	if x < float64(b.Min.X) {
		x = float64(b.Min.X)
	}
	if y < float64(b.Min.Y) {
		y = float64(b.Min.Y)
	}
	if x > float64(b.Max.X-1) {
		x = float64(b.Max.X - 1)
	}
	if y > float64(b.Max.Y-1) {
		y = float64(b.Max.Y - 1)
	}
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	c00 := toRGBA(src.At(x0, y0))
	c10 := toRGBA(src.At(x1, y0))
	c01 := toRGBA(src.At(x0, y1))
	c11 := toRGBA(src.At(x1, y1))
	r := lerp(lerp(c00.R, c10.R, fx), lerp(c01.R, c11.R, fx), fy)
	g := lerp(lerp(c00.G, c10.G, fx), lerp(c01.G, c11.G, fx), fy)
	bl := lerp(lerp(c00.B, c10.B, fx), lerp(c01.B, c11.B, fx), fy)
	a := lerp(lerp(c00.A, c10.A, fx), lerp(c01.A, c11.A, fx), fy)
	return color.RGBA{uint8(r + 0.5), uint8(g + 0.5), uint8(bl + 0.5), uint8(a + 0.5)}
}

type rgba struct{ R, G, B, A float64 }

func toRGBA(c color.Color) rgba {
	r, g, b, a := c.RGBA()
	return rgba{R: float64(r >> 8), G: float64(g >> 8), B: float64(b >> 8), A: float64(a >> 8)}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
