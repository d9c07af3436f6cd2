package warp

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/squaredoc/rectify/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: 40, A: 255})
		}
	}
	return img
}

func TestTargetSizeRectangle(t *testing.T) {
	q := utils.Quad{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 150}, {X: 0, Y: 150}}
	w, h := TargetSize(q)
	assert.Equal(t, 200, w)
	assert.Equal(t, 150, h)
}

func TestTargetSizeTrapezoidUsesLongerEdges(t *testing.T) {
	// bottom edge longer than top, right edge longer than left
	q := utils.Quad{{X: 20, Y: 0}, {X: 180, Y: 0}, {X: 200, Y: 160}, {X: 0, Y: 150}}
	w, h := TargetSize(q)
	assert.Equal(t, 200, w)
	assert.GreaterOrEqual(t, h, 160)
}

func TestTargetSizeMinimumOnePixel(t *testing.T) {
	q := utils.Quad{{X: 0, Y: 0}, {X: 0.2, Y: 0}, {X: 0.2, Y: 0.2}, {X: 0, Y: 0.2}}
	w, h := TargetSize(q)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestWarpIdentity(t *testing.T) {
	src := gradientImage(40, 30)
	q := utils.Quad{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 30}, {X: 0, Y: 30}}

	out, err := Warp(src, q)
	require.NoError(t, err)

	b := out.Bounds()
	require.Equal(t, 40, b.Dx())
	require.Equal(t, 30, b.Dy())
	rgba, ok := out.(*image.RGBA)
	require.True(t, ok)
	for y := range 30 {
		for x := range 40 {
			assert.Equal(t, src.RGBAAt(x, y), rgba.RGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestWarpEdgeClampsOutOfBoundsSamples(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	white := color.RGBA{255, 255, 255, 255}
	for y := range 20 {
		for x := range 20 {
			src.SetRGBA(x, y, white)
		}
	}
	// quad reaches 10 px past the right edge
	q := utils.Quad{{X: 10, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 20}, {X: 10, Y: 20}}

	out, err := Warp(src, q)
	require.NoError(t, err)
	rgba := out.(*image.RGBA)
	b := rgba.Bounds()
	for y := 0; y < b.Dy(); y += 5 {
		for x := 0; x < b.Dx(); x += 5 {
			assert.Equal(t, white, rgba.RGBAAt(x, y), "pixel (%d,%d) should clamp to border color", x, y)
		}
	}
}

func TestWarpExtractsSubRegion(t *testing.T) {
	// white rectangle on black background
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 20; y < 80; y++ {
		for x := 30; x < 70; x++ {
			src.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	q, err := utils.OrderCorners([]utils.Point{{X: 30, Y: 20}, {X: 70, Y: 20}, {X: 70, Y: 80}, {X: 30, Y: 80}})
	require.NoError(t, err)

	out, err := Warp(src, q)
	require.NoError(t, err)
	b := out.Bounds()
	assert.InDelta(t, 40, b.Dx(), 1)
	assert.InDelta(t, 60, b.Dy(), 1)

	// center should be white
	r, g, bl, _ := out.At(b.Dx()/2, b.Dy()/2).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), bl)
}

func TestWarpDegenerateQuad(t *testing.T) {
	src := gradientImage(10, 10)
	var dge *utils.DegenerateGeometryError

	_, err := Warp(src, utils.Quad{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}})
	require.Error(t, err)
	assert.True(t, errors.As(err, &dge))

	_, err = Warp(src, utils.Quad{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 6, Y: 6}, {X: 5, Y: 6}})
	require.Error(t, err)
	assert.True(t, errors.As(err, &dge))
}

func TestWarpNilImage(t *testing.T) {
	_, err := Warp(nil, utils.FullImageQuad(10, 10))
	require.Error(t, err)
	var ipe *utils.ImageProcessingError
	assert.True(t, errors.As(err, &ipe))
}
