package enhance

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayImage(w, h int) *image.NRGBA {
	return solidImage(w, h, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
}

func longestSide(img *image.NRGBA) int {
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return b.Dx()
	}
	return b.Dy()
}

func TestSizePolicyPassThroughInRange(t *testing.T) {
	img := grayImage(400, 300)
	out := applySizePolicy(img, 400, 300, 0.75, 1.25)
	assert.Same(t, img, out, "in-range image should not be copied")
}

func TestSizePolicyDownscalesAboveMax(t *testing.T) {
	img := grayImage(1000, 500)
	out := applySizePolicy(img, 400, 300, 0.75, 1.25)
	require.NotNil(t, out)

	// 400 * 1.25 = 500
	assert.Equal(t, 500, longestSide(out))
	assert.Equal(t, 250, out.Bounds().Dy(), "aspect ratio preserved")
}

func TestSizePolicyUpscalesBelowMin(t *testing.T) {
	img := grayImage(100, 80)
	out := applySizePolicy(img, 400, 300, 0.75, 1.25)
	require.NotNil(t, out)

	// 400 * 0.75 = 300
	assert.Equal(t, 300, longestSide(out))
	assert.Equal(t, 240, out.Bounds().Dy())
}

func TestSizePolicyZeroReferenceIsNoOp(t *testing.T) {
	img := grayImage(64, 64)
	out := applySizePolicy(img, 0, 0, 0.75, 1.25)
	assert.Same(t, img, out)
}

func TestSizePolicyNilImage(t *testing.T) {
	assert.Nil(t, applySizePolicy(nil, 400, 300, 0.75, 1.25))
}

func TestResizeLongestMinimumOnePixel(t *testing.T) {
	img := grayImage(10, 4)
	out := resizeLongest(img, 0, imaging.Box)
	require.NotNil(t, out)
	assert.GreaterOrEqual(t, out.Bounds().Dx(), 1)
	assert.GreaterOrEqual(t, out.Bounds().Dy(), 1)
}

func TestSizePolicyBoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("longest side stays within scale bounds", prop.ForAll(
		func(w, h, refW, refH int, minScale, maxScale float64) bool {
			if minScale > maxScale {
				minScale, maxScale = maxScale, minScale
			}
			img := grayImage(w, h)
			out := applySizePolicy(img, refW, refH, minScale, maxScale)
			if out == nil {
				return false
			}

			refLongest := refW
			if refH > refLongest {
				refLongest = refH
			}
			ratio := float64(longestSide(out)) / float64(refLongest)

			// Rounding to whole pixels allows the ratio to land just
			// outside the configured bound.
			slack := 1.0 / float64(refLongest)
			return ratio >= minScale-slack && ratio <= maxScale+slack
		},
		gen.IntRange(1, 600),
		gen.IntRange(1, 600),
		gen.IntRange(16, 600),
		gen.IntRange(16, 600),
		gen.Float64Range(0.25, 1.0),
		gen.Float64Range(1.0, 4.0),
	))

	properties.Property("aspect ratio survives resizing", prop.ForAll(
		func(w, h int) bool {
			img := grayImage(w, h)
			out := applySizePolicy(img, 100, 100, 0.75, 1.25)
			if out == nil {
				return false
			}
			inAspect := float64(w) / float64(h)
			ob := out.Bounds()
			outAspect := float64(ob.Dx()) / float64(ob.Dy())
			// Small outputs quantize aspect coarsely.
			tol := math.Max(0.05, 2.0/float64(ob.Dy()))
			return math.Abs(inAspect-outAspect) <= inAspect*tol
		},
		gen.IntRange(20, 500),
		gen.IntRange(20, 500),
	))

	properties.TestingRun(t)
}
