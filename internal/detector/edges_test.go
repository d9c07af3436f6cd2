package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/squaredoc/rectify/internal/mempool"
	"github.com/stretchr/testify/assert"
)

func TestGrayscaleFloat32(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{255, 255, 255, 255})

	gray, w, h := grayscaleFloat32(img)
	defer mempool.PutFloat32(gray)

	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)
	assert.InDelta(t, 0.0, float64(gray[0]), 1e-3)
	assert.InDelta(t, 1.0, float64(gray[1]), 1e-3)
}

func TestSobelMagnitudeStepEdge(t *testing.T) {
	const w, h = 10, 10
	gray := make([]float32, w*h)
	for y := range h {
		for x := 5; x < w; x++ {
			gray[y*w+x] = 1
		}
	}

	mag := sobelMagnitude(gray, w, h)
	defer mempool.PutFloat32(mag)

	// strong response on the boundary columns, none far from it
	assert.Greater(t, mag[5*w+4], float32(0.3))
	assert.Greater(t, mag[5*w+5], float32(0.3))
	assert.Zero(t, mag[5*w+1])
	assert.Zero(t, mag[5*w+8])
}

func TestEdgeMaskThreshold(t *testing.T) {
	mag := []float32{0.1, 0.5, 0.29, 0.3}
	mask := edgeMask(mag, 4, 1, 0.3)
	defer mempool.PutBool(mask)
	assert.Equal(t, []bool{false, true, false, true}, mask[:4])
}

func TestOtsuThresholdBimodal(t *testing.T) {
	mag := make([]float32, 0, 200)
	for range 100 {
		mag = append(mag, 0.1)
	}
	for range 100 {
		mag = append(mag, 0.9)
	}
	th := otsuThreshold(mag, 256)
	assert.Greater(t, th, float32(0.05))
	assert.Less(t, th, float32(0.9))
}

func TestOtsuThresholdUniform(t *testing.T) {
	mag := make([]float32, 100)
	assert.Zero(t, otsuThreshold(mag, 256))
	assert.Zero(t, otsuThreshold(nil, 256))
}
