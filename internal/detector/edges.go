package detector

import (
	"image"
	"math"

	"github.com/squaredoc/rectify/internal/mempool"
)

// grayscaleFloat32 converts an image to a normalized luminance plane in [0,1]
// using BT.601 weights. The returned buffer comes from the pool; callers
// release it with mempool.PutFloat32.
func grayscaleFloat32(img image.Image) ([]float32, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := mempool.GetFloat32(w * h)
	for y := range h {
		for x := range w {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			gray[y*w+x] = float32(lum / 255.0)
		}
	}
	return gray, w, h
}

// sobelMagnitude computes the gradient magnitude of a luminance plane with
// the 3x3 Sobel operator. Border pixels replicate their nearest neighbor.
// The result is normalized so the strongest possible edge maps to 1.
func sobelMagnitude(gray []float32, w, h int) []float32 {
	mag := mempool.GetFloat32(w * h)
	if w < 3 || h < 3 {
		clear(mag)
		return mag
	}
	at := func(x, y int) float32 {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		return gray[y*w+x]
	}
	// max |gx| and |gy| for inputs in [0,1] is 4
	const norm = 1.0 / (4.0 * math.Sqrt2)
	for y := range h {
		for x := range w {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			m := math.Hypot(float64(gx), float64(gy)) * norm
			if m > 1 {
				m = 1
			}
			mag[y*w+x] = float32(m)
		}
	}
	return mag
}

// edgeMask thresholds a gradient magnitude plane into a binary mask.
// The returned buffer comes from the pool; callers release it with
// mempool.PutBool.
func edgeMask(mag []float32, w, h int, threshold float32) []bool {
	mask := mempool.GetBool(w * h)
	for i, m := range mag {
		if m >= threshold {
			mask[i] = true
		}
	}
	return mask
}
