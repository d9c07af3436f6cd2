package enhance

import (
	"image"
	"math"

	"github.com/squaredoc/rectify/internal/mempool"
)

// denoiseStage runs non-local means noise reduction. Patch similarity is
// measured on luminance and the resulting weights are applied to all three
// color channels.
type denoiseStage struct {
	strength float64
}

func (s *denoiseStage) Name() string { return "denoise" }

func (s *denoiseStage) Apply(img *image.NRGBA) (*image.NRGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errEmptyImage
	}

	// Patch size grows with strength but stays within 3..7, mirroring the
	// usual template window for 8-bit inputs.
	t := int(s.strength)
	if t < 3 {
		t = 3
	}
	if t > 7 {
		t = 7
	}
	if t%2 == 0 {
		t++
	}
	tHalf := t / 2
	sHalf := t // search window is 2t+1

	luma := mempool.GetFloat32(w * h)
	defer mempool.PutFloat32(luma)
	for y := range h {
		for x := range w {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			r := float32(img.Pix[i])
			g := float32(img.Pix[i+1])
			bl := float32(img.Pix[i+2])
			luma[y*w+x] = 0.299*r + 0.587*g + 0.114*bl
		}
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
		return luma[y*w+x]
	}

	patchDist := func(x0, y0, x1, y1 int) float64 {
		var sum float64
		for dy := -tHalf; dy <= tHalf; dy++ {
			for dx := -tHalf; dx <= tHalf; dx++ {
				d := float64(at(x0+dx, y0+dy) - at(x1+dx, y1+dy))
				sum += d * d
			}
		}
		return sum / float64(t*t)
	}

	h2 := s.strength * s.strength
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			var wr, wg, wb, wsum float64
			for dy := -sHalf; dy <= sHalf; dy++ {
				for dx := -sHalf; dx <= sHalf; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					d2 := patchDist(x, y, nx, ny)
					weight := math.Exp(-d2 / h2)
					i := img.PixOffset(b.Min.X+nx, b.Min.Y+ny)
					wr += weight * float64(img.Pix[i])
					wg += weight * float64(img.Pix[i+1])
					wb += weight * float64(img.Pix[i+2])
					wsum += weight
				}
			}
			o := out.PixOffset(x, y)
			src := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			out.Pix[o] = uint8(wr/wsum + 0.5)
			out.Pix[o+1] = uint8(wg/wsum + 0.5)
			out.Pix[o+2] = uint8(wb/wsum + 0.5)
			out.Pix[o+3] = img.Pix[src+3]
		}
	}
	return out, nil
}
