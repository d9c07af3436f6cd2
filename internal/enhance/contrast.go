package enhance

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	claheTiles = 8
	claheBins  = 256
)

// contrastStage runs contrast-limited adaptive histogram equalization.
// Equalization happens on the CIE-Lab lightness channel only, so hue and
// chroma survive; the image is split into an 8x8 tile grid and each pixel
// interpolates bilinearly between the mappings of its four nearest tiles.
type contrastStage struct {
	clipLimit float64
}

func (s *contrastStage) Name() string { return "contrast" }

func (s *contrastStage) Apply(img *image.NRGBA) (*image.NRGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errEmptyImage
	}

	lab := make([][3]float64, w*h)
	bins := make([]int, w*h)
	for y := range h {
		for x := range w {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			c := colorful.Color{
				R: float64(img.Pix[i]) / 255.0,
				G: float64(img.Pix[i+1]) / 255.0,
				B: float64(img.Pix[i+2]) / 255.0,
			}
			l, a, bb := c.Lab()
			lab[y*w+x] = [3]float64{l, a, bb}
			bin := int(l * (claheBins - 1))
			if bin < 0 {
				bin = 0
			}
			if bin >= claheBins {
				bin = claheBins - 1
			}
			bins[y*w+x] = bin
		}
	}

	tileW := (w + claheTiles - 1) / claheTiles
	tileH := (h + claheTiles - 1) / claheTiles
	mappings := make([][claheBins]float64, claheTiles*claheTiles)
	for ty := range claheTiles {
		for tx := range claheTiles {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := x0+tileW, y0+tileH
			if x1 > w {
				x1 = w
			}
			if y1 > h {
				y1 = h
			}
			mappings[ty*claheTiles+tx] = tileMapping(bins, w, x0, y0, x1, y1, s.clipLimit)
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			// tile-space position of the pixel center
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			fy := (float64(y)+0.5)/float64(tileH) - 0.5
			tx0 := int(fx)
			ty0 := int(fy)
			if fx < 0 {
				tx0 = -1
			}
			if fy < 0 {
				ty0 = -1
			}
			wx := fx - float64(tx0)
			wy := fy - float64(ty0)

			bin := bins[y*w+x]
			m00 := lookupTile(mappings, tx0, ty0, bin)
			m10 := lookupTile(mappings, tx0+1, ty0, bin)
			m01 := lookupTile(mappings, tx0, ty0+1, bin)
			m11 := lookupTile(mappings, tx0+1, ty0+1, bin)
			newL := (m00*(1-wx)+m10*wx)*(1-wy) + (m01*(1-wx)+m11*wx)*wy

			p := lab[y*w+x]
			c := colorful.Lab(newL, p[1], p[2]).Clamped()
			o := out.PixOffset(x, y)
			out.Pix[o] = uint8(c.R*255 + 0.5)
			out.Pix[o+1] = uint8(c.G*255 + 0.5)
			out.Pix[o+2] = uint8(c.B*255 + 0.5)
			out.Pix[o+3] = img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)+3]
		}
	}
	return out, nil
}

// tileMapping builds the clipped equalization transfer function for one
// tile. Histogram mass above the clip limit is redistributed uniformly
// before the cumulative mapping is formed.
func tileMapping(bins []int, stride, x0, y0, x1, y1 int, clipLimit float64) [claheBins]float64 {
	var hist [claheBins]int
	total := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[bins[y*stride+x]]++
			total++
		}
	}
	var mapping [claheBins]float64
	if total == 0 {
		for i := range mapping {
			mapping[i] = float64(i) / (claheBins - 1)
		}
		return mapping
	}

	limit := int(clipLimit * float64(total) / claheBins)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i, c := range hist {
		if c > limit {
			excess += c - limit
			hist[i] = limit
		}
	}
	share := excess / claheBins
	rem := excess % claheBins
	for i := range hist {
		hist[i] += share
	}
	if rem > 0 {
		// stride the remainder across the full range so flat regions keep
		// their lightness instead of drifting toward white
		step := claheBins / rem
		if step < 1 {
			step = 1
		}
		for i := 0; i < claheBins && rem > 0; i += step {
			hist[i]++
			rem--
		}
	}

	cum := 0
	for i, c := range hist {
		cum += c
		mapping[i] = float64(cum) / float64(total)
	}
	return mapping
}

func lookupTile(mappings [][claheBins]float64, tx, ty, bin int) float64 {
	if tx < 0 {
		tx = 0
	}
	if tx >= claheTiles {
		tx = claheTiles - 1
	}
	if ty < 0 {
		ty = 0
	}
	if ty >= claheTiles {
		ty = claheTiles - 1
	}
	return mappings[ty*claheTiles+tx][bin]
}
