package enhance

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
)

const sharpenBlurSigma = 5.0

// sharpenStage applies an unsharp mask: out = in + amount*(in - blurred).
// An amount of zero returns the input buffer untouched.
type sharpenStage struct {
	amount float64
}

func (s *sharpenStage) Name() string { return "sharpen" }

func (s *sharpenStage) Apply(img *image.NRGBA) (*image.NRGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errEmptyImage
	}
	if s.amount == 0 {
		return img, nil
	}

	blurred := blur.Gaussian(img, sharpenBlurSigma)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			j := blurred.PixOffset(blurred.Bounds().Min.X+x, blurred.Bounds().Min.Y+y)
			o := out.PixOffset(x, y)
			for c := range 3 {
				orig := float64(img.Pix[i+c])
				soft := float64(blurred.Pix[j+c])
				v := orig + s.amount*(orig-soft)
				if v < 0 {
					v = 0
				}
				if v > 255 {
					v = 255
				}
				out.Pix[o+c] = uint8(v + 0.5)
			}
			out.Pix[o+3] = img.Pix[i+3]
		}
	}
	return out, nil
}
