package enhance

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// applySizePolicy bounds the image's longest side relative to the original
// input's longest side. Downscaling uses a box filter (area averaging),
// upscaling uses Catmull-Rom (bicubic). Images already within bounds pass
// through untouched.
func applySizePolicy(img *image.NRGBA, refW, refH int, minScale, maxScale float64) *image.NRGBA {
	if img == nil {
		return nil
	}
	refLongest := refW
	if refH > refLongest {
		refLongest = refH
	}
	if refLongest <= 0 {
		return img
	}

	b := img.Bounds()
	longest := b.Dx()
	if b.Dy() > longest {
		longest = b.Dy()
	}
	if longest == 0 {
		return img
	}

	ratio := float64(longest) / float64(refLongest)
	switch {
	case ratio > maxScale:
		target := int(math.Round(float64(refLongest) * maxScale))
		return resizeLongest(img, target, imaging.Box)
	case ratio < minScale:
		target := int(math.Round(float64(refLongest) * minScale))
		return resizeLongest(img, target, imaging.CatmullRom)
	default:
		return img
	}
}

// resizeLongest scales the image preserving aspect ratio so its longest
// side becomes target.
func resizeLongest(img *image.NRGBA, target int, filter imaging.ResampleFilter) *image.NRGBA {
	if target < 1 {
		target = 1
	}
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, target, 0, filter)
	}
	return imaging.Resize(img, 0, target, filter)
}
