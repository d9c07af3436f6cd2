package enhance

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// stepImage is dark on the left half and bright on the right.
func stepImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8(60)
			if x >= w/2 {
				v = 200
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

func lumaStdDev(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	var sum, sumSq float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			l := 0.299*float64(img.Pix[i]) + 0.587*float64(img.Pix[i+1]) + 0.114*float64(img.Pix[i+2])
			sum += l
			sumSq += l * l
		}
	}
	mean := sum / n
	return math.Sqrt(sumSq/n - mean*mean)
}

func TestSharpenAmountZeroIsIdentity(t *testing.T) {
	img := stepImage(40, 40)
	st := &sharpenStage{amount: 0}
	out, err := st.Apply(img)
	require.NoError(t, err)
	assert.Same(t, img, out)
}

func TestSharpenIncreasesEdgeContrast(t *testing.T) {
	img := stepImage(64, 64)
	st := &sharpenStage{amount: 1.2}
	out, err := st.Apply(img)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), out.Bounds())
	assert.Greater(t, lumaStdDev(out), lumaStdDev(img))
}

func TestContrastPreservesDimensionsAndAlpha(t *testing.T) {
	img := stepImage(64, 48)
	st := &contrastStage{clipLimit: 2.0}
	out, err := st.Apply(img)
	require.NoError(t, err)
	require.Equal(t, 64, out.Bounds().Dx())
	require.Equal(t, 48, out.Bounds().Dy())
	assert.Equal(t, uint8(255), out.Pix[out.PixOffset(10, 10)+3])
}

func TestContrastExpandsLowContrast(t *testing.T) {
	// narrow band of lightness values
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			v := uint8(110 + (x+y)%20)
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	st := &contrastStage{clipLimit: 4.0}
	out, err := st.Apply(img)
	require.NoError(t, err)
	assert.Greater(t, lumaStdDev(out), lumaStdDev(img))
}

func TestContrastUniformImageStable(t *testing.T) {
	img := solidImage(32, 32, color.NRGBA{128, 128, 128, 255})
	st := &contrastStage{clipLimit: 2.0}
	out, err := st.Apply(img)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), out.Bounds())
	// no wild swings on a featureless input
	for _, i := range []int{out.PixOffset(0, 0), out.PixOffset(16, 16), out.PixOffset(31, 31)} {
		assert.InDelta(t, 128, float64(out.Pix[i]), 40)
	}
}

func TestDenoiseReducesNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, 48, 48))
	for y := range 48 {
		for x := range 48 {
			v := 128 + rng.Intn(41) - 20
			img.SetNRGBA(x, y, color.NRGBA{uint8(v), uint8(v), uint8(v), 255})
		}
	}
	st := &denoiseStage{strength: 10}
	out, err := st.Apply(img)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), out.Bounds())
	assert.Less(t, lumaStdDev(out), lumaStdDev(img))
}

func TestStagesFailOpenOnEmptyImage(t *testing.T) {
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	for _, st := range []Stage{
		&denoiseStage{strength: 10},
		&contrastStage{clipLimit: 2},
		&sharpenStage{amount: 1},
	} {
		_, err := st.Apply(empty)
		assert.Error(t, err, st.Name())
	}
}

func TestEnhancerRunsConfiguredStages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sharpen = true
	e := NewEnhancer(cfg, nil)

	img := stepImage(60, 40)
	out := e.Enhance(img, 60, 40)
	require.NotNil(t, out)
	assert.Equal(t, 60, out.Bounds().Dx())
	assert.Equal(t, 40, out.Bounds().Dy())
}

func TestEnhancerNilImage(t *testing.T) {
	e := NewEnhancer(DefaultConfig(), nil)
	assert.Nil(t, e.Enhance(nil, 100, 100))
}
