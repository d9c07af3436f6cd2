package utils

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("out", "scan_rectified.png"),
		OutputPath(filepath.Join("in", "scan.png"), "out", ""))
	assert.Equal(t,
		filepath.Join("in", "scan_rectified.jpg"),
		OutputPath(filepath.Join("in", "scan.jpg"), "", ""))
	assert.Equal(t,
		filepath.Join("out", "scan_fixed.tiff"),
		OutputPath(filepath.Join("in", "scan.tiff"), "out", "_fixed"))
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("a.png"))
	assert.True(t, IsSupportedImage("a.JPG"))
	assert.True(t, IsSupportedImage("a.tiff"))
	assert.True(t, IsSupportedImage("a.bmp"))
	assert.False(t, IsSupportedImage("a.gif"))
	assert.False(t, IsSupportedImage("a.pdf"))
}

func testPattern(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	return img
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	img := testPattern(32, 24)

	for _, name := range []string{"p.png", "p.jpg", "p.bmp", "p.tiff"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveImage(path, img), name)

		loaded, meta, err := LoadImage(path)
		require.NoError(t, err, name)
		assert.Equal(t, 32, meta.Width)
		assert.Equal(t, 24, meta.Height)
		assert.Equal(t, 32, loaded.Bounds().Dx())
		assert.Positive(t, meta.SizeBytes)
	}
}

func TestLoadImageErrors(t *testing.T) {
	var ipe *ImageProcessingError

	_, _, err := LoadImage("")
	require.Error(t, err)
	assert.True(t, errors.As(err, &ipe))

	_, _, err = LoadImage("nope.gif")
	require.Error(t, err)

	_, _, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.True(t, errors.As(err, &ipe))
	assert.Equal(t, "load", ipe.Operation)
}

func TestSaveImageErrors(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, SaveImage(filepath.Join(dir, "x.png"), nil))
	require.Error(t, SaveImage(filepath.Join(dir, "x.webp"), testPattern(4, 4)))
}

func TestBatchLoadImages(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ok.png")
	require.NoError(t, SaveImage(good, testPattern(8, 8)))

	results := BatchLoadImages([]string{good, filepath.Join(dir, "missing.png")})
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Img)
	assert.Error(t, results[1].Err)
}
