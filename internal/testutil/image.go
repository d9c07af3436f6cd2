package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test image sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	LargeSize  = ImageSize{1024, 768}
)

// DocumentConfig holds configuration for generating synthetic document
// photos: a bright page on a dark background, optionally rotated and
// overlaid with text-like ruling.
type DocumentConfig struct {
	Size       ImageSize
	PageInset  int // distance from the canvas edge to the page border
	Background color.Color
	PageColor  color.Color
	TextLines  int     // number of dark bars simulating text
	Rotation   float64 // rotation in degrees
	Noise      float64 // fraction of pixels to corrupt
}

// DefaultDocumentConfig returns a default configuration for document images.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		Size:       MediumSize,
		PageInset:  60,
		Background: color.NRGBA{28, 28, 30, 255},
		PageColor:  color.NRGBA{246, 246, 242, 255},
		TextLines:  6,
	}
}

// PageBounds returns the page rectangle the config describes, before
// any rotation. Returns the zero rectangle when the inset leaves no
// page area, since image.Rect would canonicalize swapped coordinates
// into a bogus non-empty rect.
func (c DocumentConfig) PageBounds() image.Rectangle {
	if 2*c.PageInset >= c.Size.Width || 2*c.PageInset >= c.Size.Height {
		return image.Rectangle{}
	}
	return image.Rect(c.PageInset, c.PageInset, c.Size.Width-c.PageInset, c.Size.Height-c.PageInset)
}

// GenerateDocumentImage creates a synthetic document photo.
func GenerateDocumentImage(config DocumentConfig) (*image.RGBA, error) {
	if config.Size.Width <= 0 || config.Size.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", config.Size.Width, config.Size.Height)
	}
	page := config.PageBounds()
	if page.Empty() {
		return nil, fmt.Errorf("page inset %d leaves no page area in %dx%d", config.PageInset, config.Size.Width, config.Size.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, config.Size.Width, config.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)
	draw.Draw(img, page, &image.Uniform{config.PageColor}, image.Point{}, draw.Src)

	// Simulate text with evenly spaced dark bars inside the page
	if config.TextLines > 0 {
		ink := color.NRGBA{55, 55, 60, 255}
		margin := page.Dx() / 10
		step := page.Dy() / (config.TextLines + 1)
		barHeight := step / 4
		if barHeight < 1 {
			barHeight = 1
		}
		for i := 1; i <= config.TextLines; i++ {
			y := page.Min.Y + i*step
			bar := image.Rect(page.Min.X+margin, y, page.Max.X-margin, y+barHeight)
			draw.Draw(img, bar, &image.Uniform{ink}, image.Point{}, draw.Src)
		}
	}

	// Apply rotation if specified
	if config.Rotation != 0 {
		rotated := imaging.Rotate(img, config.Rotation, config.Background)
		rgba := image.NewRGBA(rotated.Bounds())
		draw.Draw(rgba, rgba.Bounds(), rotated, rotated.Bounds().Min, draw.Src)
		img = rgba
	}

	if config.Noise > 0 {
		img = addNoise(img, config.Noise)
	}

	return img, nil
}

// SaveImage saves an image to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	// Ensure directory exists
	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	err = png.Encode(file, img)
	require.NoError(t, err, "Failed to encode PNG image")
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")

	return img
}

// CompareImages compares two images and returns true if they are similar.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	bounds1 := img1.Bounds()
	bounds2 := img2.Bounds()

	if bounds1 != bounds2 {
		return false
	}

	var totalDiff float64
	var pixelCount float64

	for y := bounds1.Min.Y; y < bounds1.Max.Y; y++ {
		for x := bounds1.Min.X; x < bounds1.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x, y).RGBA()

			// Calculate color difference
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)

			diff := math.Sqrt(dr*dr + dg*dg + db*db + da*da)
			totalDiff += diff
			pixelCount++
		}
	}

	avgDiff := totalDiff / pixelCount
	maxDiff := math.Sqrt(4 * 65535 * 65535) // Maximum possible difference

	return (avgDiff / maxDiff) <= tolerance
}

// GenerateTestImages creates a set of standard document test images in
// the testdata directory.
func GenerateTestImages(t *testing.T) {
	t.Helper()

	// Straight-on document photos
	straightDir := GetTestImageDir(t, "straight")
	require.NoError(t, EnsureDir(straightDir))

	for i, size := range []ImageSize{SmallSize, MediumSize, LargeSize} {
		config := DefaultDocumentConfig()
		config.Size = size

		img, err := GenerateDocumentImage(config)
		require.NoError(t, err, "Failed to generate document image %dx%d", size.Width, size.Height)

		SaveImage(t, img, filepath.Join(straightDir, fmt.Sprintf("document_%d.png", i+1)))
	}

	// Rotated documents
	rotatedDir := GetTestImageDir(t, "rotated")
	require.NoError(t, EnsureDir(rotatedDir))

	rotations := []float64{5, 15, -10, 30}
	for _, rotation := range rotations {
		config := DefaultDocumentConfig()
		config.Rotation = rotation

		img, err := GenerateDocumentImage(config)
		require.NoError(t, err, "Failed to generate rotated image for angle: %.1f", rotation)

		SaveImage(t, img, filepath.Join(rotatedDir, fmt.Sprintf("rotated_%.0f.png", rotation)))
	}

	// Simulated low quality photos with noise
	noisyDir := GetTestImageDir(t, "noisy")
	require.NoError(t, EnsureDir(noisyDir))

	config := DefaultDocumentConfig()
	config.Size = LargeSize
	config.Noise = 0.02

	img, err := GenerateDocumentImage(config)
	require.NoError(t, err, "Failed to generate noisy document image")
	SaveImage(t, img, filepath.Join(noisyDir, "noisy_document.png"))
}

// addNoise adds random noise to an image to simulate camera artifacts.
func addNoise(img *image.RGBA, noiseLevel float64) *image.RGBA {
	bounds := img.Bounds()
	noisy := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()

			// Add random noise
			if math.Mod(float64(x*y), 1.0/noiseLevel) < 1.0 {
				// Flip random pixels
				if (x+y)%2 == 0 {
					r = 65535 - r
					g = 65535 - g
					b = 65535 - b
				}
			}

			//nolint:gosec // G115: Safe conversion for image noise generation
			noisy.Set(x, y, color.RGBA64{uint16(r), uint16(g), uint16(b), uint16(a)})
		}
	}

	return noisy
}

// CreateTestImage creates a simple test image with the specified dimensions and color.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// LoadImageFile loads an image from the specified path (non-testing version).
func LoadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: Opening user-provided image file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}
