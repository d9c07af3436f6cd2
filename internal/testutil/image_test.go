package testutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDocumentConfig(t *testing.T) {
	config := DefaultDocumentConfig()
	assert.Equal(t, MediumSize, config.Size)
	assert.Equal(t, 60, config.PageInset)
	assert.Equal(t, 6, config.TextLines)
	assert.InDelta(t, 0.0, config.Rotation, 0.0001)
	assert.InDelta(t, 0.0, config.Noise, 0.0001)
}

func TestDocumentConfigPageBounds(t *testing.T) {
	config := DefaultDocumentConfig()
	page := config.PageBounds()
	assert.Equal(t, 60, page.Min.X)
	assert.Equal(t, 60, page.Min.Y)
	assert.Equal(t, config.Size.Width-60, page.Max.X)
	assert.Equal(t, config.Size.Height-60, page.Max.Y)

	// an inset wider than half the canvas leaves no page
	config.Size = SmallSize
	config.PageInset = 200
	assert.True(t, config.PageBounds().Empty())
}

func TestGenerateDocumentImage(t *testing.T) {
	config := DefaultDocumentConfig()
	config.Size = SmallSize
	config.PageInset = 30

	img, err := GenerateDocumentImage(config)
	require.NoError(t, err)
	assert.NotNil(t, img)

	bounds := img.Bounds()
	assert.Equal(t, SmallSize.Width, bounds.Dx())
	assert.Equal(t, SmallSize.Height, bounds.Dy())

	// Page interior is bright, background is dark
	r, g, b, _ := img.At(config.Size.Width/2, config.PageInset+5).RGBA()
	assert.Greater(t, r+g+b, uint32(3*50000), "page area should be bright")

	r, g, b, _ = img.At(5, 5).RGBA()
	assert.Less(t, r+g+b, uint32(3*20000), "background should be dark")
}

func TestGenerateDocumentImageRejectsBadConfig(t *testing.T) {
	config := DefaultDocumentConfig()
	config.Size = ImageSize{0, 0}

	_, err := GenerateDocumentImage(config)
	assert.Error(t, err)

	config = DefaultDocumentConfig()
	config.Size = SmallSize
	config.PageInset = 200

	_, err = GenerateDocumentImage(config)
	assert.Error(t, err)
}

func TestGenerateRotatedDocumentImage(t *testing.T) {
	config := DefaultDocumentConfig()
	config.Rotation = 15.0

	img, err := GenerateDocumentImage(config)
	require.NoError(t, err)
	assert.NotNil(t, img)

	// Rotation expands the canvas
	bounds := img.Bounds()
	assert.GreaterOrEqual(t, bounds.Dx(), config.Size.Width)
	assert.GreaterOrEqual(t, bounds.Dy(), config.Size.Height)
}

func TestSaveAndLoadImage(t *testing.T) {
	config := DefaultDocumentConfig()
	img, err := GenerateDocumentImage(config)
	require.NoError(t, err)

	// Save to temporary file
	tempDir := CreateTempDir(t)
	imagePath := tempDir + "/test_image.png"
	SaveImage(t, img, imagePath)

	// Verify file exists
	assert.True(t, FileExists(imagePath))

	// Load the image back
	loadedImg := LoadImage(t, imagePath)
	assert.NotNil(t, loadedImg)

	// Compare bounds
	assert.Equal(t, img.Bounds(), loadedImg.Bounds())
}

func TestCompareImages(t *testing.T) {
	config := DefaultDocumentConfig()

	// Generate two identical images
	img1, err := GenerateDocumentImage(config)
	require.NoError(t, err)

	img2, err := GenerateDocumentImage(config)
	require.NoError(t, err)

	// Should be identical (or very similar)
	assert.True(t, CompareImages(img1, img2, 0.01))

	// Generate a very different image (inverted palette)
	config.Background = color.NRGBA{240, 240, 240, 255}
	config.PageColor = color.NRGBA{20, 20, 20, 255}
	img3, err := GenerateDocumentImage(config)
	require.NoError(t, err)

	// Should be different (use a lower tolerance for this test)
	assert.False(t, CompareImages(img1, img3, 0.01))
}

func TestCreateTestImage(t *testing.T) {
	img := CreateTestImage(100, 80, color.White)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}

// TestGenerateTestImages tests the main image generation function
// This also serves as a way to actually generate the test images.
func TestGenerateTestImages(t *testing.T) {
	// This will generate all the standard test images
	GenerateTestImages(t)

	// Verify that images were created
	straightDir := GetTestImageDir(t, "straight")
	assert.True(t, DirExists(straightDir))

	rotatedDir := GetTestImageDir(t, "rotated")
	assert.True(t, DirExists(rotatedDir))

	noisyDir := GetTestImageDir(t, "noisy")
	assert.True(t, DirExists(noisyDir))

	// Check that some specific files exist
	assert.True(t, FileExists(straightDir+"/document_1.png"))
	assert.True(t, FileExists(rotatedDir+"/rotated_15.png"))
	assert.True(t, FileExists(noisyDir+"/noisy_document.png"))
}
