package support

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/squaredoc/rectify/internal/testutil"
)

// aDocumentPhotoIsAvailable generates a synthetic document photo in the
// temp directory under the given name.
func (testCtx *TestContext) aDocumentPhotoIsAvailable(filename string) error {
	config := testutil.DefaultDocumentConfig()
	return testCtx.writeDocumentPhoto(filename, config)
}

// aRotatedDocumentPhotoIsAvailable generates a document photo rotated by
// the given angle.
func (testCtx *TestContext) aRotatedDocumentPhotoIsAvailable(filename string, degrees int) error {
	config := testutil.DefaultDocumentConfig()
	config.Rotation = float64(degrees)
	return testCtx.writeDocumentPhoto(filename, config)
}

// aFileWithUnsupportedContentIsAvailable writes a plain text file that
// cannot be decoded as an image.
func (testCtx *TestContext) aFileWithUnsupportedContentIsAvailable(filename string) error {
	path := filepath.Join(testCtx.TempDir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte("this is not an image\n"), 0o600)
}

func (testCtx *TestContext) writeDocumentPhoto(filename string, config testutil.DocumentConfig) error {
	img, err := testutil.GenerateDocumentImage(config)
	if err != nil {
		return fmt.Errorf("failed to generate document image: %w", err)
	}

	path := filepath.Join(testCtx.TempDir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path) //nolint:gosec // G304: Test image creation with controlled path
	if err != nil {
		return fmt.Errorf("failed to create image file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// theRectifiedImageShouldExist verifies the rectified output file exists
// and decodes as a non-empty PNG.
func (testCtx *TestContext) theRectifiedImageShouldExist(filename string) error {
	path := testCtx.substituteCommandVariables(filename)
	if !filepath.IsAbs(path) {
		path = filepath.Join(testCtx.WorkingDir, path)
	}

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	if err != nil {
		return fmt.Errorf("rectified image not found at %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, err := png.Decode(file)
	if err != nil {
		return fmt.Errorf("rectified image is not a valid PNG: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return fmt.Errorf("rectified image is empty: %dx%d", bounds.Dx(), bounds.Dy())
	}
	return nil
}

// theOutputShouldReportDetectedCorners verifies the text output mentions
// the detected page corners.
func (testCtx *TestContext) theOutputShouldReportDetectedCorners() error {
	if strings.Contains(testCtx.LastOutput, "corner") || strings.Contains(testCtx.LastOutput, "\"quad\"") {
		return nil
	}
	return fmt.Errorf("output does not report detected corners: %s", testCtx.LastOutput)
}

// RegisterImageSteps registers all image processing step definitions.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a document photo "([^"]*)" is available$`, testCtx.aDocumentPhotoIsAvailable)
	sc.Step(`^a document photo "([^"]*)" rotated by (-?\d+) degrees is available$`,
		testCtx.aRotatedDocumentPhotoIsAvailable)
	sc.Step(`^a file "([^"]*)" with unsupported content is available$`,
		testCtx.aFileWithUnsupportedContentIsAvailable)

	sc.Step(`^the rectified image "([^"]*)" should exist$`, testCtx.theRectifiedImageShouldExist)
	sc.Step(`^the output should report detected corners$`, testCtx.theOutputShouldReportDetectedCorners)
}
