package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageCommand(t *testing.T) {
	assert.NotNil(t, imageCmd)
	assert.True(t, strings.HasPrefix(imageCmd.Use, "image"))
	assert.NotEmpty(t, imageCmd.Short)
	assert.NotEmpty(t, imageCmd.Long)
}

func TestImageCommandHelp(t *testing.T) {
	command := imageCmd
	buf := new(bytes.Buffer)
	command.SetOut(buf)
	command.SetErr(buf)
	// Call help directly to avoid cobra root execution differences
	err := command.Help()
	require.NoError(t, err)
	output := strings.TrimSpace(buf.String())
	assert.Contains(t, output, "Rectify")
	assert.Contains(t, output, "Usage:")
	assert.Contains(t, output, "Flags:")
}

func TestImageCommandFlags(t *testing.T) {
	flags := imageCmd.Flags()

	for _, name := range []string{"corners", "denoise", "contrast", "sharpen", "format", "output", "output-dir", "overlay-dir"} {
		assert.NotNil(t, flags.Lookup(name), "flag %q missing", name)
	}
}

func TestImageCommandWithoutFile(t *testing.T) {
	err := imageCmd.RunE(imageCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files")
}

func TestImageCommandWithNonExistentFile(t *testing.T) {
	err := imageCmd.RunE(imageCmd, []string{"/non/existent/file.jpg"})
	assert.Error(t, err)
}

func TestImageCommandUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	err := imageCmd.RunE(imageCmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image format")
}

// writeTestPage writes a PNG with a bright page on a dark background.
func writeTestPage(t *testing.T, path string, w, h int, page image.Rectangle) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{25, 25, 25, 255}), image.Point{}, draw.Src)
	draw.Draw(img, page, image.NewUniform(color.NRGBA{245, 245, 245, 255}), image.Point{}, draw.Src)

	f, err := os.Create(path) //nolint:gosec // G304: test fixture path
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, png.Encode(f, img))
}

func TestImageCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.png")
	writeTestPage(t, src, 320, 260, image.Rect(40, 40, 280, 220))

	outDir := filepath.Join(dir, "out")
	require.NoError(t, imageCmd.Flags().Set("output-dir", outDir))
	t.Cleanup(func() {
		_ = imageCmd.Flags().Set("output-dir", "")
		imageCmd.Flags().Lookup("output-dir").Changed = false
	})

	buf := new(bytes.Buffer)
	imageCmd.SetOut(buf)

	err := imageCmd.RunE(imageCmd, []string{src})
	require.NoError(t, err)

	outPath := filepath.Join(outDir, "page_rectified.png")
	_, statErr := os.Stat(outPath)
	require.NoError(t, statErr, "rectified image should be written")

	assert.Contains(t, buf.String(), "page_rectified.png")
}

func TestImageCommandManualCornersRejectMultipleFiles(t *testing.T) {
	require.NoError(t, imageCmd.Flags().Set("corners", "0,0,10,0,10,10,0,10"))
	t.Cleanup(func() {
		_ = imageCmd.Flags().Set("corners", "")
		imageCmd.Flags().Lookup("corners").Changed = false
	})

	err := imageCmd.RunE(imageCmd, []string{"a.png", "b.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single input file")
}

func TestParseCornersFlag(t *testing.T) {
	quad, err := parseCornersFlag("")
	require.NoError(t, err)
	assert.Nil(t, quad)

	quad, err = parseCornersFlag("0,0,100,0,100,60,0,60")
	require.NoError(t, err)
	require.NotNil(t, quad)
	assert.InDelta(t, 100, quad.TopRight().X, 1e-9)

	_, err = parseCornersFlag("1,2,3")
	require.Error(t, err)

	_, err = parseCornersFlag("a,b,c,d,e,f,g,h")
	require.Error(t, err)
}
