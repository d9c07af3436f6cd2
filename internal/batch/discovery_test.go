package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.png"))
	b := touch(t, filepath.Join(dir, "b.jpg"))

	files, err := discoverImageFiles([]string{b, a}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files, "results are sorted")
}

func TestDiscoverDirectorySkipsUnsupported(t *testing.T) {
	dir := t.TempDir()
	img := touch(t, filepath.Join(dir, "page.png"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "data.bin"))

	files, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{img}, files)
}

func TestDiscoverRecursive(t *testing.T) {
	dir := t.TempDir()
	top := touch(t, filepath.Join(dir, "top.png"))
	nested := touch(t, filepath.Join(dir, "sub", "deep", "nested.jpg"))

	flat, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{top}, flat)

	all, err := discoverImageFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{top, nested}, all)
}

func TestDiscoverIncludeExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	scan := touch(t, filepath.Join(dir, "scan_01.png"))
	touch(t, filepath.Join(dir, "scan_02_draft.png"))
	touch(t, filepath.Join(dir, "photo.jpg"))

	files, err := discoverImageFiles([]string{dir}, false, []string{"scan_*.png"}, []string{"*_draft.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{scan}, files)
}

func TestDiscoverMissingPath(t *testing.T) {
	_, err := discoverImageFiles([]string{"/no/such/path"}, false, nil, nil)
	require.Error(t, err)
}
