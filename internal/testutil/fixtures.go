package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFixture represents a test fixture with input and expected output.
type TestFixture struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputFile   string                 `json:"input_file"`
	Expected    interface{}            `json:"expected"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// RectifyExpectedResult represents expected rectification output for testing.
type RectifyExpectedResult struct {
	Corners    []Point `json:"corners"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
}

// Point represents a 2D coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LoadFixture loads a test fixture from JSON file.
func LoadFixture(t *testing.T, name string) TestFixture {
	t.Helper()

	fixturesDir := GetFixturesDir(t)
	fixturePath := filepath.Join(fixturesDir, name+".json")

	data, err := os.ReadFile(fixturePath) //nolint:gosec // G304: Reading test fixture files with controlled paths
	require.NoError(t, err, "Failed to read fixture file: %s", fixturePath)

	var fixture TestFixture
	err = json.Unmarshal(data, &fixture)
	require.NoError(t, err, "Failed to unmarshal fixture JSON")

	return fixture
}

// SaveFixture saves a test fixture to JSON file.
func SaveFixture(t *testing.T, fixture TestFixture) {
	t.Helper()

	fixturesDir := GetFixturesDir(t)
	require.NoError(t, EnsureDir(fixturesDir))

	fixturePath := filepath.Join(fixturesDir, fixture.Name+".json")

	data, err := json.MarshalIndent(fixture, "", "  ")
	require.NoError(t, err, "Failed to marshal fixture to JSON")

	err = os.WriteFile(fixturePath, data, 0o600)
	require.NoError(t, err, "Failed to write fixture file: %s", fixturePath)
}

// createStraightFixture creates a fixture for a straight-on document photo.
func createStraightFixture(t *testing.T) TestFixture {
	t.Helper()

	return TestFixture{
		Name:        "straight_document",
		Description: "Straight-on document photo with a clean page border",
		InputFile:   "images/straight/document_2.png",
		Expected: RectifyExpectedResult{
			Corners: []Point{
				{X: 60, Y: 60},
				{X: 580, Y: 60},
				{X: 580, Y: 420},
				{X: 60, Y: 420},
			},
			Width:      520,
			Height:     360,
			Detected:   true,
			Confidence: 0.9,
		},
		Metadata: map[string]interface{}{
			"image_size": map[string]int{
				"width":  640,
				"height": 480,
			},
		},
	}
}

// createRotatedFixture creates a fixture for a rotated document photo.
func createRotatedFixture(t *testing.T) TestFixture {
	t.Helper()

	return TestFixture{
		Name:        "rotated_document",
		Description: "Document photo rotated by 15 degrees",
		InputFile:   "images/rotated/rotated_15.png",
		Expected: RectifyExpectedResult{
			Detected:   true,
			Confidence: 0.8,
		},
		Metadata: map[string]interface{}{
			"rotation": 15,
			"image_size": map[string]int{
				"width":  640,
				"height": 480,
			},
		},
	}
}

// createNoisyFixture creates a fixture for a noisy low-quality photo.
func createNoisyFixture(t *testing.T) TestFixture {
	t.Helper()

	return TestFixture{
		Name:        "noisy_document",
		Description: "Low quality document photo with sensor noise",
		InputFile:   "images/noisy/noisy_document.png",
		Expected: RectifyExpectedResult{
			Detected:   true,
			Confidence: 0.7,
		},
		Metadata: map[string]interface{}{
			"noise_level": 0.02,
			"image_size": map[string]int{
				"width":  1024,
				"height": 768,
			},
		},
	}
}

// CreateSampleFixtures creates sample test fixtures.
func CreateSampleFixtures(t *testing.T) {
	t.Helper()

	SaveFixture(t, createStraightFixture(t))
	SaveFixture(t, createRotatedFixture(t))
	SaveFixture(t, createNoisyFixture(t))
}

// GetFixtureInputPath returns the full path to a fixture's input file.
func GetFixtureInputPath(t *testing.T, fixture TestFixture) string {
	t.Helper()

	testDataDir := GetTestDataDir(t)
	return filepath.Join(testDataDir, fixture.InputFile)
}

// ValidateFixture validates that a fixture's input file exists.
func ValidateFixture(t *testing.T, fixture TestFixture) {
	t.Helper()

	inputPath := GetFixtureInputPath(t, fixture)
	require.True(t, FileExists(inputPath), "Fixture input file does not exist: %s", inputPath)
}
