package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_RectifyImageHandler_MethodNotAllowed(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/rectify", nil)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_RectifyImageHandler_NoFile(t *testing.T) {
	server := newTestServer()

	req, err := newMultipartRequest("/rectify", nil, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response RectifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Success)
	assert.Contains(t, response.Error, "No image file")
}

func TestServer_RectifyImageHandler_InvalidImage(t *testing.T) {
	server := newTestServer()

	req, err := newMultipartRequest("/rectify", []byte("not an image"), nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response RectifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "Invalid image format")
}

func TestServer_RectifyImageHandler_Success(t *testing.T) {
	server := newTestServer()

	data, err := encodePNG(testPageImage(200, 160, image.Rect(20, 20, 180, 140)))
	require.NoError(t, err)

	req, err := newMultipartRequest("/rectify", data, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response RectifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response.Success)
	require.NotNil(t, response.Result)

	assert.True(t, response.Result.Detected)
	assert.InDelta(t, 0.9, response.Result.Confidence, 1e-9)
	assert.Equal(t, 40, response.Result.Width)
	assert.Equal(t, 30, response.Result.Height)

	// Embedded image must be a decodable PNG
	imgData, err := base64.StdEncoding.DecodeString(response.Result.ImagePNG)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(imgData))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())
}

func TestServer_RectifyImageHandler_ManualCorners(t *testing.T) {
	server := newTestServer()

	data, err := encodePNG(testPageImage(200, 160, image.Rect(20, 20, 180, 140)))
	require.NoError(t, err)

	req, err := newMultipartRequest("/rectify", data, map[string]string{
		"corners": "20,20,180,20,180,140,20,140",
	})
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response RectifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response.Success)

	// Caller-supplied geometry is trusted
	assert.True(t, response.Result.Detected)
	assert.InDelta(t, 1.0, response.Result.Confidence, 1e-9)
	assert.Equal(t, Corner{X: 20, Y: 20}, response.Result.Corners[0])
	assert.Equal(t, Corner{X: 180, Y: 140}, response.Result.Corners[2])
}

func TestServer_RectifyImageHandler_BadCorners(t *testing.T) {
	server := newTestServer()

	data, err := encodePNG(testPageImage(100, 100, image.Rect(10, 10, 90, 90)))
	require.NoError(t, err)

	req, err := newMultipartRequest("/rectify", data, map[string]string{
		"corners": "1,2,3",
	})
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_RectifyImageHandler_RawImageFormat(t *testing.T) {
	server := newTestServer()

	data, err := encodePNG(testPageImage(200, 160, image.Rect(20, 20, 180, 140)))
	require.NoError(t, err)

	req, err := newMultipartRequest("/rectify", data, map[string]string{
		"format": "png",
	})
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	decoded, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())
	assert.Equal(t, 30, decoded.Bounds().Dy())
}

func TestServer_RectifyImageHandler_ProcessingError(t *testing.T) {
	server := newTestServer()
	server.pipeline = &mockRectifier{err: errors.New("degenerate quad")}

	data, err := encodePNG(testPageImage(100, 100, image.Rect(10, 10, 90, 90)))
	require.NoError(t, err)

	req, err := newMultipartRequest("/rectify", data, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response RectifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.Error, "degenerate quad")
}

func TestServer_RectifyImageHandler_InvalidOverrideValue(t *testing.T) {
	server := newTestServer()

	data, err := encodePNG(testPageImage(100, 100, image.Rect(10, 10, 90, 90)))
	require.NoError(t, err)

	req, err := newMultipartRequest("/rectify", data, map[string]string{
		"denoise": "definitely",
	})
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_RectifyImageHandler_EnhancementOverrides(t *testing.T) {
	// Overrides build a real pipeline from the base config, so this
	// exercises the whole flow end to end.
	server := newTestServer()

	data, err := encodePNG(testPageImage(240, 200, image.Rect(30, 30, 210, 170)))
	require.NoError(t, err)

	req, err := newMultipartRequest("/rectify", data, map[string]string{
		"contrast":   "true",
		"clip-limit": "2.5",
		"sharpen":    "true",
	})
	require.NoError(t, err)
	w := httptest.NewRecorder()

	server.rectifyImageHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response RectifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response.Success)
	assert.Positive(t, response.Result.Width)
	assert.Positive(t, response.Result.Height)
}

func TestParseEnhanceOverrides(t *testing.T) {
	req, err := newMultipartRequest("/rectify", nil, map[string]string{
		"denoise":          "true",
		"denoise-strength": "12.5",
		"sharpen":          "off",
	})
	require.NoError(t, err)
	require.NoError(t, req.ParseMultipartForm(1<<20))

	o, err := parseEnhanceOverrides(req)
	require.NoError(t, err)

	require.NotNil(t, o.denoise)
	assert.True(t, *o.denoise)
	require.NotNil(t, o.denoiseStrength)
	assert.InDelta(t, 12.5, *o.denoiseStrength, 1e-9)
	require.NotNil(t, o.sharpen)
	assert.False(t, *o.sharpen)
	assert.Nil(t, o.contrast)
	assert.Nil(t, o.clipLimit)
	assert.False(t, o.empty())
}

func TestPipelineForRequest_NoOverridesReturnsShared(t *testing.T) {
	server := newTestServer()

	pl, err := server.pipelineForRequest(&enhanceOverrides{})
	require.NoError(t, err)
	assert.Same(t, server.pipeline.(*mockRectifier), pl.(*mockRectifier))
}
