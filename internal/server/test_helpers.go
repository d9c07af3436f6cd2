package server

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/squaredoc/rectify/internal/detector"
	"github.com/squaredoc/rectify/internal/pipeline"
	"github.com/squaredoc/rectify/internal/utils"
)

// mockRectifier is a simple mock pipeline for handler tests.
type mockRectifier struct {
	err error
}

func (m *mockRectifier) Process(img image.Image, quad *utils.Quad) (*pipeline.Result, error) {
	if m.err != nil {
		return nil, m.err
	}

	bounds := img.Bounds()
	q := utils.FullImageQuad(bounds.Dx(), bounds.Dy())
	if quad != nil {
		q = *quad
	}

	res := &pipeline.Result{
		Image:  image.NewNRGBA(image.Rect(0, 0, 40, 30)),
		Quad:   q,
		Width:  40,
		Height: 30,
	}
	if quad == nil {
		res.Detection = &detector.Result{Quad: q, Valid: true, Confidence: 0.9}
	}
	res.Processing.DetectionNs = 1000000
	res.Processing.WarpNs = 2000000
	res.Processing.EnhanceNs = 500000
	res.Processing.TotalNs = 3500000
	return res, nil
}

// newTestServer builds a server around the mock pipeline.
func newTestServer() *Server {
	return &Server{
		pipeline:    &mockRectifier{},
		baseConfig:  pipeline.DefaultConfig(),
		corsOrigin:  "*",
		maxUploadMB: 10,
		timeoutSec:  30,
	}
}

// testPageImage renders a dark background with a white page rectangle.
func testPageImage(w, h int, page image.Rectangle) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{30, 30, 30, 255}), image.Point{}, draw.Src)
	draw.Draw(img, page, image.NewUniform(color.NRGBA{250, 250, 250, 255}), image.Point{}, draw.Src)
	return img
}

// encodePNG encodes an image as PNG bytes.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// newMultipartRequest builds a multipart POST with an image part and
// optional extra form fields.
func newMultipartRequest(url string, imageData []byte, fields map[string]string) (*http.Request, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if imageData != nil {
		part, err := writer.CreateFormFile("image", "test.png")
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(imageData); err != nil {
			return nil, err
		}
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}
