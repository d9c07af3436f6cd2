package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
	"github.com/squaredoc/rectify/internal/pipeline"
	"github.com/squaredoc/rectify/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// theRectificationServerIsRunning starts an in-process server backed by a
// real pipeline.
func (testCtx *TestContext) theRectificationServerIsRunning() error {
	srv, err := server.NewServer(server.Config{
		Host:           "127.0.0.1",
		CORSOrigin:     "*",
		MaxUploadMB:    10,
		TimeoutSec:     30,
		PipelineConfig: pipeline.DefaultConfig(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	ts := httptest.NewServer(mux)

	u, err := url.Parse(ts.URL)
	if err != nil {
		ts.Close()
		return fmt.Errorf("failed to parse server URL: %w", err)
	}

	testCtx.ServerHost = u.Hostname()
	if portStr := u.Port(); portStr != "" {
		testCtx.ServerPort, _ = strconv.Atoi(portStr)
	}

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     ts,
		TestServer: srv,
	}
	return nil
}

// stopTestHTTPServer stops the httptest server.
func (testCtx *TestContext) stopTestHTTPServer() error {
	if testCtx.HTTPTestServer != nil && testCtx.HTTPTestServer.Server != nil {
		testCtx.HTTPTestServer.Server.Close()
		testCtx.HTTPTestServer = nil
	}
	return nil
}

// iRequestTheHealthEndpoint sends a GET request to /health.
func (testCtx *TestContext) iRequestTheHealthEndpoint() error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}

	resp, err := http.Get(testCtx.HTTPTestServer.Server.URL + "/health") //nolint:noctx // Test HTTP request
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return testCtx.recordHTTPResponse(resp)
}

// iUploadToTheRectifyEndpoint posts a file from the temp directory as
// multipart form data to /rectify.
func (testCtx *TestContext) iUploadToTheRectifyEndpoint(filename string) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}

	path := filepath.Join(testCtx.TempDir, filename)
	imageData, err := os.ReadFile(path) //nolint:gosec // G304: Test file reading with controlled path
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	resp, err := http.Post( //nolint:noctx // Test HTTP request
		testCtx.HTTPTestServer.Server.URL+"/rectify", writer.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("rectify request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return testCtx.recordHTTPResponse(resp)
}

func (testCtx *TestContext) recordHTTPResponse(resp *http.Response) error {
	testCtx.LastHTTPStatusCode = resp.StatusCode

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	testCtx.LastHTTPResponse = string(data)
	return nil
}

// theResponseStatusShouldBe verifies the last HTTP status code.
func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nResponse: %s",
			status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

// theResponseShouldReportStatus verifies the health response status field.
func (testCtx *TestContext) theResponseShouldReportStatus(status string) error {
	var health server.HealthResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &health); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}
	if health.Status != status {
		return fmt.Errorf("expected status '%s', got '%s'", status, health.Status)
	}
	return nil
}

// theResponseShouldContainARectifiedImage verifies a successful rectify
// response with an embedded PNG.
func (testCtx *TestContext) theResponseShouldContainARectifiedImage() error {
	var rectify server.RectifyResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &rectify); err != nil {
		return fmt.Errorf("failed to parse rectify response: %w", err)
	}
	if !rectify.Success {
		return fmt.Errorf("rectify response reports failure: %s", rectify.Error)
	}
	if rectify.Result == nil {
		return fmt.Errorf("rectify response has no result")
	}
	if rectify.Result.Width < 1 || rectify.Result.Height < 1 {
		return fmt.Errorf("rectified dimensions are invalid: %dx%d",
			rectify.Result.Width, rectify.Result.Height)
	}
	if rectify.Result.ImagePNG == "" {
		return fmt.Errorf("rectify response has no embedded image")
	}
	return nil
}

// theResponseShouldReportAnErrorMentioning verifies an error rectify response.
func (testCtx *TestContext) theResponseShouldReportAnErrorMentioning(errorText string) error {
	var rectify server.RectifyResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &rectify); err != nil {
		return fmt.Errorf("failed to parse rectify response: %w", err)
	}
	if rectify.Success {
		return fmt.Errorf("rectify response reports success, expected error")
	}
	if !strings.Contains(strings.ToLower(rectify.Error), strings.ToLower(errorText)) {
		return fmt.Errorf("error '%s' does not mention '%s'", rectify.Error, errorText)
	}
	return nil
}

// RegisterServerSteps registers all server step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the rectification server is running$`, testCtx.theRectificationServerIsRunning)
	sc.Step(`^I request the health endpoint$`, testCtx.iRequestTheHealthEndpoint)
	sc.Step(`^I upload "([^"]*)" to the rectify endpoint$`, testCtx.iUploadToTheRectifyEndpoint)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should report status "([^"]*)"$`, testCtx.theResponseShouldReportStatus)
	sc.Step(`^the response should contain a rectified image$`, testCtx.theResponseShouldContainARectifiedImage)
	sc.Step(`^the response should report an error mentioning "([^"]*)"$`, testCtx.theResponseShouldReportAnErrorMentioning)
}
