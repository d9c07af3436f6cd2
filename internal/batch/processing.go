package batch

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/squaredoc/rectify/internal/pipeline"
	"github.com/squaredoc/rectify/internal/utils"
)

// FileResult describes the outcome of rectifying one file.
type FileResult struct {
	Path       string     `json:"path"`
	OutputPath string     `json:"output_path,omitempty"`
	Quad       utils.Quad `json:"quad"`
	Valid      bool       `json:"valid"`
	Confidence float64    `json:"confidence"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	DurationNs int64      `json:"duration_ns"`
	Error      string     `json:"error,omitempty"`
}

// processSingleFile loads, rectifies and saves one image. Errors are
// captured in the result, never returned.
func processSingleFile(pl *pipeline.Pipeline, path string, config *Config) *FileResult {
	fr := &FileResult{Path: path}
	start := time.Now()
	defer func() { fr.DurationNs = time.Since(start).Nanoseconds() }()

	if !utils.IsSupportedImage(path) {
		fr.Error = fmt.Sprintf("unsupported image format: %s", path)
		return fr
	}

	img, _, err := utils.LoadImage(path)
	if err != nil {
		fr.Error = fmt.Sprintf("failed to load: %v", err)
		return fr
	}

	res, err := pl.Process(img, nil)
	if err != nil {
		fr.Error = fmt.Sprintf("rectification failed: %v", err)
		return fr
	}

	fr.Quad = res.Quad
	fr.Width = res.Width
	fr.Height = res.Height
	if res.Detection != nil {
		fr.Valid = res.Detection.Valid
		fr.Confidence = res.Detection.Confidence
	}

	outPath := utils.OutputPath(path, config.OutputDir, utils.DefaultOutputSuffix)
	if err := utils.SaveImage(outPath, res.Image); err != nil {
		fr.Error = fmt.Sprintf("failed to save: %v", err)
		return fr
	}
	fr.OutputPath = outPath

	if config.OverlayDir != "" {
		saveOverlay(img, res.Quad, path, config.OverlayDir)
	}
	return fr
}

// saveOverlay draws the quad used for the warp over the source image and
// writes it as PNG. Overlay output is a debugging aid and fails silently.
func saveOverlay(img image.Image, quad utils.Quad, srcPath, overlayDir string) {
	if err := os.MkdirAll(overlayDir, 0o750); err != nil {
		return
	}

	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)
	utils.DrawQuad(canvas, quad, color.RGBA{R: 255, A: 255}, 3)

	base := filepath.Base(srcPath)
	outPath := filepath.Join(overlayDir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
	if f, err := os.Create(outPath); err == nil { //nolint:gosec
		// G304: outPath constructed from CLI overlay-dir flag, expected user input
		_ = png.Encode(f, canvas)
		_ = f.Close()
	}
}

// processFilesParallel rectifies files with a bounded worker pool. The
// returned slice matches the order of imagePaths.
func processFilesParallel(pl *pipeline.Pipeline, imagePaths []string,
	config *Config, progress pipeline.ProgressCallback,
) []*FileResult {
	results := make([]*FileResult, len(imagePaths))

	workers := config.Workers
	if workers <= 0 {
		workers = pipeline.DefaultParallelConfig().MaxWorkers
	}
	if workers > len(imagePaths) {
		workers = len(imagePaths)
	}

	if progress != nil {
		progress.OnStart(len(imagePaths))
		defer progress.OnComplete()
	}

	jobs := make(chan int, len(imagePaths))
	var done int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				fr := processSingleFile(pl, imagePaths[idx], config)
				results[idx] = fr

				mu.Lock()
				done++
				current := done
				mu.Unlock()

				if progress != nil {
					progress.OnProgress(current, len(imagePaths))
					if fr.Error != "" {
						progress.OnError(idx, fmt.Errorf("%s", fr.Error))
					}
				}
			}
		}()
	}

	for i := range imagePaths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
