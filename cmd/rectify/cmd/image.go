package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/squaredoc/rectify/internal/config"
	"github.com/squaredoc/rectify/internal/pipeline"
	"github.com/squaredoc/rectify/internal/utils"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Rectify one or more document images",
	Long: `Rectify one or more photographed document images.

The page boundary is detected automatically unless corners are supplied
with --corners as a comma-separated x0,y0,...,x3,y3 list.

Supported formats: JPEG, PNG, BMP, TIFF

Examples:
  rectify image photo.jpg
  rectify image scan.png --corners 12,8,980,15,990,1400,5,1390
  rectify image *.jpg --contrast --sharpen --output-dir out/
  rectify image document.jpg --format json --output results.json`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Help handling for tests
		if len(args) > 0 && (args[0] == "--help" || args[0] == "-h") {
			return cmd.Help()
		}
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		// Get configuration (includes CLI flags, config file, env vars, and defaults)
		cfg := GetConfig()

		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format, _ = cmd.Flags().GetString("format")
		}
		if format != outputFormatText && format != outputFormatJSON {
			return fmt.Errorf("invalid output format: %s (must be one of: text, json)", format)
		}

		outputDir := cfg.Output.Dir
		if cmd.Flags().Changed("output-dir") {
			outputDir, _ = cmd.Flags().GetString("output-dir")
		}
		overlayDir := cfg.Output.OverlayDir
		if cmd.Flags().Changed("overlay-dir") {
			overlayDir, _ = cmd.Flags().GetString("overlay-dir")
		}
		outputFile := cfg.Output.File
		if cmd.Flags().Changed("output") {
			outputFile, _ = cmd.Flags().GetString("output")
		}

		cornersFlag, _ := cmd.Flags().GetString("corners")
		quad, err := parseCornersFlag(cornersFlag)
		if err != nil {
			return err
		}
		if quad != nil && len(args) > 1 {
			return errors.New("--corners applies to a single input file")
		}

		pl, err := buildImagePipeline(cfg, cmd)
		if err != nil {
			return fmt.Errorf("failed to build rectification pipeline: %w", err)
		}

		var outputs []string
		for _, pth := range args {
			if !utils.IsSupportedImage(pth) {
				return fmt.Errorf("unsupported image format: %s", pth)
			}
			img, meta, err := utils.LoadImage(pth)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", pth, err)
			}

			res, err := pl.Process(img, quad)
			if err != nil {
				return fmt.Errorf("rectification failed for %s: %w", pth, err)
			}

			outPath := utils.OutputPath(pth, outputDir, utils.DefaultOutputSuffix)
			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o750); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			if err := utils.SaveImage(outPath, res.Image); err != nil {
				return fmt.Errorf("failed to save %s: %w", outPath, err)
			}

			if overlayDir != "" {
				if err := saveQuadOverlay(img, res.Quad, pth, overlayDir); err != nil {
					fmt.Fprintf(os.Stderr, "warning: overlay for %s failed: %v\n", pth, err)
				}
			}

			out, err := formatImageResult(meta.Path, outPath, res, format)
			if err != nil {
				return err
			}
			outputs = append(outputs, out)
		}

		final := strings.Join(outputs, "")
		if outputFile != "" {
			if err := os.WriteFile(outputFile, []byte(final), 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", outputFile); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprint(cmd.OutOrStdout(), final); err != nil {
				return fmt.Errorf("failed to write final output: %w", err)
			}
		}
		return nil
	},
}

// buildImagePipeline maps configuration and CLI flags onto a pipeline.
func buildImagePipeline(cfg *config.Config, cmd *cobra.Command) (*pipeline.Pipeline, error) {
	pCfg := cfg.ToPipelineConfig()

	b := pipeline.NewBuilder().
		WithDetectorConfig(pCfg.Detector).
		WithEnhanceConfig(pCfg.Enhance)

	if cmd.Flags().Changed("denoise") {
		enabled, _ := cmd.Flags().GetBool("denoise")
		strength := pCfg.Enhance.DenoiseStrength
		if cmd.Flags().Changed("denoise-strength") {
			strength, _ = cmd.Flags().GetFloat64("denoise-strength")
		}
		b = b.WithDenoise(enabled, strength)
	}
	if cmd.Flags().Changed("contrast") {
		enabled, _ := cmd.Flags().GetBool("contrast")
		clip := pCfg.Enhance.ContrastClipLimit
		if cmd.Flags().Changed("clip-limit") {
			clip, _ = cmd.Flags().GetFloat64("clip-limit")
		}
		b = b.WithContrast(enabled, clip)
	}
	if cmd.Flags().Changed("sharpen") {
		enabled, _ := cmd.Flags().GetBool("sharpen")
		amount := pCfg.Enhance.SharpenAmount
		if cmd.Flags().Changed("sharpen-amount") {
			amount, _ = cmd.Flags().GetFloat64("sharpen-amount")
		}
		b = b.WithSharpen(enabled, amount)
	}
	if cmd.Flags().Changed("edge-threshold") {
		th, _ := cmd.Flags().GetFloat64("edge-threshold")
		b = b.WithEdgeThreshold(th)
	}
	if cmd.Flags().Changed("min-area-ratio") {
		ratio, _ := cmd.Flags().GetFloat64("min-area-ratio")
		b = b.WithMinAreaRatio(ratio)
	}

	return b.Build()
}

// parseCornersFlag parses the --corners value into an ordered quad.
func parseCornersFlag(s string) (*utils.Quad, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 8 {
		return nil, fmt.Errorf("--corners must contain 8 comma-separated values, got %d", len(parts))
	}

	pts := make([]utils.Point, 4)
	for i := range pts {
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[2*i]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid corner value %q: %w", parts[2*i], err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[2*i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid corner value %q: %w", parts[2*i+1], err)
		}
		pts[i] = utils.Point{X: x, Y: y}
	}

	q, err := utils.OrderCorners(pts)
	if err != nil {
		return nil, fmt.Errorf("invalid corners: %w", err)
	}
	return &q, nil
}

// saveQuadOverlay writes a copy of the source image with the used quad
// drawn on top.
func saveQuadOverlay(img image.Image, quad utils.Quad, srcPath, overlayDir string) error {
	if err := os.MkdirAll(overlayDir, 0o750); err != nil {
		return err
	}

	canvas := image.NewRGBA(img.Bounds())
	draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Src)
	utils.DrawQuad(canvas, quad, color.RGBA{255, 0, 0, 255}, 3)

	base := filepath.Base(srcPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outPath := filepath.Join(overlayDir, stem+"_overlay.png")

	f, err := os.Create(outPath) //nolint:gosec // G304: overlay path derives from user-controlled input
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return png.Encode(f, canvas)
}

// formatImageResult renders a per-file result in the requested format.
func formatImageResult(srcPath, outPath string, res *pipeline.Result, format string) (string, error) {
	if format == outputFormatJSON {
		obj := struct {
			File   string           `json:"file"`
			Output string           `json:"output"`
			Result *pipeline.Result `json:"result"`
		}{File: srcPath, Output: outPath, Result: res}
		bts, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(bts) + "\n", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s -> %s (%dx%d)\n", srcPath, outPath, res.Width, res.Height)
	if res.Detection != nil {
		fmt.Fprintf(&sb, "  detected: %t confidence: %.3f\n", res.Detection.Valid, res.Detection.Confidence)
	} else {
		fmt.Fprintf(&sb, "  corners: manual\n")
	}
	for i, p := range res.Quad.Points() {
		fmt.Fprintf(&sb, "  corner %d: (%.1f, %.1f)\n", i, p.X, p.Y)
	}
	return sb.String(), nil
}

func init() {
	rootCmd.AddCommand(imageCmd)

	imageCmd.Flags().String("corners", "", "manual page corners as x0,y0,x1,y1,x2,y2,x3,y3")
	imageCmd.Flags().Bool("denoise", false, "enable denoising")
	imageCmd.Flags().Float64("denoise-strength", 10, "denoise filtering strength")
	imageCmd.Flags().Bool("contrast", false, "enable adaptive contrast enhancement")
	imageCmd.Flags().Float64("clip-limit", 2.0, "contrast clip limit")
	imageCmd.Flags().Bool("sharpen", false, "enable unsharp masking")
	imageCmd.Flags().Float64("sharpen-amount", 1.2, "sharpening amount (0 = identity)")
	imageCmd.Flags().Float64("edge-threshold", 0, "edge magnitude threshold (0..1, 0 = default)")
	imageCmd.Flags().Float64("min-area-ratio", 0, "minimum page area ratio (0..1, 0 = default)")
	imageCmd.Flags().StringP("format", "f", "text", "output format: text, json")
	imageCmd.Flags().StringP("output", "o", "", "output file for results (default: stdout)")
	imageCmd.Flags().String("output-dir", "", "directory for rectified images (default: alongside input)")
	imageCmd.Flags().String("overlay-dir", "", "directory to save detection overlay images")
}
