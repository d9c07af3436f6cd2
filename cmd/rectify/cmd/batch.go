package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/squaredoc/rectify/internal/batch"
	"github.com/squaredoc/rectify/internal/config"
)

// batchCmd represents the batch command for parallel image processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Rectify multiple images in parallel",
	Long: `Rectify multiple document images in parallel.
This command is optimized for processing large numbers of images using
parallel workers. Directory arguments are scanned for supported images.

Supported formats: JPEG, PNG, BMP, TIFF

Examples:
  rectify batch *.jpg *.png
  rectify batch scans/ --recursive --workers 8
  rectify batch a.jpg b.png --format json --output results.json
  rectify batch scans/ --overlay-dir overlays/ --stats`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values through Viper's precedence system.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	batchConfig := cfg.ToBatchConfig()

	if cmd.Flags().Changed("output-dir") {
		batchConfig.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("overlay-dir") {
		batchConfig.OverlayDir, _ = cmd.Flags().GetString("overlay-dir")
	}
	if cmd.Flags().Changed("format") {
		batchConfig.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		batchConfig.OutputFile, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("recursive") {
		batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	}

	// File discovery and progress settings are CLI-only
	batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	batchConfig.ShowProgress, _ = cmd.Flags().GetBool("progress")
	batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	batchConfig.ShowStats, _ = cmd.Flags().GetBool("stats")
	if cmd.Flags().Changed("progress-interval") {
		batchConfig.ProgressInterval, _ = cmd.Flags().GetDuration("progress-interval")
	}

	// Enhancement overrides
	if cmd.Flags().Changed("denoise") {
		batchConfig.Enhance.Denoise, _ = cmd.Flags().GetBool("denoise")
	}
	if cmd.Flags().Changed("contrast") {
		batchConfig.Enhance.Contrast, _ = cmd.Flags().GetBool("contrast")
	}
	if cmd.Flags().Changed("sharpen") {
		batchConfig.Enhance.Sharpen, _ = cmd.Flags().GetBool("sharpen")
	}

	return &batchConfig
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	// Get configuration from centralized system (includes CLI flags, config file, env vars, and defaults)
	cfg := GetConfig()

	// Map to batch configuration
	batchConfig := configToBatchConfig(cfg, cmd)

	if !batchConfig.Quiet {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Processing %d path(s)...\n", len(args))
	}

	// Process batch
	result, err := batch.ProcessBatch(args, batchConfig)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	// Save results
	if err := result.SaveResults(batchConfig.Format, batchConfig.OutputFile, batchConfig.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	// Print stats
	if batchConfig.ShowStats {
		result.PrintStats(batchConfig.Quiet)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Enhancement flags
	batchCmd.Flags().Bool("denoise", false, "enable denoising")
	batchCmd.Flags().Bool("contrast", false, "enable adaptive contrast enhancement")
	batchCmd.Flags().Bool("sharpen", false, "enable unsharp masking")

	// Output flags
	batchCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().String("output-dir", "", "directory for rectified images (default: alongside input)")
	batchCmd.Flags().String("overlay-dir", "", "directory to save detection overlay images")

	// Parallel processing flags
	batchCmd.Flags().IntP("workers", "w", 0, fmt.Sprintf("number of parallel workers (default: %d)", runtime.NumCPU()))

	// File discovery flags
	batchCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	batchCmd.Flags().StringSlice("include",
		[]string{"*.jpg", "*.jpeg", "*.png", "*.bmp", "*.tif", "*.tiff"}, "file patterns to include")
	batchCmd.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")

	// Progress and monitoring flags
	batchCmd.Flags().Bool("progress", false, "show progress bar")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output")
	batchCmd.Flags().Bool("stats", false, "print processing statistics")
	batchCmd.Flags().Duration("progress-interval", 0, "minimum interval between progress updates")
}
