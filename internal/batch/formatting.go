package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// formatBatchResults renders the per-file results in the requested format.
func formatBatchResults(files []*FileResult, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(files)
	case "csv":
		return formatCSV(files)
	default: // text
		return formatText(files)
	}
}

// formatJSON formats results as JSON.
func formatJSON(files []*FileResult) (string, error) {
	out := struct {
		Files []*FileResult `json:"files"`
	}{Files: files}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatCSV formats results as CSV, one row per file.
func formatCSV(files []*FileResult) (string, error) {
	rows := [][]string{{
		"file", "status", "output", "valid", "confidence",
		"x0", "y0", "x1", "y1", "x2", "y2", "x3", "y3",
		"width", "height", "duration_ms", "error",
	}}

	for _, f := range files {
		if f == nil {
			continue
		}
		status := "ok"
		if f.Error != "" {
			status = "failed"
		}
		row := []string{
			f.Path,
			status,
			f.OutputPath,
			strconv.FormatBool(f.Valid),
			fmt.Sprintf("%.3f", f.Confidence),
		}
		for _, pt := range f.Quad.Points() {
			row = append(row, fmt.Sprintf("%.1f", pt.X), fmt.Sprintf("%.1f", pt.Y))
		}
		row = append(row,
			strconv.Itoa(f.Width),
			strconv.Itoa(f.Height),
			strconv.FormatInt(f.DurationNs/int64(time.Millisecond), 10),
			f.Error,
		)
		rows = append(rows, row)
	}

	var output strings.Builder
	writer := csv.NewWriter(&output)
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), nil
}

// formatText formats results as plain text.
func formatText(files []*FileResult) (string, error) {
	var output strings.Builder
	for i, f := range files {
		if i > 0 {
			output.WriteString("\n")
		}
		if f == nil {
			continue
		}
		output.WriteString(fmt.Sprintf("# %s\n", f.Path))
		if f.Error != "" {
			output.WriteString(fmt.Sprintf("  failed: %s\n", f.Error))
			continue
		}
		output.WriteString(fmt.Sprintf("  output: %s (%dx%d)\n", f.OutputPath, f.Width, f.Height))
		output.WriteString(fmt.Sprintf("  detected: %t (confidence %.3f)\n", f.Valid, f.Confidence))
		corners := make([]string, 0, 4)
		for _, pt := range f.Quad.Points() {
			corners = append(corners, fmt.Sprintf("(%.1f, %.1f)", pt.X, pt.Y))
		}
		output.WriteString(fmt.Sprintf("  corners: %s\n", strings.Join(corners, " ")))
		output.WriteString(fmt.Sprintf("  duration: %v\n",
			(time.Duration(f.DurationNs) * time.Nanosecond).Round(time.Millisecond)))
	}
	return output.String(), nil
}
