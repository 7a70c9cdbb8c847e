package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

// BulkExportOpts contains configuration for multi-format exports.
type BulkExportOpts struct {
	Formats   []formatter.Format // Formats to write (default: csv, json, markdown)
	OutputDir string             // Output directory (default: roster_export_{epoch})
	BaseName  string             // File name without extension (default: students)
}

// FileExportResult is the outcome of writing one format.
type FileExportResult struct {
	Format  formatter.Format `json:"format"`
	Path    string           `json:"path"`
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
}

// BulkExportResult summarizes a [BulkExport] run.
type BulkExportResult struct {
	TotalStudents   int                `json:"total_students"`
	OutputDirectory string             `json:"output_directory"`
	Files           []FileExportResult `json:"files"`
	Successful      int                `json:"successful"`
	Failed          int                `json:"failed"`
	ManifestPath    string             `json:"-"`
	ExportedAt      time.Time          `json:"exported_at"`
}

// BulkExport writes students once per requested format, each on its own pool task.
//
// A failing format does not stop the others. The manifest (export_manifest.json) is written
// after every format has finished; failing to write it is the only error returned once files exist.
func BulkExport(
	ctx context.Context,
	pool *Pool,
	prog chan<- ProgressUpdate,
	students []models.Student,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: worker pool not initialized", shared.ErrServiceUnavailable)
	}

	if len(opts.Formats) == 0 {
		opts.Formats = []formatter.Format{formatter.FormatCSV, formatter.FormatJSON, formatter.FormatMarkdown}
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("roster_export_%d", time.Now().Unix())
	}
	if opts.BaseName == "" {
		opts.BaseName = "students"
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, shared.FileError("failed to create output directory", err)
	}

	result := &BulkExportResult{
		TotalStudents:   len(students),
		OutputDirectory: opts.OutputDir,
		Files:           make([]FileExportResult, 0, len(opts.Formats)),
		ExportedAt:      time.Now(),
	}

	total := len(opts.Formats)
	paths := make([]string, total)
	futures := make([]*Future[struct{}], total)
	for i, format := range opts.Formats {
		path := filepath.Join(opts.OutputDir, opts.BaseName+extension(format))
		paths[i] = path
		SendProgress(prog, WritingFileUpdate(i+1, total, path))

		futures[i] = Submit(pool, ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, formatter.WriteFile(students, path, format)
		})
	}

	for i, f := range futures {
		path := paths[i]
		_, err := f.Wait(context.Background())
		res := FileExportResult{Format: opts.Formats[i], Path: path, Success: err == nil}

		if err != nil {
			res.Error = err.Error()
			result.Failed++
			SendProgress(prog, WriteFailedUpdate(i+1, total, path, err))
		} else {
			result.Successful++
			SendProgress(prog, WriteCompletedUpdate(i+1, total, path))
		}
		result.Files = append(result.Files, res)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	SendProgress(prog, CompletedUpdate(
		fmt.Sprintf("Exported %d students in %d/%d formats", len(students), result.Successful, total),
		result,
	))
	return result, nil
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return shared.FileError("failed to write manifest", err)
	}
	return nil
}

func extension(f formatter.Format) string {
	switch f {
	case formatter.FormatJSON:
		return ".json"
	case formatter.FormatMarkdown:
		return ".md"
	default:
		return ".csv"
	}
}
