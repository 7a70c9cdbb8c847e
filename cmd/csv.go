package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CSVExport writes every student to a file, or to every format in a directory with --all.
func (r *Runner) CSVExport(ctx context.Context, cmd *cli.Command) error {
	var format formatter.Format
	if raw := cmd.String("format"); raw != "" {
		f, err := formatter.ParseFormat(raw)
		if err != nil {
			return err
		}
		format = f
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	if dir := cmd.String("all"); dir != "" {
		var formats []formatter.Format
		if format != "" {
			formats = []formatter.Format{format}
		}

		result, err := svc.ExportAll(ctx, dir, formats, nil)
		if err != nil {
			return err
		}

		r.writePlainHeader("Export Complete")
		for _, f := range result.Files {
			if f.Success {
				r.writePlain("✓ %-8s %s\n", f.Format, f.Path)
			} else {
				r.writePlain("✗ %-8s %s: %s\n", f.Format, f.Path, f.Error)
			}
		}
		r.writePlainln("%d student(s), %d file(s) written, %d failed", result.TotalStudents, result.Successful, result.Failed)
		if result.Failed > 0 {
			return shared.FileError(fmt.Sprintf("%d of %d exports failed", result.Failed, len(result.Files)), nil)
		}
		return nil
	}

	path := strings.TrimSpace(cmd.StringArg("path"))
	if path == "" {
		return fmt.Errorf("%w: export path (or --all <dir>)", shared.ErrMissingArgument)
	}

	result, err := svc.Export(ctx, path, format)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d student(s) to %s (%s)\n", result.Count, result.Path, result.Format)
}

// CSVImport merges a CSV file into the roster. With --verbose each record's outcome is printed as it happens.
func (r *Runner) CSVImport(ctx context.Context, cmd *cli.Command) error {
	path := strings.TrimSpace(cmd.StringArg("path"))
	if path == "" {
		return fmt.Errorf("%w: import path", shared.ErrMissingArgument)
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	var progress chan tasks.ProgressUpdate
	var wg sync.WaitGroup
	done := make(chan struct{})
	if cmd.Bool("verbose") {
		progress = make(chan tasks.ProgressUpdate, 64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.printProgress(progress, done)
		}()
	}

	// progress stays open: the worker may still send after a cancelled wait.
	result, err := svc.Import(ctx, path, progress)
	close(done)
	wg.Wait()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainHeader("Import Complete")
	r.writePlain("Source:    %s\n", result.Path)
	r.writePlain("Imported:  %d\n", result.Imported)
	r.writePlain("Skipped:   %d (already present)\n", result.Skipped)
	r.writePlain("Rejected:  %d\n", result.Invalid+result.Malformed)
	for _, line := range result.RowErrors {
		r.writePlain("  • %s\n", line)
	}
	for _, f := range result.Failures {
		r.writePlain("  • %s: %s\n", f.ID, f.Reason)
	}
	return nil
}

// printProgress prints updates until done is closed, then flushes whatever is buffered.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done <-chan struct{}) {
	for {
		select {
		case update := <-progress:
			r.writePlain("%-14s %s\n", update.Phase, update.Message)
		case <-done:
			for {
				select {
				case update := <-progress:
					r.writePlain("%-14s %s\n", update.Phase, update.Message)
				default:
					return
				}
			}
		}
	}
}
