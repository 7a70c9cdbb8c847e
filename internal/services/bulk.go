package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/tasks"
)

// Export writes every student to path in the given format on a pool worker and waits for it.
func (s *StudentService) Export(ctx context.Context, path string, format formatter.Format) (*ExportResult, error) {
	return s.ExportAsync(ctx, path, format, nil, nil).Wait(ctx)
}

// ExportAsync queues an export and returns immediately.
// When cb is non-nil it receives the outcome exactly once, through d (or inline when d is nil).
func (s *StudentService) ExportAsync(
	ctx context.Context,
	path string,
	format formatter.Format,
	d tasks.Dispatcher,
	cb func(*ExportResult, error),
) *tasks.Future[*ExportResult] {
	f := tasks.Submit(s.pool, ctx, func(ctx context.Context) (*ExportResult, error) {
		return s.export(ctx, path, format)
	})
	then(f, d, cb)
	return f
}

func (s *StudentService) export(ctx context.Context, path string, format formatter.Format) (result *ExportResult, err error) {
	if strings.TrimSpace(path) == "" {
		return nil, shared.ValidationError("Export path cannot be empty")
	}
	if format == "" {
		format = formatter.FormatFromPath(path)
	}

	job := s.startJob(ctx, models.JobExport, path, string(format))
	defer func() { s.finishJob(ctx, job, err) }()

	students, err := s.store.List(ctx, nil)
	if err != nil {
		return nil, shared.DatabaseError("Failed to load students for export", err)
	}
	if job != nil {
		job.Total = len(students)
	}

	if err := formatter.WriteFile(students, path, format); err != nil {
		s.logger.Error("Export failed", "path", path, "error", err)
		return nil, err
	}

	if job != nil {
		job.Succeeded = len(students)
	}
	s.logger.Info("Exported students", "count", len(students), "path", path, "format", format)

	return &ExportResult{Path: path, Format: string(format), Count: len(students), JobID: jobID(job)}, nil
}

// ExportAll writes every student in several formats into dir, one pool task per format.
func (s *StudentService) ExportAll(
	ctx context.Context,
	dir string,
	formats []formatter.Format,
	progress chan<- tasks.ProgressUpdate,
) (*tasks.BulkExportResult, error) {
	students, err := s.store.List(ctx, nil)
	if err != nil {
		return nil, shared.DatabaseError("Failed to load students for export", err)
	}

	result, err := tasks.BulkExport(ctx, s.pool, progress, students, tasks.BulkExportOpts{
		Formats:   formats,
		OutputDir: dir,
	})
	if err != nil {
		return result, err
	}

	for _, f := range result.Files {
		var ferr error
		if !f.Success {
			ferr = errors.New(f.Error)
		}
		job := s.startJob(ctx, models.JobExport, f.Path, string(f.Format))
		if job != nil && ferr == nil {
			job.Total, job.Succeeded = len(students), len(students)
		}
		s.finishJob(ctx, job, ferr)
	}

	return result, nil
}

// Import reads the CSV file at path on a pool worker and merges it into the store.
//
// A missing file imports nothing and is not an error. Progress updates are sent without blocking.
func (s *StudentService) Import(ctx context.Context, path string, progress chan<- tasks.ProgressUpdate) (*ImportResult, error) {
	return s.importAsync(ctx, path, progress, nil, nil).Wait(ctx)
}

// ImportAsync queues an import and returns immediately.
// When cb is non-nil it receives the outcome exactly once, through d (or inline when d is nil).
func (s *StudentService) ImportAsync(
	ctx context.Context,
	path string,
	d tasks.Dispatcher,
	cb func(*ImportResult, error),
) *tasks.Future[*ImportResult] {
	return s.importAsync(ctx, path, nil, d, cb)
}

func (s *StudentService) importAsync(
	ctx context.Context,
	path string,
	progress chan<- tasks.ProgressUpdate,
	d tasks.Dispatcher,
	cb func(*ImportResult, error),
) *tasks.Future[*ImportResult] {
	f := tasks.Submit(s.pool, ctx, func(ctx context.Context) (*ImportResult, error) {
		if strings.TrimSpace(path) == "" {
			return nil, shared.ValidationError("Import path cannot be empty")
		}

		tasks.SendProgress(progress, tasks.ReadingFileUpdate(path))
		records, rowErrs, err := formatter.ReadCSV(path)
		return s.merge(ctx, path, records, rowErrs, err, progress)
	})
	then(f, d, cb)
	return f
}

// ImportReader parses CSV from r and merges it into the store on the calling goroutine.
// source names the input in logs and job history.
func (s *StudentService) ImportReader(
	ctx context.Context,
	source string,
	r io.Reader,
	progress chan<- tasks.ProgressUpdate,
) (*ImportResult, error) {
	tasks.SendProgress(progress, tasks.ReadingFileUpdate(source))
	records, rowErrs, err := formatter.ParseCSV(r)
	return s.merge(ctx, source, records, rowErrs, err, progress)
}

// merge adds every parsed record whose ID is not yet stored.
func (s *StudentService) merge(
	ctx context.Context,
	source string,
	records []models.Student,
	rowErrs []formatter.RowError,
	readErr error,
	progress chan<- tasks.ProgressUpdate,
) (result *ImportResult, err error) {
	job := s.startJob(ctx, models.JobImport, source, string(formatter.FormatCSV))
	defer func() { s.finishJob(ctx, job, err) }()

	if readErr != nil {
		s.logger.Error("Import failed", "source", source, "error", readErr)
		return nil, readErr
	}

	result = &ImportResult{
		Path:      source,
		Total:     len(records) + len(rowErrs),
		Malformed: len(rowErrs),
		JobID:     jobID(job),
	}
	for _, re := range rowErrs {
		s.logger.Warn("Skipping malformed row", "source", source, "line", re.Line, "error", re.Err)
		result.RowErrors = append(result.RowErrors, re.Error())
	}
	if len(rowErrs) > 0 {
		tasks.SendProgress(progress, tasks.RowsSkippedUpdate(len(rowErrs)))
	}

	tasks.SendProgress(progress, tasks.LoadingRecordsUpdate())
	existing, err := s.store.IDs(ctx)
	if err != nil {
		return nil, shared.DatabaseError("Failed to load existing student IDs", err)
	}

	for i := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		st := &records[i]
		id := strings.TrimSpace(st.ID)
		step := i + 1

		if _, ok := existing[id]; ok {
			result.Skipped++
			tasks.SendProgress(progress, tasks.MergeRecordUpdate(step, len(records), id, "skipped"))
			continue
		}

		if err := s.AddStudent(ctx, st); err != nil {
			if errors.Is(err, shared.ErrDuplicateID) {
				result.Skipped++
				existing[id] = struct{}{}
				tasks.SendProgress(progress, tasks.MergeRecordUpdate(step, len(records), id, "skipped"))
				continue
			}
			result.Invalid++
			result.Failures = append(result.Failures, RecordFailure{ID: id, Err: err, Reason: err.Error()})
			s.logger.Warn("Skipping invalid record", "source", source, "id", id, "error", err)
			tasks.SendProgress(progress, tasks.MergeRecordUpdate(step, len(records), id, "rejected"))
			continue
		}

		existing[st.ID] = struct{}{}
		result.Imported++
		tasks.SendProgress(progress, tasks.MergeRecordUpdate(step, len(records), st.ID, "added"))
	}

	if job != nil {
		job.Total = result.Total
		job.Succeeded = result.Imported
		job.Skipped = result.Skipped
		job.Failed = result.Invalid + result.Malformed
	}

	s.logger.Info("Imported students",
		"source", source,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"invalid", result.Invalid,
		"malformed", result.Malformed,
	)
	tasks.SendProgress(progress, tasks.CompletedUpdate(
		fmt.Sprintf("Imported %d, skipped %d, rejected %d", result.Imported, result.Skipped, result.Invalid+result.Malformed),
		result,
	))

	return result, nil
}

// startJob records a running job. Recording failures are logged and never fail the operation.
func (s *StudentService) startJob(ctx context.Context, kind models.JobKind, path, format string) *models.Job {
	if s.jobs == nil {
		return nil
	}

	job := models.NewJob(kind, path, format)
	if err := s.jobs.Create(ctx, job); err != nil {
		s.logger.Warn("Failed to record job", "kind", kind, "error", err)
		return nil
	}
	return job
}

func (s *StudentService) finishJob(ctx context.Context, job *models.Job, err error) {
	if job == nil {
		return
	}

	job.Finish(err)
	if uerr := s.jobs.Update(context.WithoutCancel(ctx), job); uerr != nil {
		s.logger.Warn("Failed to update job", "id", job.ID, "error", uerr)
	}
}

func jobID(job *models.Job) string {
	if job == nil {
		return ""
	}
	return job.ID
}

func then[T any](f *tasks.Future[T], d tasks.Dispatcher, cb func(T, error)) {
	if cb == nil {
		return
	}
	if d == nil {
		d = tasks.Inline{}
	}
	f.Then(d, cb)
}
