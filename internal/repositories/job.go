package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

// JobRepository records import and export runs in the jobs table.
type JobRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewJobRepository creates a JobRepository with the given database connection.
func NewJobRepository(db *sql.DB, logger *log.Logger) *JobRepository {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &JobRepository{db: db, logger: logger}
}

// Create inserts a new job with a generated ID and sequence.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	job.ID = shared.GenerateID()
	job.Sequence = sequence

	query := `
		INSERT INTO jobs (
			id, sequence, kind, path, format, status,
			total, succeeded, skipped, failed,
			error_message, started_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		job.Sequence,
		job.Kind,
		job.Path,
		job.Format,
		job.Status,
		job.Total,
		job.Succeeded,
		job.Skipped,
		job.Failed,
		nullString(job.ErrorMessage),
		job.StartedAt,
		job.CompletedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert job", "kind", job.Kind, "error", err)
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// Get retrieves a job by ID.
func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT
			id, sequence, kind, path, format, status,
			total, succeeded, skipped, failed,
			error_message, started_at, completed_at
		FROM jobs
		WHERE id = ?
	`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		r.logger.Error("failed to get job", "id", id, "error", err)
		return nil, err
	}
	return job, nil
}

// Update stores the job's status, counters, and completion time.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE jobs
		SET status = ?, total = ?, succeeded = ?, skipped = ?, failed = ?,
			error_message = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		job.Status,
		job.Total,
		job.Succeeded,
		job.Skipped,
		job.Failed,
		nullString(job.ErrorMessage),
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		r.logger.Error("failed to update job", "id", job.ID, "error", err)
		return fmt.Errorf("failed to update job: %w", err)
	}

	return checkAffected(result)
}

// List retrieves jobs newest first.
//
// Supported criteria: "kind", "status" (exact match) and "limit" (int, > 0).
func (r *JobRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Job, error) {
	query := `
		SELECT
			id, sequence, kind, path, format, status,
			total, succeeded, skipped, failed,
			error_message, started_at, completed_at
		FROM jobs
		WHERE 1 = 1
	`

	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list jobs", "error", err)
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanJob scans a single row from either [sql.Row] or [sql.Rows] into a [models.Job]
func scanJob(row scanner) (*models.Job, error) {
	var (
		job          models.Job
		kind, status string
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&job.ID, &job.Sequence, &kind, &job.Path, &job.Format, &status,
		&job.Total, &job.Succeeded, &job.Skipped, &job.Failed,
		&errorMessage, &job.StartedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job.Kind = models.JobKind(kind)
	job.Status = models.JobStatus(status)
	if errorMessage.Valid {
		job.ErrorMessage = errorMessage.String
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
