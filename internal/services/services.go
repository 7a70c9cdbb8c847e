package services

import (
	"context"

	"github.com/desertthunder/roster/internal/models"
)

// Store persists student records. [repositories.StudentRepository] is the production implementation.
//
// Implementations return [repositories.ErrNoRows] for missing rows and
// [repositories.ErrConflict] for duplicate IDs.
type Store interface {
	Add(ctx context.Context, s *models.Student) error
	Update(ctx context.Context, s *models.Student) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Student, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, criteria map[string]any) ([]models.Student, error)
	IDs(ctx context.Context) (map[string]struct{}, error)
}

// JobRecorder stores the history of bulk runs.
type JobRecorder interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	List(ctx context.Context, criteria map[string]any) ([]*models.Job, error)
}

// RecordFailure is a parsed record that the import could not add.
type RecordFailure struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
	// Reason is Err's message, kept for JSON encoding.
	Reason string `json:"reason"`
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Path      string          `json:"path"`
	Total     int             `json:"total"`
	Imported  int             `json:"imported"`
	Skipped   int             `json:"skipped"`
	Invalid   int             `json:"invalid"`
	Malformed int             `json:"malformed"`
	Failures  []RecordFailure `json:"failures,omitempty"`
	RowErrors []string        `json:"row_errors,omitempty"`
	JobID     string          `json:"job_id,omitempty"`
}

// ExportResult summarizes one export run.
type ExportResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Count  int    `json:"count"`
	JobID  string `json:"job_id,omitempty"`
}

// CourseCount is the number of students enrolled in a course.
type CourseCount struct {
	Course string `json:"course"`
	Count  int    `json:"count"`
}

// Stats describes the current roster.
type Stats struct {
	Count    int           `json:"count"`
	Average  float64       `json:"average"`
	Min      float64       `json:"min"`
	Max      float64       `json:"max"`
	ByCourse []CourseCount `json:"by_course"`
}
