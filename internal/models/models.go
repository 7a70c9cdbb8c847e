// package models defines the data model for the student roster
package models

import (
	"fmt"
	"time"
)

// Student is a single student record.
type Student struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Course string  `json:"course"`
	Grade  float64 `json:"grade"`
}

func (s Student) String() string {
	return fmt.Sprintf("%s %s (%s) %.2f", s.ID, s.Name, s.Course, s.Grade)
}

// JobKind names the bulk file operation a [Job] tracks.
type JobKind string

const (
	JobImport JobKind = "import"
	JobExport JobKind = "export"
)

// JobStatus is the lifecycle state of a [Job].
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job records one import or export run.
type Job struct {
	ID           string     `json:"id"`
	Sequence     int        `json:"sequence"`
	Kind         JobKind    `json:"kind"`
	Path         string     `json:"path"`
	Format       string     `json:"format"`
	Status       JobStatus  `json:"status"`
	Total        int        `json:"total"`
	Succeeded    int        `json:"succeeded"`
	Skipped      int        `json:"skipped"`
	Failed       int        `json:"failed"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a running job of the given kind.
func NewJob(kind JobKind, path, format string) *Job {
	return &Job{
		Kind:      kind,
		Path:      path,
		Format:    format,
		Status:    JobRunning,
		StartedAt: time.Now(),
	}
}

// Finish marks the job completed, or failed when err is non-nil.
func (j *Job) Finish(err error) {
	now := time.Now()
	j.CompletedAt = &now
	if err != nil {
		j.Status = JobFailed
		j.ErrorMessage = err.Error()
		return
	}
	j.Status = JobCompleted
}

// Validate checks the fields required to persist a job.
func (j *Job) Validate() error {
	switch j.Kind {
	case JobImport, JobExport:
	default:
		return fmt.Errorf("invalid job kind: %q", j.Kind)
	}
	switch j.Status {
	case JobRunning, JobCompleted, JobFailed:
	default:
		return fmt.Errorf("invalid job status: %q", j.Status)
	}
	if j.Path == "" {
		return fmt.Errorf("job path is required")
	}
	return nil
}
