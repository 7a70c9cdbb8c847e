package services

import (
	"cmp"
	"context"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/repositories"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/tasks"
)

// StudentService validates and persists student records and runs bulk file operations.
type StudentService struct {
	store  Store
	jobs   JobRecorder
	pool   *tasks.Pool
	logger *log.Logger
}

// Option configures a [StudentService].
type Option func(*StudentService)

// WithJobRecorder records every import and export run.
func WithJobRecorder(j JobRecorder) Option {
	return func(s *StudentService) { s.jobs = j }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *StudentService) { s.logger = l }
}

// WithPool runs bulk operations on p instead of a private pool.
func WithPool(p *tasks.Pool) Option {
	return func(s *StudentService) { s.pool = p }
}

// NewStudentService creates a service over store. The service owns its pool and closes it in [StudentService.Close].
func NewStudentService(store Store, opts ...Option) *StudentService {
	s := &StudentService{store: store}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.pool == nil {
		s.pool = tasks.NewPool(tasks.DefaultPoolSize, s.logger)
	}

	return s
}

// Close stops accepting async work and waits for in-flight tasks.
func (s *StudentService) Close() {
	s.pool.Close()
}

// AddStudent validates st and inserts it.
func (s *StudentService) AddStudent(ctx context.Context, st *models.Student) error {
	if err := st.Validate(); err != nil {
		return err
	}

	exists, err := s.store.Exists(ctx, st.ID)
	if err != nil {
		return shared.DatabaseError("Failed to check student ID", err)
	}
	if exists {
		return shared.DuplicateIDError(st.ID)
	}

	if err := s.store.Add(ctx, st); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return shared.DuplicateIDError(st.ID)
		}
		return shared.DatabaseError("Failed to add student", err)
	}

	s.logger.Info("Student added successfully", "id", st.ID)
	return nil
}

// UpdateStudent validates st and overwrites the stored record with the same ID.
func (s *StudentService) UpdateStudent(ctx context.Context, st *models.Student) error {
	if err := st.Validate(); err != nil {
		return err
	}

	exists, err := s.store.Exists(ctx, st.ID)
	if err != nil {
		return shared.DatabaseError("Failed to check student ID", err)
	}
	if !exists {
		return shared.NotFoundError(st.ID)
	}

	if err := s.store.Update(ctx, st); err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return shared.NotFoundError(st.ID)
		}
		return shared.DatabaseError("Failed to update student", err)
	}

	s.logger.Info("Student updated successfully", "id", st.ID)
	return nil
}

// DeleteStudent removes the student with the given ID.
func (s *StudentService) DeleteStudent(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return shared.ValidationError("Student ID cannot be empty")
	}

	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return shared.DatabaseError("Failed to check student ID", err)
	}
	if !exists {
		return shared.NotFoundError(id)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return shared.NotFoundError(id)
		}
		return shared.DatabaseError("Failed to delete student", err)
	}

	s.logger.Info("Student deleted successfully", "id", id)
	return nil
}

// GetStudentByID returns the student with the given ID.
func (s *StudentService) GetStudentByID(ctx context.Context, id string) (*models.Student, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, shared.ValidationError("Student ID cannot be empty")
	}

	st, err := s.store.Get(ctx, id)
	if errors.Is(err, repositories.ErrNoRows) {
		return nil, shared.NotFoundError(id)
	}
	if err != nil {
		return nil, shared.DatabaseError("Failed to get student", err)
	}
	return st, nil
}

// ListStudents returns every student ordered by ID. Store failures are logged and yield an empty slice.
func (s *StudentService) ListStudents(ctx context.Context) []models.Student {
	return s.SearchStudents(ctx, nil)
}

// SearchStudents returns the students matching criteria ("course", "name"). Store failures yield an empty slice.
func (s *StudentService) SearchStudents(ctx context.Context, criteria map[string]any) []models.Student {
	students, err := s.store.List(ctx, criteria)
	if err != nil {
		s.logger.Error("Failed to list students", "error", err)
		return []models.Student{}
	}
	return students
}

// Stats summarizes grades and course enrollment.
func (s *StudentService) Stats(ctx context.Context) (*Stats, error) {
	students, err := s.store.List(ctx, nil)
	if err != nil {
		return nil, shared.DatabaseError("Failed to load students", err)
	}
	return computeStats(students), nil
}

// Jobs returns the most recent bulk runs, newest first. A limit of 0 returns all of them.
func (s *StudentService) Jobs(ctx context.Context, limit int) ([]*models.Job, error) {
	if s.jobs == nil {
		return []*models.Job{}, nil
	}

	jobs, err := s.jobs.List(ctx, map[string]any{"limit": limit})
	if err != nil {
		return nil, shared.DatabaseError("Failed to load job history", err)
	}
	return jobs, nil
}

func computeStats(students []models.Student) *Stats {
	stats := &Stats{Count: len(students), ByCourse: []CourseCount{}}
	if len(students) == 0 {
		return stats
	}

	stats.Min, stats.Max = students[0].Grade, students[0].Grade
	counts := make(map[string]int)
	var sum float64
	for _, st := range students {
		sum += st.Grade
		stats.Min = min(stats.Min, st.Grade)
		stats.Max = max(stats.Max, st.Grade)
		counts[st.Course]++
	}
	stats.Average = sum / float64(len(students))

	for course, n := range counts {
		stats.ByCourse = append(stats.ByCourse, CourseCount{Course: course, Count: n})
	}
	slices.SortFunc(stats.ByCourse, func(a, b CourseCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Course, b.Course)
	})

	return stats
}
