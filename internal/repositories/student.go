package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roster/internal/models"
)

// StudentRepository persists [models.Student] rows in the students table.
type StudentRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewStudentRepository creates a StudentRepository with the given database connection.
// A nil logger discards repository logs.
func NewStudentRepository(db *sql.DB, logger *log.Logger) *StudentRepository {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &StudentRepository{db: db, logger: logger}
}

// Add inserts a student. A duplicate ID yields [ErrConflict].
func (r *StudentRepository) Add(ctx context.Context, s *models.Student) error {
	query := `INSERT INTO students (id, name, course, grade) VALUES (?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.Course, s.Grade); err != nil {
		r.logger.Error("failed to add student", "id", s.ID, "error", err)
		if isConflict(err) {
			return fmt.Errorf("failed to insert student %s: %w", s.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert student: %w", err)
	}

	r.logger.Debug("student added", "id", s.ID)
	return nil
}

// Update overwrites name, course, and grade for the student with s.ID.
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	query := `UPDATE students SET name = ?, course = ?, grade = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, s.Name, s.Course, s.Grade, s.ID)
	if err != nil {
		r.logger.Error("failed to update student", "id", s.ID, "error", err)
		return fmt.Errorf("failed to update student: %w", err)
	}

	if err := checkAffected(result); err != nil {
		r.logger.Warn("update matched no student", "id", s.ID)
		return err
	}
	return nil
}

// Delete removes the student with the given ID.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("failed to delete student", "id", id, "error", err)
		return fmt.Errorf("failed to delete student: %w", err)
	}

	if err := checkAffected(result); err != nil {
		r.logger.Warn("delete matched no student", "id", id)
		return err
	}
	return nil
}

// Get retrieves a student by ID.
func (r *StudentRepository) Get(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT id, name, course, grade FROM students WHERE id = ?`

	var s models.Student
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.Course, &s.Grade)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		r.logger.Error("failed to get student", "id", id, "error", err)
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}
	return &s, nil
}

// Exists reports whether a student with the given ID is stored.
func (r *StudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM students WHERE id = ?`, id).Scan(&n)
	if err != nil {
		r.logger.Error("failed to check student", "id", id, "error", err)
		return false, fmt.Errorf("failed to check student existence: %w", err)
	}
	return n > 0, nil
}

// List retrieves students ordered by ID.
//
// Supported criteria: "course" (exact match) and "name" (case-insensitive substring).
func (r *StudentRepository) List(ctx context.Context, criteria map[string]any) ([]models.Student, error) {
	query := `SELECT id, name, course, grade FROM students WHERE 1 = 1`
	args := []any{}

	if course, ok := criteria["course"].(string); ok && course != "" {
		query += " AND course = ?"
		args = append(args, course)
	}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND LOWER(name) LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(strings.ToLower(name))+"%")
	}

	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list students", "error", err)
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		var s models.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Course, &s.Grade); err != nil {
			r.logger.Error("failed to scan student", "error", err)
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return students, nil
}

// IDs returns the set of stored student IDs.
func (r *StudentRepository) IDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM students`)
	if err != nil {
		r.logger.Error("failed to list student ids", "error", err)
		return nil, fmt.Errorf("failed to query student ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan student id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
