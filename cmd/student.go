package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/urfave/cli/v3"
)

func studentFromFlags(cmd *cli.Command) (*models.Student, error) {
	return models.ParseStudent(cmd.String("id"), cmd.String("name"), cmd.String("course"), cmd.String("grade"))
}

// idArg reads the positional student id.
func idArg(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: student id", shared.ErrMissingArgument)
	}
	return id, nil
}

// StudentAdd validates the flags and inserts a new student.
func (r *Runner) StudentAdd(ctx context.Context, cmd *cli.Command) error {
	st, err := studentFromFlags(cmd)
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}
	if err := svc.AddStudent(ctx, st); err != nil {
		return err
	}

	r.logger.Info("student added", "id", st.ID)
	return r.writePlain("✓ Added %s\n", st)
}

// StudentUpdate overwrites the name, course and grade of an existing student.
func (r *Runner) StudentUpdate(ctx context.Context, cmd *cli.Command) error {
	st, err := studentFromFlags(cmd)
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}
	if err := svc.UpdateStudent(ctx, st); err != nil {
		return err
	}

	r.logger.Info("student updated", "id", st.ID)
	return r.writePlain("✓ Updated %s\n", st)
}

// StudentDelete removes a student by ID.
func (r *Runner) StudentDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}
	if err := svc.DeleteStudent(ctx, id); err != nil {
		return err
	}

	r.logger.Info("student deleted", "id", id)
	return r.writePlain("✓ Deleted %s\n", id)
}

// StudentGet prints one student.
func (r *Runner) StudentGet(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd)
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}
	st, err := svc.GetStudentByID(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(st, true)
	}
	return r.writePlain("%s\n", st)
}

// StudentList prints the roster, filtered by --course and --name.
func (r *Runner) StudentList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	students := svc.SearchStudents(ctx, map[string]any{
		"course": cmd.String("course"),
		"name":   cmd.String("name"),
	})

	if cmd.Bool("json") {
		return r.writeJSON(students, true)
	}
	r.writeStudents(students)
	return nil
}

func (r *Runner) writeStudents(students []models.Student) {
	if len(students) == 0 {
		r.writePlain("No students found.\n")
		return
	}

	r.writePlain("%-10s  %-30s  %-30s  %6s\n", "ID", "NAME", "COURSE", "GRADE")
	for _, st := range students {
		r.writePlain("%-10s  %-30s  %-30s  %6.2f\n", st.ID, st.Name, st.Course, st.Grade)
	}
	r.writePlainln("%d student(s)", len(students))
}
