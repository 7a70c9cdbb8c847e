package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/urfave/cli/v3"
)

// Stats prints grade statistics and enrollment per course.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Roster Statistics")
	r.writePlain("Students: %d\n", stats.Count)
	if stats.Count == 0 {
		return nil
	}
	r.writePlain("Average:  %.2f\n", stats.Average)
	r.writePlain("Lowest:   %.2f\n", stats.Min)
	r.writePlain("Highest:  %.2f\n", stats.Max)
	r.writePlainln("Courses:")
	for _, c := range stats.ByCourse {
		r.writePlain("  • %-30s %d\n", c.Course, c.Count)
	}
	return nil
}

// History prints the most recent import and export runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if limit < 0 {
		return fmt.Errorf("%w: --limit must not be negative", shared.ErrInvalidFlag)
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	jobs, err := svc.Jobs(ctx, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}

	if len(jobs) == 0 {
		r.writePlain("No import or export runs recorded.\n")
		return nil
	}

	r.writePlain("%-5s  %-6s  %-9s  %-19s  %5s  %5s  %5s  %s\n", "#", "KIND", "STATUS", "STARTED", "OK", "SKIP", "FAIL", "PATH")
	for _, job := range jobs {
		r.writePlain("%-5d  %-6s  %-9s  %-19s  %5d  %5d  %5d  %s\n",
			job.Sequence, job.Kind, job.Status, job.StartedAt.Format("2006-01-02 15:04:05"),
			job.Succeeded, job.Skipped, job.Failed, job.Path)
		if job.Status == models.JobFailed && job.ErrorMessage != "" {
			r.writePlain("       └ %s\n", job.ErrorMessage)
		}
	}
	return nil
}
