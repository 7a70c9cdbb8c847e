package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/roster/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for the roster.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to the daily file only so they do not interfere with TUI rendering.
	r.config.Logging.Console = false

	svc, err := r.service()
	if err != nil {
		return err
	}

	if err := ui.Run(ctx, svc); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
