// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func studentFlags(idRequired bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Usage:    "Student ID (3-10 letters or digits)",
			Required: idRequired,
		},
		&cli.StringFlag{
			Name:     "name",
			Aliases:  []string{"n"},
			Usage:    "Student name",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "course",
			Usage:    "Course name",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "grade",
			Aliases:  []string{"g"},
			Usage:    "Grade between 0 and 100",
			Required: true,
		},
	}
}

// setupCommand handles database setup and migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "List applied migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// studentCommand handles single-record operations.
func studentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "student",
		Aliases: []string{"st"},
		Usage:   "Add, update, delete and look up students",
		Commands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "Add a new student",
				Flags:  studentFlags(true),
				Action: r.StudentAdd,
			},
			{
				Name:   "update",
				Usage:  "Update an existing student",
				Flags:  studentFlags(true),
				Action: r.StudentUpdate,
			},
			{
				Name:  "delete",
				Usage: "Delete a student",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.StudentDelete,
			},
			{
				Name:  "get",
				Usage: "Show one student",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.StudentGet,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List students, optionally filtered",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "course",
						Usage: "Only students in this course (exact match)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Only students whose name contains this text",
					},
					jsonFlag(),
				},
				Action: r.StudentList,
			},
		},
	}
}

// csvCommand handles bulk file operations.
func csvCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "csv",
		Usage: "Import and export student files",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Export all students to a file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, json or markdown (default: inferred from the file extension)",
					},
					&cli.StringFlag{
						Name:  "all",
						Usage: "Write every format into this directory instead of a single file",
					},
				},
				Action: r.CSVExport,
			},
			{
				Name:  "import",
				Usage: "Import students from a CSV file, skipping IDs that already exist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Print per-record progress",
					},
					jsonFlag(),
				},
				Action: r.CSVImport,
			},
		},
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show grade statistics and course enrollment",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Stats,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent import and export runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show (0 for all)",
				Value: 20,
			},
			jsonFlag(),
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command for interactive roster management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for roster management",
		Action:  r.TUI,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the roster over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
		},
		Action: r.Serve,
	}
}
