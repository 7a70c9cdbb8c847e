package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roster/internal/repositories"
	"github.com/desertthunder/roster/internal/services"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, log sink, and student service are opened on first use so commands
// such as `setup database` can run before a database exists.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	logOutput  io.Writer

	db      *sql.DB
	ownsDB  bool
	sink    *shared.LogSink
	fileLog *log.Logger
	svc     *services.StudentService
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	// LogOutput receives mirrored log lines when logging.console is set. Defaults to stderr.
	LogOutput io.Writer
	// DB replaces the configured database. The runner does not close it.
	DB *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		logOutput:  opts.LogOutput,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, studentCommand, csvCommand, statsCommand, historyCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig replaces the runner config with the file at path when it exists.
func (r *Runner) loadConfig(path string) error {
	r.configPath = path
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	return nil
}

// SetLogger replaces the console logger, e.g. to keep logs off a TUI's screen.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// componentLogger returns the daily-file logger with source as its prefix.
func (r *Runner) componentLogger(source string) (*log.Logger, error) {
	if r.fileLog == nil {
		var w io.Writer = io.Discard
		if dir := r.config.Logging.Dir; dir != "" {
			sink, err := shared.NewLogSink(dir)
			if err != nil {
				return nil, shared.FileError("Failed to open log directory", err)
			}
			r.sink = sink
			w = sink
		}
		if r.config.Logging.Console {
			w = io.MultiWriter(w, r.logOutput)
		}
		r.fileLog = shared.NewFileLogger(w, shared.ParseLevel(r.config.Logging.Level))
	}
	return r.fileLog.WithPrefix(source), nil
}

// service opens the database and builds the student service on first use.
func (r *Runner) service() (*services.StudentService, error) {
	if r.svc != nil {
		return r.svc, nil
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, shared.DatabaseError("Failed to open database "+r.config.Database.Path, err)
		}
		r.db = db
		r.ownsDB = true
	}

	logger, err := r.componentLogger("StudentService")
	if err != nil {
		return nil, err
	}
	repoLogger, _ := r.componentLogger("StudentRepository")
	jobLogger, _ := r.componentLogger("JobRepository")
	poolLogger, _ := r.componentLogger("WorkerPool")

	r.svc = services.NewStudentService(
		repositories.NewStudentRepository(r.db, repoLogger),
		services.WithJobRecorder(repositories.NewJobRepository(r.db, jobLogger)),
		services.WithLogger(logger),
		services.WithPool(tasks.NewPool(r.config.Workers.Size, poolLogger)),
	)
	return r.svc, nil
}

// Close releases the service pool, the database, and the log sink, in that order.
func (r *Runner) Close() error {
	if r.svc != nil {
		r.svc.Close()
		r.svc = nil
	}

	var err error
	if r.db != nil && r.ownsDB {
		err = r.db.Close()
		r.db = nil
	}
	if r.sink != nil {
		if serr := r.sink.Close(); serr != nil && err == nil {
			err = serr
		}
		r.sink = nil
	}
	r.fileLog = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
