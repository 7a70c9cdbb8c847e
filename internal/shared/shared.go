// package shared defines shared helpers: configuration, database setup, logging, and error kinds.
package shared

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// LogTimeFormat is the timestamp layout used in log files.
const LogTimeFormat = "2006-01-02 15:04:05.000"

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that formats entries as
// "<timestamp> [<LEVEL>] <source>: <message>" for the daily log file.
//
// The source is set per component with [log.Logger.WithPrefix].
func NewFileLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      LogTimeFormat,
		Level:           level,
	})
	l.SetStyles(FileStyles())
	return l
}

// FileStyles returns [log.Styles] rendering levels as bracketed names (DEBUG, INFO, WARNING, ERROR, SEVERE).
func FileStyles() *log.Styles {
	st := log.DefaultStyles()
	st.Levels = map[log.Level]lipgloss.Style{
		log.DebugLevel: lipgloss.NewStyle().SetString("[DEBUG]"),
		log.InfoLevel:  lipgloss.NewStyle().SetString("[INFO]"),
		log.WarnLevel:  lipgloss.NewStyle().SetString("[WARNING]"),
		log.ErrorLevel: lipgloss.NewStyle().SetString("[ERROR]"),
		log.FatalLevel: lipgloss.NewStyle().SetString("[SEVERE]"),
	}
	return st
}

// ParseLevel converts a config level name to a [log.Level], defaulting to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return log.WarnLevel
	case "severe":
		return log.FatalLevel
	}
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}
