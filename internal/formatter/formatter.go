// package formatter converts student records to and from files (CSV, JSON, Markdown)
package formatter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/shared"
)

// CSVHeader is the first line of every exported CSV file.
const CSVHeader = "ID,Name,Course,Grade"

// Format names a supported export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat maps a user-supplied format name to a [Format]. The empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q (use csv, json, or markdown)", shared.ErrInvalidArgument, s)
	}
}

// FormatFromPath infers a [Format] from the file extension, falling back to CSV.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatCSV
	}
}

// ContentType returns the MIME type used when serving f over HTTP.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// RowError describes a CSV line that was skipped during import.
type RowError struct {
	Line int
	Raw  string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ExportToCSV renders students as CSV with the columns ID, Name, Course, Grade.
//
// Fields are written verbatim: a comma inside a name or course is not quoted and
// will split that row into too many fields on re-import.
func ExportToCSV(students []models.Student) []byte {
	var buf bytes.Buffer

	buf.WriteString(CSVHeader)
	buf.WriteByte('\n')
	for _, s := range students {
		fmt.Fprintf(&buf, "%s,%s,%s,%.2f\n", s.ID, s.Name, s.Course, s.Grade)
	}

	return buf.Bytes()
}

// WriteCSV writes students to path as CSV, replacing any existing file.
func WriteCSV(students []models.Student, path string) error {
	return WriteFile(students, path, FormatCSV)
}

// ParseCSV reads CSV records from r.
//
// The first line is treated as a header and skipped. Blank lines are ignored.
// Lines have no length limit. Trailing empty fields are dropped before the
// field count is checked, so "abc,Ann,Math,90,," is a valid row.
// Lines without exactly four fields or with an unparseable grade are reported
// as [RowError] values and skipped; they never abort the read.
func ParseCSV(r io.Reader) ([]models.Student, []RowError, error) {
	students := []models.Student{}
	var rowErrs []RowError

	reader := bufio.NewReader(r)
	line := 0
	for {
		text, readErr := reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return students, rowErrs, shared.FileError("failed to read CSV", readErr)
		}
		if readErr == io.EOF && text == "" {
			break
		}

		line++
		if line > 1 {
			if s, rowErr, ok := parseLine(line, text); rowErr != nil {
				rowErrs = append(rowErrs, *rowErr)
			} else if ok {
				students = append(students, s)
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	return students, rowErrs, nil
}

// parseLine decodes one data line. ok is false for blank lines.
func parseLine(line int, text string) (models.Student, *RowError, bool) {
	raw := strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(raw) == "" {
		return models.Student{}, nil, false
	}

	fields := strings.Split(raw, ",")
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	if len(fields) != 4 {
		return models.Student{}, &RowError{
			Line: line,
			Raw:  raw,
			Err:  fmt.Errorf("expected 4 fields, got %d", len(fields)),
		}, false
	}

	grade, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return models.Student{}, &RowError{
			Line: line,
			Raw:  raw,
			Err:  fmt.Errorf("invalid grade %q", fields[3]),
		}, false
	}

	return models.Student{
		ID:     fields[0],
		Name:   fields[1],
		Course: fields[2],
		Grade:  grade,
	}, nil, true
}

// ReadCSV reads student records from the CSV file at path.
//
// A missing file yields an empty slice and no error. Any other I/O failure is a File error.
func ReadCSV(path string) ([]models.Student, []RowError, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Student{}, nil, nil
	}
	if err != nil {
		return nil, nil, shared.FileError("failed to open "+path, err)
	}
	defer f.Close()

	return ParseCSV(f)
}

// ExportToJSON renders students as an indented JSON array.
func ExportToJSON(students []models.Student) ([]byte, error) {
	if students == nil {
		students = []models.Student{}
	}

	data, err := json.MarshalIndent(students, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal students: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToMarkdown renders students as a Markdown roster table.
func ExportToMarkdown(students []models.Student) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Student Roster\n\n")
	fmt.Fprintf(&buf, "**Students**: %d\n\n", len(students))

	if len(students) == 0 {
		buf.WriteString("_No students._\n")
		return buf.Bytes()
	}

	buf.WriteString("| ID | Name | Course | Grade |\n")
	buf.WriteString("|----|------|--------|------:|\n")
	for _, s := range students {
		fmt.Fprintf(&buf, "| %s | %s | %s | %.2f |\n",
			escapeCell(s.ID), escapeCell(s.Name), escapeCell(s.Course), s.Grade)
	}

	return buf.Bytes()
}

// Export renders students in the given format.
func Export(students []models.Student, format Format) ([]byte, error) {
	switch format {
	case FormatCSV, "":
		return ExportToCSV(students), nil
	case FormatJSON:
		return ExportToJSON(students)
	case FormatMarkdown:
		return ExportToMarkdown(students), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteFile renders students in the given format and writes them to path.
// Write failures are File errors.
func WriteFile(students []models.Student, path string, format Format) error {
	data, err := Export(students, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return shared.FileError("failed to write "+path, err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
