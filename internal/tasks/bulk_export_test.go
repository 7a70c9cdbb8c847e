package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/shared"
	th "github.com/desertthunder/roster/internal/testing"
)

func TestBulkExport(t *testing.T) {
	tests := []struct {
		name      string
		formats   []formatter.Format
		wantFiles []string
	}{
		{
			name:      "default formats",
			formats:   nil,
			wantFiles: []string{"students.csv", "students.json", "students.md"},
		},
		{
			name:      "csv only",
			formats:   []formatter.Format{formatter.FormatCSV},
			wantFiles: []string{"students.csv"},
		},
		{
			name:      "json and markdown",
			formats:   []formatter.Format{formatter.FormatJSON, formatter.FormatMarkdown},
			wantFiles: []string{"students.json", "students.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			pool := NewPool(2, nil)
			defer pool.Close()

			progress := make(chan ProgressUpdate, 100)
			result, err := BulkExport(context.Background(), pool, progress, th.SampleStudents(), BulkExportOpts{
				Formats:   tt.formats,
				OutputDir: dir,
			})
			close(progress)
			require.NoError(t, err)

			assert.Equal(t, 3, result.TotalStudents)
			assert.Equal(t, len(tt.wantFiles), result.Successful)
			assert.Zero(t, result.Failed)
			for _, name := range tt.wantFiles {
				th.AssertFileExists(t, filepath.Join(dir, name))
			}

			var manifest BulkExportResult
			require.NoError(t, json.Unmarshal([]byte(th.MustReadFile(t, result.ManifestPath)), &manifest))
			assert.Len(t, manifest.Files, len(tt.wantFiles))

			var last ProgressUpdate
			for u := range progress {
				last = u
			}
			assert.Equal(t, Complete, last.Phase)
		})
	}
}

func TestBulkExport_CSVContent(t *testing.T) {
	dir := t.TempDir()
	pool := NewPool(1, nil)
	defer pool.Close()

	_, err := BulkExport(context.Background(), pool, nil, th.SampleStudents(), BulkExportOpts{
		Formats:   []formatter.Format{formatter.FormatCSV},
		OutputDir: dir,
		BaseName:  "roster",
	})
	require.NoError(t, err)

	students, rowErrs, err := formatter.ReadCSV(filepath.Join(dir, "roster.csv"))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	assert.Equal(t, th.SampleStudents(), students)
}

func TestBulkExport_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "students.json"), 0755))

	pool := NewPool(2, nil)
	defer pool.Close()

	result, err := BulkExport(context.Background(), pool, nil, th.SampleStudents(), BulkExportOpts{
		Formats:   []formatter.Format{formatter.FormatCSV, formatter.FormatJSON},
		OutputDir: dir,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Files[1].Success)
	assert.NotEmpty(t, result.Files[1].Error)
}

func TestBulkExport_Cancelled(t *testing.T) {
	pool := NewPool(1, nil)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := BulkExport(ctx, pool, nil, th.SampleStudents(), BulkExportOpts{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Failed)
	assert.Zero(t, result.Successful)
}

func TestBulkExport_Errors(t *testing.T) {
	t.Run("nil pool", func(t *testing.T) {
		_, err := BulkExport(context.Background(), nil, nil, nil, BulkExportOpts{})
		assert.True(t, errors.Is(err, shared.ErrServiceUnavailable))
	})

	t.Run("output directory cannot be created", func(t *testing.T) {
		pool := NewPool(1, nil)
		defer pool.Close()

		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		_, err := BulkExport(context.Background(), pool, nil, nil, BulkExportOpts{OutputDir: filepath.Join(blocker, "out")})
		assert.ErrorIs(t, err, shared.ErrFile)
	})
}
