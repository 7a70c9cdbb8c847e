package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/repositories"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/tasks"
	th "github.com/desertthunder/roster/internal/testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	shared.ConfigureDatabase(db, 1, 1)
	require.NoError(t, shared.RunMigrations(db))

	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T) (*StudentService, *repositories.JobRepository) {
	t.Helper()

	db := setupTestDB(t)
	jobs := repositories.NewJobRepository(db, nil)
	svc := NewStudentService(
		repositories.NewStudentRepository(db, nil),
		WithJobRecorder(jobs),
		WithPool(tasks.NewPool(2, nil)),
	)
	t.Cleanup(svc.Close)
	return svc, jobs
}

func seed(t *testing.T, svc *StudentService, students ...models.Student) {
	t.Helper()
	for i := range students {
		require.NoError(t, svc.AddStudent(context.Background(), &students[i]))
	}
}

func TestAddStudent(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a valid record", func(t *testing.T) {
		svc, _ := newTestService(t)

		st := &models.Student{ID: " S100 ", Name: "Ann Lee", Course: "Algebra", Grade: 91.5}
		require.NoError(t, svc.AddStudent(ctx, st))

		got, err := svc.GetStudentByID(ctx, "S100")
		require.NoError(t, err)
		assert.Equal(t, models.Student{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 91.5}, *got)
	})

	t.Run("validation before existence", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, models.Student{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 90})

		err := svc.AddStudent(ctx, &models.Student{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 101})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("duplicate id", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, models.Student{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 90})

		err := svc.AddStudent(ctx, &models.Student{ID: "S100", Name: "Bob Ray", Course: "Biology", Grade: 70})
		require.ErrorIs(t, err, shared.ErrDuplicateID)
		assert.Equal(t, "Student ID already exists: S100", err.Error())

		got, err := svc.GetStudentByID(ctx, "S100")
		require.NoError(t, err)
		assert.Equal(t, "Ann Lee", got.Name, "original record must be unchanged")
	})

	t.Run("grade bounds", func(t *testing.T) {
		svc, _ := newTestService(t)

		for i, g := range []float64{0, 100} {
			st := &models.Student{ID: []string{"S001", "S002"}[i], Name: "Ann Lee", Course: "Algebra", Grade: g}
			assert.NoError(t, svc.AddStudent(ctx, st), "grade %v", g)
		}
		for _, g := range []float64{-0.001, 100.001} {
			st := &models.Student{ID: "S003", Name: "Ann Lee", Course: "Algebra", Grade: g}
			assert.ErrorIs(t, svc.AddStudent(ctx, st), shared.ErrValidation, "grade %v", g)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		svc := NewStudentService(th.WriteFailingStore{})
		defer svc.Close()

		err := svc.AddStudent(ctx, &models.Student{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 90})
		assert.ErrorIs(t, err, shared.ErrDatabase)
		assert.ErrorIs(t, err, th.ErrStore)
	})
}

func TestUpdateStudent(t *testing.T) {
	ctx := context.Background()

	t.Run("updates existing", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, models.Student{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 90})

		require.NoError(t, svc.UpdateStudent(ctx, &models.Student{ID: "S100", Name: "Ann Park", Course: "Geometry", Grade: 95}))

		got, err := svc.GetStudentByID(ctx, "S100")
		require.NoError(t, err)
		assert.Equal(t, "Ann Park", got.Name)
		assert.Equal(t, 95.0, got.Grade)
	})

	t.Run("unknown id", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.UpdateStudent(ctx, &models.Student{ID: "S404", Name: "No One", Course: "None", Grade: 1})
		require.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, "Student not found with ID: S404", err.Error())
	})

	t.Run("invalid input", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.UpdateStudent(ctx, &models.Student{ID: "S404", Name: "N0 One", Course: "None", Grade: 1})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("store failure", func(t *testing.T) {
		svc := NewStudentService(th.FailingStore{})
		defer svc.Close()

		err := svc.UpdateStudent(ctx, &models.Student{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 1})
		assert.ErrorIs(t, err, shared.ErrDatabase)
	})
}

func TestDeleteAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("delete then get", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, models.Student{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 90})

		require.NoError(t, svc.DeleteStudent(ctx, "S100"))

		_, err := svc.GetStudentByID(ctx, "S100")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		assert.ErrorIs(t, svc.DeleteStudent(ctx, "S100"), shared.ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		svc, _ := newTestService(t)

		assert.ErrorIs(t, svc.DeleteStudent(ctx, "  "), shared.ErrValidation)
		_, err := svc.GetStudentByID(ctx, "")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("get store failure", func(t *testing.T) {
		svc := NewStudentService(th.FailingStore{})
		defer svc.Close()

		_, err := svc.GetStudentByID(ctx, "S100")
		assert.ErrorIs(t, err, shared.ErrDatabase)
	})
}

func TestListAndSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("ordered by id", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, th.SampleStudents()[2], th.SampleStudents()[0], th.SampleStudents()[1])

		assert.Equal(t, th.SampleStudents(), svc.ListStudents(ctx))
	})

	t.Run("search by course and name", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, th.SampleStudents()...)

		algebra := svc.SearchStudents(ctx, map[string]any{"course": "Algebra"})
		assert.Len(t, algebra, 2)

		moss := svc.SearchStudents(ctx, map[string]any{"name": "moss"})
		require.Len(t, moss, 1)
		assert.Equal(t, "S300", moss[0].ID)
	})

	t.Run("store failure yields empty list", func(t *testing.T) {
		svc := NewStudentService(th.FailingStore{})
		defer svc.Close()

		students := svc.ListStudents(ctx)
		assert.NotNil(t, students)
		assert.Empty(t, students)
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()

	t.Run("empty roster", func(t *testing.T) {
		svc, _ := newTestService(t)

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.Count)
		assert.Empty(t, stats.ByCourse)
	})

	t.Run("summary", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, th.SampleStudents()...)

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Count)
		assert.InDelta(t, (91.5+78+64.25)/3, stats.Average, 1e-9)
		assert.Equal(t, 64.25, stats.Min)
		assert.Equal(t, 91.5, stats.Max)
		assert.Equal(t, []CourseCount{{Course: "Algebra", Count: 2}, {Course: "Biology", Count: 1}}, stats.ByCourse)
	})

	t.Run("store failure", func(t *testing.T) {
		svc := NewStudentService(th.FailingStore{})
		defer svc.Close()

		_, err := svc.Stats(ctx)
		assert.ErrorIs(t, err, shared.ErrDatabase)
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("writes csv and records a job", func(t *testing.T) {
		svc, jobs := newTestService(t)
		seed(t, svc, models.Student{ID: "S1A", Name: "Ann Lee", Course: "Algebra", Grade: 91.5})

		path := filepath.Join(t.TempDir(), "out.csv")
		result, err := svc.Export(ctx, path, formatter.FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Count)

		assert.Equal(t, "ID,Name,Course,Grade\nS1A,Ann Lee,Algebra,91.50\n", th.MustReadFile(t, path))

		job, err := jobs.Get(ctx, result.JobID)
		require.NoError(t, err)
		assert.Equal(t, models.JobCompleted, job.Status)
		assert.Equal(t, models.JobExport, job.Kind)
		assert.Equal(t, 1, job.Succeeded)
	})

	t.Run("format inferred from path", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, th.SampleStudents()...)

		path := filepath.Join(t.TempDir(), "out.json")
		result, err := svc.Export(ctx, path, "")
		require.NoError(t, err)
		assert.Equal(t, "json", result.Format)
		assert.True(t, strings.HasPrefix(th.MustReadFile(t, path), "["))
	})

	t.Run("unwritable path records a failed job", func(t *testing.T) {
		svc, jobs := newTestService(t)

		_, err := svc.Export(ctx, filepath.Join(t.TempDir(), "missing", "out.csv"), formatter.FormatCSV)
		assert.ErrorIs(t, err, shared.ErrFile)

		history, err := jobs.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.JobFailed, history[0].Status)
	})

	t.Run("empty path", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Export(ctx, " ", formatter.FormatCSV)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("async callback fires once on the loop", func(t *testing.T) {
		svc, _ := newTestService(t)
		seed(t, svc, th.SampleStudents()...)

		loop := tasks.NewLoop()
		defer loop.Close()

		rec := th.NewRecorder[*ExportResult]()
		svc.ExportAsync(ctx, filepath.Join(t.TempDir(), "out.csv"), formatter.FormatCSV, loop, func(r *ExportResult, err error) {
			assert.NoError(t, err)
			rec.Record(r)
		})

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.True(t, rec.Wait(waitCtx), "callback never fired")

		loop.Close()
		values := rec.Values()
		require.Len(t, values, 1)
		assert.Equal(t, 3, values[0].Count)
	})

	t.Run("after close", func(t *testing.T) {
		svc, _ := newTestService(t)
		svc.Close()

		_, err := svc.Export(ctx, filepath.Join(t.TempDir(), "out.csv"), formatter.FormatCSV)
		assert.ErrorIs(t, err, shared.ErrPoolClosed)
	})
}

func TestExportAll(t *testing.T) {
	svc, jobs := newTestService(t)
	seed(t, svc, th.SampleStudents()...)

	dir := t.TempDir()
	result, err := svc.ExportAll(context.Background(), dir, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Successful)

	for _, name := range []string{"students.csv", "students.json", "students.md", "export_manifest.json"} {
		th.AssertFileExists(t, filepath.Join(dir, name))
	}

	history, err := jobs.List(context.Background(), map[string]any{"kind": "export"})
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip into an empty store", func(t *testing.T) {
		src, _ := newTestService(t)
		seed(t, src, models.Student{ID: "S1A", Name: "Ann Lee", Course: "Algebra", Grade: 91.5})

		path := filepath.Join(t.TempDir(), "students.csv")
		_, err := src.Export(ctx, path, formatter.FormatCSV)
		require.NoError(t, err)

		dst, _ := newTestService(t)
		result, err := dst.Import(ctx, path, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)

		assert.Equal(t, src.ListStudents(ctx), dst.ListStudents(ctx))
	})

	t.Run("skips existing ids and counts them", func(t *testing.T) {
		svc, jobs := newTestService(t)
		seed(t, svc, models.Student{ID: "S100", Name: "Original Name", Course: "Algebra", Grade: 50})

		path := th.MustWriteFile(t, t.TempDir(), "in.csv",
			"ID,Name,Course,Grade\n"+
				"S100,Ann Lee,Algebra,91.5\n"+
				"S200,Bob Ray,Biology,78\n"+
				"S200,Bob Ray,Biology,78\n")

		result, err := svc.Import(ctx, path, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
		assert.Equal(t, 2, result.Skipped)

		got, err := svc.GetStudentByID(ctx, "S100")
		require.NoError(t, err)
		assert.Equal(t, "Original Name", got.Name, "existing record must not be overwritten")

		job, err := jobs.Get(ctx, result.JobID)
		require.NoError(t, err)
		assert.Equal(t, models.JobImport, job.Kind)
		assert.Equal(t, 2, job.Skipped)
		assert.Equal(t, 1, job.Succeeded)
	})

	t.Run("invalid and malformed rows are counted", func(t *testing.T) {
		svc, _ := newTestService(t)

		path := th.MustWriteFile(t, t.TempDir(), "in.csv",
			"ID,Name,Course,Grade\n"+
				"S100,Ann Lee,Algebra,91.5\n"+
				"S2,Bob Ray,Biology,78\n"+
				"S300,Cara Moss,Algebra,150\n"+
				"S400,Dee Park,Chemistry\n"+
				"S500,Eve Stone,Art,A+\n")

		progress := make(chan tasks.ProgressUpdate, 64)
		result, err := svc.Import(ctx, path, progress)
		require.NoError(t, err)

		assert.Equal(t, 5, result.Total)
		assert.Equal(t, 1, result.Imported)
		assert.Equal(t, 2, result.Invalid)
		assert.Equal(t, 2, result.Malformed)
		assert.Len(t, result.Failures, 2)
		assert.Len(t, result.RowErrors, 2)
		assert.Len(t, svc.ListStudents(ctx), 1)

		close(progress)
		var phases []tasks.Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		assert.Contains(t, phases, tasks.ReadFile)
		assert.Contains(t, phases, tasks.MergeRecords)
		assert.Equal(t, tasks.Complete, phases[len(phases)-1])
	})

	t.Run("overlong line does not abort the import", func(t *testing.T) {
		svc, _ := newTestService(t)

		path := th.MustWriteFile(t, t.TempDir(), "in.csv",
			"ID,Name,Course,Grade\n"+
				"abc,Ann Lee,Math,90\n"+
				strings.Repeat("x", 70000)+"\n"+
				"def,Bob,Math,80\n")

		result, err := svc.Import(ctx, path, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Imported)
		assert.Equal(t, 1, result.Malformed)
		assert.Len(t, svc.ListStudents(ctx), 2)
	})

	t.Run("trailing empty fields are ignored", func(t *testing.T) {
		svc, _ := newTestService(t)

		path := th.MustWriteFile(t, t.TempDir(), "in.csv", "ID,Name,Course,Grade\nabc,Ann,Math,90,,\n")
		result, err := svc.Import(ctx, path, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
		assert.Zero(t, result.Malformed)
	})

	t.Run("missing file imports nothing", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.Import(ctx, filepath.Join(t.TempDir(), "missing.csv"), nil)
		require.NoError(t, err)
		assert.Zero(t, result.Total)
		assert.Zero(t, result.Imported)
	})

	t.Run("unreadable path fails", func(t *testing.T) {
		svc, jobs := newTestService(t)

		_, err := svc.Import(ctx, t.TempDir(), nil)
		assert.ErrorIs(t, err, shared.ErrFile)

		history, err := jobs.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.JobFailed, history[0].Status)
	})

	t.Run("store failure while loading ids", func(t *testing.T) {
		svc := NewStudentService(th.FailingStore{})
		defer svc.Close()

		path := th.MustWriteFile(t, t.TempDir(), "in.csv", "ID,Name,Course,Grade\nS100,Ann Lee,Algebra,91.5\n")
		_, err := svc.Import(ctx, path, nil)
		assert.ErrorIs(t, err, shared.ErrDatabase)
	})

	t.Run("reader import", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.ImportReader(ctx, "upload", strings.NewReader("ID,Name,Course,Grade\nS100,Ann Lee,Algebra,91.5\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
		assert.Equal(t, "upload", result.Path)
	})

	t.Run("async callback fires exactly once", func(t *testing.T) {
		svc, _ := newTestService(t)
		path := th.MustWriteFile(t, t.TempDir(), "in.csv", "ID,Name,Course,Grade\nS100,Ann Lee,Algebra,91.5\n")

		rec := th.NewRecorder[error]()
		f := svc.ImportAsync(ctx, path, nil, func(r *ImportResult, err error) {
			rec.Record(err)
		})

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := f.Wait(waitCtx)
		require.NoError(t, err)
		require.True(t, rec.Wait(waitCtx))

		time.Sleep(10 * time.Millisecond)
		assert.Len(t, rec.Values(), 1)
		assert.NoError(t, rec.Values()[0])
	})

	t.Run("cancelled before start", func(t *testing.T) {
		svc, _ := newTestService(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		f := svc.ImportAsync(cctx, "whatever.csv", nil, nil)
		_, err := f.Wait(context.Background())
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestJobs(t *testing.T) {
	ctx := context.Background()

	t.Run("without recorder", func(t *testing.T) {
		svc := NewStudentService(th.FailingStore{})
		defer svc.Close()

		jobs, err := svc.Jobs(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("newest first with limit", func(t *testing.T) {
		svc, _ := newTestService(t)
		dir := t.TempDir()

		for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
			_, err := svc.Export(ctx, filepath.Join(dir, name), formatter.FormatCSV)
			require.NoError(t, err)
		}

		jobs, err := svc.Jobs(ctx, 2)
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, filepath.Join(dir, "c.csv"), jobs[0].Path)
	})

	t.Run("job recording failure is not fatal", func(t *testing.T) {
		db := setupTestDB(t)
		jobs := repositories.NewJobRepository(db, nil)
		svc := NewStudentService(repositories.NewStudentRepository(db, nil), WithJobRecorder(jobs))
		defer svc.Close()

		_, err := db.Exec("DROP TABLE jobs")
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "out.csv")
		_, err = svc.Export(ctx, path, formatter.FormatCSV)
		require.NoError(t, err)
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})
}
