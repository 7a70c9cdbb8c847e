// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/roster/internal/models"
)

// ErrStore is returned by [FailingStore] for every call.
var ErrStore = errors.New("store unavailable")

// FailingStore is a student store whose every operation fails with [ErrStore].
type FailingStore struct{}

func (FailingStore) Add(context.Context, *models.Student) error    { return ErrStore }
func (FailingStore) Update(context.Context, *models.Student) error { return ErrStore }
func (FailingStore) Delete(context.Context, string) error          { return ErrStore }
func (FailingStore) Get(context.Context, string) (*models.Student, error) {
	return nil, ErrStore
}
func (FailingStore) Exists(context.Context, string) (bool, error) { return false, ErrStore }
func (FailingStore) List(context.Context, map[string]any) ([]models.Student, error) {
	return nil, ErrStore
}
func (FailingStore) IDs(context.Context) (map[string]struct{}, error) { return nil, ErrStore }

// WriteFailingStore reads like an empty store but rejects every write with [ErrStore].
type WriteFailingStore struct {
	FailingStore
}

func (WriteFailingStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (WriteFailingStore) List(context.Context, map[string]any) ([]models.Student, error) {
	return []models.Student{}, nil
}
func (WriteFailingStore) IDs(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

// Recorder collects values delivered to an async callback.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
	done   chan struct{}
	once   sync.Once
}

func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{done: make(chan struct{})}
}

// Record appends v and releases anyone blocked in [Recorder.Wait].
func (r *Recorder[T]) Record(v T) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

// Wait blocks until the first value is recorded or ctx is done.
func (r *Recorder[T]) Wait(ctx context.Context) bool {
	select {
	case <-r.done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

// SampleStudents returns a small valid roster sorted by ID.
func SampleStudents() []models.Student {
	return []models.Student{
		{ID: "S100", Name: "Ann Lee", Course: "Algebra", Grade: 91.5},
		{ID: "S200", Name: "Bob Ray", Course: "Biology", Grade: 78},
		{ID: "S300", Name: "Cara Moss", Course: "Algebra", Grade: 64.25},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// FReader always returns an error on Read
type FReader struct{}

func (f *FReader) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

var _ io.Reader = (*FReader)(nil)

// MustWriteFile writes content to name inside dir and returns the full path.
func MustWriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
