package shared

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogSink is an [io.Writer] that queues log entries and writes them from a single background goroutine
// into one file per calendar day ({dir}/roster_YYYYMMDD.log).
//
// The queue is unbounded, so Write never blocks on disk I/O. [LogSink.Close] drains queued entries before returning.
type LogSink struct {
	dir    string
	prefix string
	now    func() time.Time
	errOut io.Writer

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []logEntry
	closed bool
	done   chan struct{}

	file *os.File
	day  string
}

type logEntry struct {
	at   time.Time
	data []byte
}

// NewLogSink creates the log directory if needed and starts the writer goroutine.
func NewLogSink(dir string) (*LogSink, error) {
	return newLogSink(dir, time.Now)
}

func newLogSink(dir string, now func() time.Time) (*LogSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	s := &LogSink{
		dir:    dir,
		prefix: "roster_",
		now:    now,
		errOut: os.Stderr,
		done:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.run()
	return s, nil
}

// Write queues a copy of p. It fails only after the sink has been closed.
func (s *LogSink) Write(p []byte) (int, error) {
	entry := logEntry{at: s.now(), data: append([]byte(nil), p...)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, os.ErrClosed
	}

	s.queue = append(s.queue, entry)
	s.cond.Signal()
	return len(p), nil
}

// Close stops accepting entries, waits for the queue to drain, and closes the current file.
func (s *LogSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	<-s.done

	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// PathFor returns the log file path used for entries written at t.
func (s *LogSink) PathFor(t time.Time) string {
	return filepath.Join(s.dir, s.prefix+t.Format("20060102")+".log")
}

func (s *LogSink) run() {
	defer close(s.done)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		batch := s.queue
		s.queue = nil
		closed := s.closed
		s.mu.Unlock()

		for _, entry := range batch {
			if err := s.write(entry); err != nil {
				fmt.Fprintf(s.errOut, "log sink: %v\n", err)
			}
		}

		if closed && len(batch) == 0 {
			return
		}
	}
}

// write appends entry to the file for its day, rotating when the day changes.
func (s *LogSink) write(entry logEntry) error {
	day := entry.at.Format("20060102")
	if s.file == nil || day != s.day {
		if s.file != nil {
			s.file.Close()
			s.file = nil
		}

		f, err := os.OpenFile(s.PathFor(entry.at), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		s.file = f
		s.day = day
	}

	_, err := s.file.Write(entry.data)
	return err
}
