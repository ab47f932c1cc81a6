package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/filelock"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// Header is the first CSV record.
var Header = []string{"image_file", "model", "response_time", "response"}

// utf8BOM lets spreadsheet applications detect the encoding.
const utf8BOM = "\uFEFF"

// FileNameLayout names result files by run start time.
const FileNameLayout = "2006-01-02_150405"

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("sink closed")

// CSVSink appends one record per outcome and syncs it to disk before
// returning.
type CSVSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
	lock   *filelock.FileLock
	rows   int
}

// PathFor returns <dir>/<YYYY-MM-DD_HHMMSS>.csv for start.
func PathFor(dir string, start time.Time) string {
	return filepath.Join(dir, start.Format(FileNameLayout)+".csv")
}

// CreateCSV creates a new result file in dir named after start. The file
// is locked for the lifetime of the sink; an existing file is never
// overwritten.
func CreateCSV(dir string, start time.Time) (*CSVSink, error) {
	return OpenCSV(PathFor(dir, start))
}

// OpenCSV creates path and writes the BOM and header.
func OpenCSV(path string) (*CSVSink, error) {
	lock, err := filelock.Acquire(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("create result file: %w", err)
	}

	s := &CSVSink{
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
		lock:   lock,
	}
	if _, err := file.WriteString(utf8BOM); err != nil {
		s.abort()
		return nil, fmt.Errorf("write result file: %w", err)
	}
	if err := s.writeRecord(Header); err != nil {
		s.abort()
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) abort() {
	s.file.Close()
	s.lock.Release()
}

// Path returns the result file path.
func (s *CSVSink) Path() string {
	return s.path
}

// Rows returns the number of outcome records written.
func (s *CSVSink) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Record renders an outcome as a CSV record.
func Record(o models.TaskOutcome) []string {
	return []string{
		normalizeNewlines(o.Task.Asset.Name),
		normalizeNewlines(o.Task.ModelName),
		o.ElapsedField(),
		normalizeNewlines(o.Text),
	}
}

// Append implements Sink.
func (s *CSVSink) Append(outcome models.TaskOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrClosed
	}
	if err := s.writeRecord(Record(outcome)); err != nil {
		return err
	}
	s.rows++
	return nil
}

func (s *CSVSink) writeRecord(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return fmt.Errorf("write result row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush result row: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync result file: %w", err)
	}
	return nil
}

// Close flushes, closes the file and releases the lock.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	err := errors.Join(s.writer.Error(), s.file.Close(), s.lock.Release())
	s.file = nil
	return err
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
