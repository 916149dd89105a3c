package sink

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pagesift/internal/types"
)

// CSVSink writes records as CSV rows with flush-on-write durability:
// a crash after N records leaves exactly the header plus N complete
// rows, never a partial row.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
	schema types.Schema
	count  int
	logger *slog.Logger
}

// NewCSVSink creates a CSV sink for the given destination path. The
// destination is not touched until Open.
func NewCSVSink(path string, logger *slog.Logger) *CSVSink {
	return &CSVSink{
		path:   path,
		logger: logger.With("component", "csv_sink"),
	}
}

func (s *CSVSink) Name() string { return "csv" }

// Open truncates or creates the destination and writes the header row
// exactly once, before any data row.
func (s *CSVSink) Open(schema types.Schema) error {
	if s.file != nil {
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("already open")}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("create output dir: %w", err)}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("create output file: %w", err)}
	}

	s.file = f
	s.writer = csv.NewWriter(f)
	s.schema = schema

	if err := s.writer.Write(schema); err != nil {
		_ = f.Close()
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("write header: %w", err)}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		_ = f.Close()
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("flush header: %w", err)}
	}

	s.logger.Debug("sink opened", "path", s.path, "fields", len(schema))
	return nil
}

// Write appends one row in schema order and flushes it to the file.
func (s *CSVSink) Write(rec *types.Record) error {
	if s.writer == nil {
		return &types.SinkError{Backend: s.Name(), Err: types.ErrSinkNotOpen}
	}

	if err := s.writer.Write(rec.Row(s.schema)); err != nil {
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("write row: %w", err)}
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("flush row: %w", err)}
	}

	s.count++
	return nil
}

// Close flushes and releases the file. Safe to call when Open never
// succeeded.
func (s *CSVSink) Close() error {
	if s.file == nil {
		return nil
	}

	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	s.file = nil
	s.writer = nil

	s.logger.Info("CSV written", "path", s.path, "rows", s.count)

	if flushErr != nil {
		return &types.SinkError{Backend: s.Name(), Err: flushErr}
	}
	if closeErr != nil {
		return &types.SinkError{Backend: s.Name(), Err: closeErr}
	}
	return nil
}
