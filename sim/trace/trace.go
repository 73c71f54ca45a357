package trace

import (
	"bufio"
	"fmt"
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink is the output destination of one operator. Each operator call opens
// the sink, writes its lines, and closes it again, so the output of a call
// is always flushed when the call returns.
type Sink interface {
	Open() (io.Writer, error)
	Close() error
}

// WriterSink buffers lines for an arbitrary writer and flushes on Close.
// It never closes the underlying writer.
type WriterSink struct {
	w   io.Writer
	buf *bufio.Writer
}

// NewWriterSink wraps w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Open() (io.Writer, error) {
	if s.buf == nil {
		s.buf = bufio.NewWriter(s.w)
	}
	return s.buf, nil
}

func (s *WriterSink) Close() error {
	if s.buf == nil {
		return nil
	}
	return s.buf.Flush()
}

// FileConfig configures size-based rotation of a FileSink.
type FileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// FileSink appends lines to a size-rotated file. The file handle stays open
// between calls; Release closes it at the end of a run.
type FileSink struct {
	logger *lumberjack.Logger
	buf    *bufio.Writer
}

// NewFileSink creates a sink for cfg.Path.
func NewFileSink(cfg FileConfig) (*FileSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file sink requires a path")
	}
	return &FileSink{logger: &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}}, nil
}

func (s *FileSink) Open() (io.Writer, error) {
	if s.buf == nil {
		s.buf = bufio.NewWriter(s.logger)
	}
	return s.buf, nil
}

func (s *FileSink) Close() error {
	if s.buf == nil {
		return nil
	}
	return s.buf.Flush()
}

// Release flushes pending lines and closes the file.
func (s *FileSink) Release() error {
	if err := s.Close(); err != nil {
		return err
	}
	return s.logger.Close()
}

// WriteLine writes one record line followed by a newline.
func WriteLine(w io.Writer, line string) error {
	_, err := io.WriteString(w, line+"\n")
	return err
}
