package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format represents the output format for logs
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// String returns the string representation of the format
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat parses a string into a Format, defaulting to text
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Output represents where logs should be written
type Output struct {
	writer io.Writer
	closer io.Closer
}

// Writer returns the underlying io.Writer
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// Close releases a file sink, if any
func (o Output) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr creates an Output that writes to stderr
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// OutputFile opens path in append mode, creating parent directories as needed
func OutputFile(path string) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Output{}, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Output{}, fmt.Errorf("failed to open log file: %w", err)
	}
	return Output{writer: f, closer: f}, nil
}

// MultiOutput tees every entry to all outputs
func MultiOutput(outputs ...Output) Output {
	writers := make([]io.Writer, 0, len(outputs))
	var closers multiCloser
	for _, o := range outputs {
		writers = append(writers, o.Writer())
		if o.closer != nil {
			closers = append(closers, o.closer)
		}
	}
	return Output{writer: io.MultiWriter(writers...), closer: closers}
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Config holds configuration for the logger
type Config struct {
	Level          Level
	Format         Format
	Output         Output
	AddSource      bool
	ServiceName    string
	ServiceVersion string
}

// DefaultConfig logs at INFO in text format to stderr
func DefaultConfig() Config {
	return Config{
		Level:          LevelInfo,
		Format:         FormatText,
		Output:         OutputStderr(),
		ServiceName:    "aiorch",
		ServiceVersion: "dev",
	}
}

// DevelopmentConfig logs at DEBUG with source locations
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = LevelDebug
	cfg.AddSource = true
	return cfg
}

// ProductionConfig logs JSON at INFO
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.Format = FormatJSON
	cfg.ServiceVersion = "unknown"
	return cfg
}
