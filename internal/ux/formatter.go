// Package ux renders command output and turns errors into actionable messages.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Formatter writes command results in one output format
type Formatter interface {
	Format(data any) error
}

// Texter is implemented by results that have a human-readable rendering
type Texter interface {
	Text() string
}

// FormatterOptions configures a formatter
type FormatterOptions struct {
	// Writer defaults to os.Stdout
	Writer io.Writer
	// Compact disables indentation for JSON
	Compact bool
}

// Formats lists the accepted --format values
var Formats = []string{"text", "json", "yaml"}

// NewFormatter creates a formatter for text, json or yaml
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case "json":
		return &JSONFormatter{opts: opts}, nil
	case "yaml":
		return &YAMLFormatter{opts: opts}, nil
	case "text", "":
		return &TextFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

type JSONFormatter struct {
	opts *FormatterOptions
}

func (f *JSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

type YAMLFormatter struct {
	opts *FormatterOptions
}

func (f *YAMLFormatter) Format(data any) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

// TextFormatter prints Texter, Stringer and string values. Anything else
// falls back to indented JSON.
type TextFormatter struct {
	opts *FormatterOptions
}

func (f *TextFormatter) Format(data any) error {
	var text string
	switch v := data.(type) {
	case string:
		text = v
	case Texter:
		text = v.Text()
	case fmt.Stringer:
		text = v.String()
	default:
		return (&JSONFormatter{opts: f.opts}).Format(data)
	}
	_, err := fmt.Fprintln(f.opts.Writer, text)
	return err
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
	_ Formatter = (*TextFormatter)(nil)
)
