package docbook

import (
	"log/slog"
	"os"
)

// Config configures a Parser, mirroring org.Configuration's shape: a small
// struct of knobs plus pluggable I/O hooks a caller can stub out in tests.
type Config struct {
	// Warn enables WARNING-severity diagnostics in addition to ERROR ones
	// (spec.md §6's -W flag).
	Warn bool

	// Section records the manual section/volume override (spec.md §6's -s
	// flag). The parser does not read it, and Reorganize takes the override
	// as its own argument rather than from this field.
	Section string

	// ReadFile resolves xi:include hrefs and external entity SYSTEM ids.
	// Defaults to os.ReadFile; tests substitute an in-memory lookup.
	ReadFile func(filename string) ([]byte, error)

	// Logger receives ambient trace events (include-file resolution,
	// per-file parse start/end) that aren't part of the document
	// diagnostic contract (ParseError/Tree). Defaults to a handler
	// discarding everything below slog.LevelWarn; the CLI raises it to
	// Debug under -W via internal/diag.
	Logger *slog.Logger
}

// NewConfig returns a Config with sane defaults, mirroring org.New().
func NewConfig() *Config {
	return &Config{
		ReadFile: os.ReadFile,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
}
