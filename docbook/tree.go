package docbook

import (
	"fmt"
	"io"
)

// TreeFlags records the sticky, tree-wide state spec.md §7 requires: once
// set, TreeError/TreeWarn/TreeClosed never clear for the lifetime of the
// tree, driving the process exit code (spec.md §6).
type TreeFlags uint8

const (
	TreeError TreeFlags = 1 << iota
	TreeWarn
	// TreeClosed marks that the document's root element has been closed;
	// any further top-level text or markup is a diagnostic-worthy anomaly
	// rather than a silent append.
	TreeClosed
)

// Tree is the result of parsing: a root Node plus the accumulated
// diagnostics and sticky flags, mirroring org.Document's pairing of parse
// results with *ParseError accumulation.
type Tree struct {
	*Config
	Path        string
	Root        *Node
	Diagnostics []*ParseError
	Flags       TreeFlags
}

// NewTree allocates an empty Tree with no root yet (the parser sets Root
// when it opens the first element), configured by cfg (a default Config is
// used if cfg is nil).
func NewTree(path string, cfg *Config) *Tree {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Tree{Config: cfg, Path: path}
}

// HasErrors reports whether any ERROR-severity diagnostic was recorded.
func (t *Tree) HasErrors() bool { return t.Flags&TreeError != 0 }

// HasWarnings reports whether any WARNING-severity diagnostic was recorded.
func (t *Tree) HasWarnings() bool { return t.Flags&TreeWarn != 0 }

// ExitCode reproduces the original CLI's rc computation (spec.md §6,
// original_source/main.c): 3 if any error was recorded, 2 if any warning
// was recorded (and -W was given), 0 otherwise.
func (t *Tree) ExitCode() int {
	switch {
	case t.Flags&TreeError != 0:
		return 3
	case t.Flags&TreeWarn != 0:
		return 2
	default:
		return 0
	}
}

func (t *Tree) errorf(pos Position, format string, args ...any) {
	t.Flags |= TreeError
	t.Diagnostics = append(t.Diagnostics, newParseError(SeverityError, pos, format, args...))
}

func (t *Tree) warnf(pos Position, format string, args ...any) {
	if !t.Warn {
		return
	}
	t.Flags |= TreeWarn
	t.Diagnostics = append(t.Diagnostics, newParseError(SeverityWarning, pos, format, args...))
}

// WriteDiagnostics writes one "FILE:LINE:COL: LEVEL: MESSAGE" line per
// recorded diagnostic, grounded on org.Document.WriteErrors. Warnings are
// skipped unless verbose is true, matching the parser's own -W gate (a
// belt-and-suspenders check: warnings are normally never recorded at all
// unless Config.Warn was set).
func (t *Tree) WriteDiagnostics(w io.Writer, verbose bool) error {
	for _, d := range t.Diagnostics {
		if d.Severity == SeverityWarning && !verbose {
			continue
		}
		if _, err := fmt.Fprintln(w, d.Error()); err != nil {
			return err
		}
	}
	return nil
}
