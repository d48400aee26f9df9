// Command docbook2mdoc converts a DocBook XML manual page into mdoc(7)
// troff source, the steering function grounded on
// original_source/main.c: parse, reorganize, then format or dump
// depending on -T.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/InitWare/docbook2mdoc/docbook"
	"github.com/InitWare/docbook2mdoc/internal/diag"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	progname := filepath.Base(args[0])

	fs := pflag.NewFlagSet(progname, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-W] [-s section] [-T mdoc | tree | lint] [input_filename]\n", progname)
	}

	section := fs.StringP("section", "s", "", "override manual volume number")
	outType := fs.StringP("type", "T", "mdoc", "output type: mdoc | tree | lint")
	warn := fs.BoolP("warn", "W", false, "enable warning diagnostics")

	if err := fs.Parse(args[1:]); err != nil {
		return 5
	}
	switch *outType {
	case "mdoc", "tree", "lint":
	default:
		fmt.Fprintf(os.Stderr, "%s: Bad argument\n", *outType)
		fs.Usage()
		return 5
	}

	rest := fs.Args()
	var fname string
	isStdin := false
	switch len(rest) {
	case 0:
		fname = "<stdin>"
		isStdin = true
	case 1:
		fname = rest[0]
	default:
		fmt.Fprintf(os.Stderr, "%s: Too many arguments\n", rest[1])
		fs.Usage()
		return 5
	}

	cfg := docbook.NewConfig()
	cfg.Warn = *warn
	cfg.Section = *section

	// -W raises the ambient trace logger to Debug along with unlocking
	// warning diagnostics; without it, only warnings and errors surface.
	traceLvl := slog.LevelWarn
	if *warn {
		traceLvl = slog.LevelDebug
	}
	cfg.Logger = slog.New(diag.CreateHandler(os.Stderr, traceLvl, diag.FormatLogfmt))

	p := docbook.NewParser(cfg)
	var tree *docbook.Tree
	var err error
	if isStdin {
		tree, err = docbook.ParseReader(os.Stdin, fname, cfg)
	} else {
		tree, err = p.ParseFile(fname)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", progname, err)
		return 5
	}

	docbook.Reorganize(tree, *section)
	rc := tree.ExitCode()

	if err := tree.WriteDiagnostics(os.Stderr, *warn); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", progname, err)
	}

	if *outType != "lint" && tree.Root != nil {
		if rc > 2 {
			fmt.Fprintln(os.Stderr)
		}
		switch *outType {
		case "mdoc":
			if !isStdin {
				fmt.Printf(".\\\" automatically generated with %s %s\n", progname, filepath.Base(fname))
			}
			if err := docbook.Format(tree, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %s\n", progname, err)
				return 5
			}
		case "tree":
			if err := docbook.DumpTree(os.Stdout, tree); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %s\n", progname, err)
				return 5
			}
		}
		if rc > 2 {
			fmt.Fprint(os.Stderr, "\nThe output may be incomplete, see the parse error reported above.\n\n")
		}
	}

	return rc
}
