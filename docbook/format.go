package docbook

import (
	"bufio"
	"io"
	"strings"
)

// lineState tracks whether the writer sits at the start of a fresh line, in
// the middle of a text line, or in the middle of a macro line, grounded on
// macro.h's enum linestate.
type lineState int

const (
	lineNew lineState = iota
	lineText
	lineMacro
)

// paraState tracks whether a ".Pp" paragraph break is owed before the next
// output, grounded on macro.h's enum parastate.
type paraState int

const (
	paraHave paraState = iota // just printed .Pp or equivalent
	paraMid                   // in the middle of a paragraph
	paraWant                  // need .Pp before printing anything else
)

// fmtFlags mirrors macro.h's FMT_* bitmask.
type fmtFlags int

const (
	fmtNoSpc fmtFlags = 1 << iota // suppress space before next node
	fmtArg                        // may add an argument to the current macro
	fmtChild                      // expect a single child macro
	fmtImpl                        // a partial implicit block is open
)

// argFlags mirrors macro.h's ARG_* bitmask.
type argFlags int

const (
	argSpace  argFlags = 1 << iota // insert whitespace before this argument
	argSingle                      // quote the argument if it contains whitespace
	argQuoted                      // already inside a quoted argument
	argUpper                       // convert the argument to upper case
)

// Formatter renders a Tree as mdoc(7) troff source, grounded on
// original_source/macro.c + docbook2mdoc.c. One Formatter writes one
// document to one io.Writer; it is not safe for concurrent use (spec.md's
// concurrency model is strictly single-pass/synchronous).
type Formatter struct {
	w         *bufio.Writer
	level     int
	nofill    int
	flags     fmtFlags
	lineState lineState
	paraState paraState
}

// NewFormatter returns a Formatter writing to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: bufio.NewWriter(w)}
}

// Flush flushes any buffered output.
func (f *Formatter) Flush() error { return f.w.Flush() }

// paraCheck emits a pending ".Pp" if one is owed, grounded on para_check.
func (f *Formatter) paraCheck() {
	if f.paraState != paraWant {
		return
	}
	if f.lineState != lineNew {
		f.w.WriteByte('\n')
		f.lineState = lineNew
	}
	f.w.WriteString(".Pp\n")
	f.paraState = paraHave
}

// macroOpen starts a new macro line (or continues the current one as a
// chained ".Ns"/space-joined call), grounded on macro_open.
func (f *Formatter) macroOpen(name string) {
	f.paraCheck()
	switch f.lineState {
	case lineMacro:
		switch {
		case f.flags&fmtNoSpc != 0:
			f.w.WriteString(" Ns ")
		case f.nofill > 0 || f.flags&(fmtChild|fmtImpl) != 0:
			f.w.WriteByte(' ')
		default:
			f.w.WriteByte('\n')
			f.w.WriteByte('.')
			f.lineState = lineMacro
			f.flags = 0
		}
	case lineText:
		if f.nofill > 0 {
			f.w.WriteString(" \\c")
		}
		f.w.WriteByte('\n')
		f.w.WriteByte('.')
		f.lineState = lineMacro
		f.flags = 0
	case lineNew:
		f.w.WriteByte('.')
		f.lineState = lineMacro
		f.flags = 0
	}
	f.w.WriteString(name)
	f.flags &= fmtImpl
	f.flags |= fmtArg
	f.paraState = paraMid
}

// macroClose ends the current macro line, grounded on macro_close.
func (f *Formatter) macroClose() {
	if f.lineState != lineNew {
		f.w.WriteByte('\n')
	}
	f.lineState = lineNew
	f.flags = 0
}

// macroLine opens, optionally no-ops, and immediately closes a bare macro
// line, grounded on macro_line.
func (f *Formatter) macroLine(name string) {
	f.macroClose()
	f.macroOpen(name)
	f.macroClose()
}

// isMacroLookalike reports whether cp (the rest of an argument string,
// starting at the byte in question) looks like an mdoc macro name: an
// upper-then-lower two-letter word, or one of the four specific 3-letter
// macros that happen to look like an ordinary capitalized word
// (Brq/Bro/Brc/Bsx). Grounded on macro_addarg's inline escaping check.
func isMacroLookalike(cp string) bool {
	if len(cp) < 2 {
		return false
	}
	if !isUpperByte(cp[0]) || !isLowerByte(cp[1]) {
		return false
	}
	if len(cp) == 2 || cp[2] == ' ' {
		return true
	}
	if len(cp) >= 3 && (len(cp) == 3 || cp[3] == ' ') {
		switch cp[:3] {
		case "Brq", "Bro", "Brc", "Bsx":
			return true
		}
	}
	return false
}

// macroAddarg prints an argument string on the current macro line,
// collapsing internal whitespace runs to a single space and escaping
// embedded quotes, backslashes, and macro-lookalike words. Grounded on
// macro_addarg.
func (f *Formatter) macroAddarg(arg string, flags argFlags) {
	quoteNow := false
	if flags&(argSingle|argQuoted) == argSingle {
		if strings.IndexFunc(arg, func(r rune) bool { return r < 0x80 && isSpaceByte(byte(r)) }) >= 0 {
			if flags&argSpace != 0 {
				f.w.WriteByte(' ')
				flags &^= argSpace
			}
			f.w.WriteByte('"')
			flags = argQuoted
			quoteNow = true
		}
	}

	for i := 0; i < len(arg); i++ {
		c := arg[i]

		if isSpaceByte(c) {
			flags |= argSpace
			continue
		} else if flags&argSpace != 0 {
			f.w.WriteByte(' ')
			flags &^= argSpace
		}

		if flags&(argQuoted|argUpper) == 0 &&
			(i == 0 || isSpaceByte(arg[i-1])) &&
			isMacroLookalike(arg[i:]) {
			f.w.WriteString(`\&`)
		}

		switch {
		case c == '"':
			f.w.WriteString(`\(dq`)
		case flags&argUpper != 0:
			f.w.WriteByte(toUpperByte(c))
		default:
			f.w.WriteByte(c)
		}
		if c == '\\' {
			f.w.WriteByte('e')
		}
	}
	if quoteNow {
		f.w.WriteByte('"')
	}
	f.paraState = paraMid
}

// macroArgline opens name, adds arg as a single space-separated argument,
// and closes the line. Grounded on macro_argline.
func (f *Formatter) macroArgline(name, arg string) {
	f.macroOpen(name)
	f.macroAddarg(arg, argSpace)
	f.macroClose()
}

func textClass(n *Node) Class {
	return n.Kind.Class()
}

// macroAddnode recursively appends a node's text content to the current
// macro line as one or more arguments, inserting whitespace between
// adjacent nodes per their FlagSpc/class, and quoting the whole thing if
// argSingle was requested and nothing else already opened a quote.
// Grounded on macro_addnode.
func (f *Formatter) macroAddnode(n *Node, flags argFlags) {
	for len(n.Children) == 1 {
		n = n.Children[0]
	}

	if n.Kind == KindText || n.Kind == KindEscape {
		f.macroAddarg(n.Text, flags)
		f.paraState = paraMid
		return
	}

	quoteNow := false
	if flags&argSingle != 0 {
		if flags&argQuoted == 0 {
			if flags&argSpace != 0 {
				f.w.WriteByte(' ')
				flags &^= argSpace
			}
			f.w.WriteByte('"')
			flags |= argQuoted
			quoteNow = true
		}
		flags &^= argSingle
	}

	children := n.Children
	for i := 0; i < len(children); i++ {
		nc := children[i]
		f.macroAddnode(nc, flags)
		isText := textClass(nc) == ClassText
		var next *Node
		if i+1 < len(children) {
			next = children[i+1]
		}
		if next == nil || textClass(next) != ClassText {
			isText = false
		}
		if isText && next != nil && !next.HasFlag(FlagSpc) {
			flags &^= argSpace
		} else {
			flags |= argSpace
		}
	}
	if quoteNow {
		f.w.WriteByte('"')
	}
	f.paraState = paraMid
}

// macroNodeline opens name, appends n's content as a node argument, and
// closes the line. Grounded on macro_nodeline.
func (f *Formatter) macroNodeline(name string, n *Node, flags argFlags) {
	f.macroOpen(name)
	f.macroAddnode(n, argSpace|flags)
	f.macroClose()
}

// printText prints a word on the current text line (opening one if none is
// open), detecting sentence ends and breaking the troff source line there
// so that mdoc's one-sentence-per-line convention holds, and escaping a
// leading '.'/'\'' so it isn't mistaken for a troff request. Grounded on
// print_text.
func (f *Formatter) printText(word string, flags argFlags) {
	f.paraCheck()
	switch f.lineState {
	case lineNew:
	case lineText:
		if flags&argSpace != 0 {
			f.w.WriteByte(' ')
		}
	case lineMacro:
		f.macroClose()
	}
	if f.lineState == lineNew && len(word) > 0 && (word[0] == '.' || word[0] == '\'') {
		f.w.WriteString(`\&`)
	}

	ateos := false
	inword := 0
	i := 0
	for i < len(word) {
		c := word[i]
		if f.nofill == 0 {
			switch c {
			case ' ':
				if !ateos {
					inword = 0
					break
				}
				ateos, inword = false, 0
				for i < len(word) && word[i] == ' ' {
					i++
				}
				switch {
				case i == len(word):
				case word[i] == '\'' || word[i] == '.':
					f.w.WriteString("\n\\&")
				default:
					f.w.WriteByte('\n')
				}
				continue
			case '!', '.', '?':
				if inword > 1 && !endsWithAbbrev(word, i) {
					ateos = true
				}
				inword = 0
			case '"', '\'', ')', ']':
				inword = 0
			default:
				if isAlnumByte(c) {
					inword++
				}
				ateos = false
			}
		}
		f.w.WriteByte(c)
		if c == '\\' {
			f.w.WriteByte('e')
		}
		i++
	}
	f.lineState = lineText
	f.paraState = paraMid
	f.flags = 0
}

// endsWithAbbrev reports whether word[i-2:i] is "nc" or "vs", the two
// abbreviations print_text exempts from sentence-end detection (so that,
// e.g., "Inc." or "vs." doesn't force a line break).
func endsWithAbbrev(word string, i int) bool {
	if i < 2 {
		return false
	}
	a, b := word[i-2], word[i-1]
	return (a == 'n' && b == 'c') || (a == 'v' && b == 's')
}

func isAlnumByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c >= 0x80 // treat UTF-8 continuation/lead bytes as word characters
}

func isUpperByte(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isLowerByte(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func toUpperByte(c byte) byte {
	if isLowerByte(c) {
		return c - ('a' - 'A')
	}
	return c
}

// printTextNode recursively prints a node's text content on the current
// text line. Grounded on print_textnode.
func (f *Formatter) printTextNode(n *Node) {
	if n.Kind == KindText || n.Kind == KindEscape {
		f.printText(n.Text, argSpace)
		return
	}
	for _, nc := range n.Children {
		f.printTextNode(nc)
	}
}
