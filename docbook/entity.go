package docbook

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// entityTable holds the named XML/HTML character entities that have a
// direct troff escape under mdoc(7) (ported verbatim from
// original_source/parse.c's entities[] array). Entries that don't have an
// exact mandoc_char(7) representation are approximated; see the comments
// on the rarer ones.
var entityTable = map[string]string{
	"alpha":   `\(*a`,
	"amp":     "&",
	"apos":    "'",
	"auml":    `\(:a`,
	"beta":    `\(*b`,
	"circ":    "^", // U+02C6
	"copy":    `\(co`,
	"dagger":  `\(dg`,
	"Delta":   `\(*D`,
	"eacute":  `\('e`,
	"emsp":    `\ `, // U+2003
	"gt":      ">",
	"hairsp":  `\^`,
	"kappa":   `\(*k`,
	"larr":    `\(<-`,
	"ldquo":   `\(lq`,
	"le":      `\(<=`,
	"lowbar":  "_",
	"lsqb":    "[",
	"lt":      "<",
	"mdash":   `\(em`,
	"minus":   `\-`,
	"ndash":   `\(en`,
	"nbsp":    `\ `,
	"num":     "#",
	"oslash":  `\(/o`,
	"ouml":    `\(:o`,
	"percnt":  "%",
	"quot":    `\(dq`,
	"rarr":    `\(->`,
	"rArr":    `\(rA`,
	"rdquo":   `\(rq`,
	"reg":     `\(rg`,
	"rho":     `\(*r`,
	"rsqb":    "]",
	"sigma":   `\(*s`,
	"shy":     `\&`, // U+00AD
	"tau":     `\(*t`,
	"tilde":   `\[u02DC]`,
	"times":   `\[tmu]`,
	"uuml":    `\(:u`,
}

// ResolveEntity resolves name against the built-in entityTable only: this is
// spec.md §4.3's first lookup step ("If found in the built-in table..."). Its
// later steps -- the DOCTYPE internal subset, a numeric character reference,
// then (an InitWare-supplement, not in spec.md) x/net/html's HTML5
// named-entity table as a final fallback -- need parser state (the DOCTYPE
// subtree) the caller already holds, so they live in parser.go's xmlEntity,
// which calls ResolveEntity first and falls through to the rest itself.
func ResolveEntity(name string) (repl string, ok bool) {
	repl, ok = entityTable[name]
	return repl, ok
}

func resolveNumericEntity(digits string) (string, bool) {
	var (
		n   int64
		err error
	)
	if strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X") {
		n, err = strconv.ParseInt(digits[1:], 16, 32)
	} else {
		n, err = strconv.ParseInt(digits, 10, 32)
	}
	if err != nil || n <= 0 {
		return "", false
	}
	return fmt.Sprintf(`\[u%04X]`, n), true
}

// htmlNamedEntity looks a bare entity name up in x/net/html's unexported
// entity tables via its public unescaping entry point: decoding
// "&name;" and checking that exactly one rune came back tells us whether
// the table recognized the name.
func htmlNamedEntity(name string) (rune, bool) {
	unescaped := html.UnescapeString("&" + name + ";")
	runes := []rune(unescaped)
	if len(runes) != 1 || unescaped == "&"+name+";" {
		return 0, false
	}
	return runes[0], true
}
