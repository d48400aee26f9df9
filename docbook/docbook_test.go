package docbook

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// diffLines reports a unified diff between want and got, in the style the
// pack's go-difflib dependency is meant for -- used here so a failing
// formatter test shows exactly which lines drifted instead of two opaque
// blobs.
func diffLines(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		t.Fatalf("mdoc mismatch (diff failed: %s)\nwant:\n%s\ngot:\n%s", err, want, got)
	}
	t.Fatalf("mdoc mismatch:\n%s", diff)
}

func render(t *testing.T, xml string, section string) (string, *Tree) {
	t.Helper()
	cfg := NewConfig()
	cfg.Warn = true
	cfg.Section = section
	tree, err := ParseReader(strings.NewReader(xml), "<test>", cfg)
	if err != nil {
		t.Fatalf("ParseReader: %s", err)
	}
	Reorganize(tree, section)
	var buf bytes.Buffer
	if err := Format(tree, &buf); err != nil {
		t.Fatalf("Format: %s", err)
	}
	return buf.String(), tree
}

// Scenario 1: minimal refentry.
func TestMinimalRefentry(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>foo</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>foo</refname><refpurpose>bar</refpurpose></refnamediv></refentry>`
	out, tree := render(t, xml, "")

	if !strings.Contains(out, ".Dt FOO 1\n") {
		t.Errorf("missing .Dt FOO 1 in output:\n%s", out)
	}
	for _, want := range []string{".Os", ".Sh NAME", ".Nm foo", ".Nd bar"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
	if tree.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0 (diagnostics: %v)", tree.ExitCode(), tree.Diagnostics)
	}
}

// The prologue plus NAME section, compared line-for-line: the lines from
// .Dt through .Nm must match exactly; the .Dd line (the $Mdocdate$
// placeholder's literal date text) and the .Nd line are not asserted here.
func TestPrologueExact(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>foo</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>foo</refname><refpurpose>bar</refpurpose></refnamediv></refentry>`
	out, _ := render(t, xml, "")

	lines := strings.SplitN(out, "\n", 6)
	got := strings.Join(lines[1:5], "\n") + "\n"
	want := ".Dt FOO 1\n.Os\n.Sh NAME\n.Nm foo\n"
	diffLines(t, want, got)
}

// Scenario 2: -s overrides the volume number.
func TestSectionOverride(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>foo</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>foo</refname><refpurpose>bar</refpurpose></refnamediv></refentry>`
	out, _ := render(t, xml, "3")
	if !strings.Contains(out, ".Dt FOO 3\n") {
		t.Errorf("missing .Dt FOO 3 in output:\n%s", out)
	}
}

// Scenario 3: a built-in entity resolves to its troff escape inside running
// text.
func TestEntityEscape(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>foo</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>foo</refname><refpurpose>bar</refpurpose></refnamediv>` +
		`<para>A &mdash; B</para></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, `A \(em B`) {
		t.Errorf("expected entity escape in output:\n%s", out)
	}
}

// Scenario 4: an optional <option> argument strips its leading "-" under
// .Fl and wraps in .Op.
func TestOptionStripping(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<refsynopsisdiv><cmdsynopsis><command>x</command>` +
		`<arg choice="opt"><option>-v</option></arg></cmdsynopsis></refsynopsisdiv></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Nm x") {
		t.Errorf("missing .Nm x in output:\n%s", out)
	}
	if !strings.Contains(out, ".Op Fl v") {
		t.Errorf("missing .Op Fl v in output:\n%s", out)
	}
}

// Scenario 5: a prototype with a parameter gets .Ft and a .Fo/.Fa/.Fc block;
// only a parameterless one collapses to .Fn (see TestFuncPrototypeVoid).
func TestFuncPrototypeSingleParam(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<refsynopsisdiv><funcsynopsis><funcprototype>` +
		`<funcdef>int <function>f</function></funcdef>` +
		`<paramdef>int <parameter>a</parameter></paramdef>` +
		`</funcprototype></funcsynopsis></refsynopsisdiv></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Ft int") {
		t.Errorf("missing .Ft int in output:\n%s", out)
	}
	if !strings.Contains(out, ".Fo f") || !strings.Contains(out, ".Fc") {
		t.Errorf("expected .Fo f / .Fc wrapping a parameter, got:\n%s", out)
	}
}

// Scenario 5b: a void-only prototype collapses onto a single .Fn line.
func TestFuncPrototypeVoid(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<refsynopsisdiv><funcsynopsis><funcprototype>` +
		`<funcdef>int <function>f</function></funcdef><void/>` +
		`</funcprototype></funcsynopsis></refsynopsisdiv></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Fn f void") {
		t.Errorf("expected .Fn f void, got:\n%s", out)
	}
}

// Scenario 6: an unclosed document still emits the prologue and paragraph,
// exits 2, and (only with -W) logs "document not closed".
func TestMissingCloser(t *testing.T) {
	xml := `<refentry><para>x`
	out, tree := render(t, xml, "")

	if !strings.Contains(out, ".Dt UNKNOWN 1\n") {
		t.Errorf("missing prologue in output:\n%s", out)
	}
	if !strings.Contains(out, "x") {
		t.Errorf("missing paragraph text in output:\n%s", out)
	}
	if tree.ExitCode() != 2 {
		t.Errorf("ExitCode() = %d, want 2", tree.ExitCode())
	}

	var buf bytes.Buffer
	if err := tree.WriteDiagnostics(&buf, true); err != nil {
		t.Fatalf("WriteDiagnostics: %s", err)
	}
	if !strings.Contains(buf.String(), "document not closed") {
		t.Errorf("expected \"document not closed\" diagnostic, got:\n%s", buf.String())
	}
}

// A single-column tgroup collapses to a bulleted list, one .It per <entry>.
func TestTgroupOneColumnBullet(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<informaltable><tgroup cols="1">` +
		`<tbody><row><entry>one</entry></row><row><entry>two</entry></row></tbody>` +
		`</tgroup></informaltable></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Bl -bullet -compact\n") {
		t.Errorf("missing .Bl -bullet -compact in output:\n%s", out)
	}
	if !strings.Contains(out, ".It\none\n") || !strings.Contains(out, ".It\ntwo\n") {
		t.Errorf("missing per-entry .It lines in output:\n%s", out)
	}
	if !strings.Contains(out, ".El\n") {
		t.Errorf("missing .El in output:\n%s", out)
	}
}

// A two-column tgroup collapses to a tagged list: the first entry becomes
// the .It tag, the second its body.
func TestTgroupTwoColumnTag(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<informaltable><tgroup cols="2">` +
		`<tbody><row><entry>key</entry><entry>value</entry></row></tbody>` +
		`</tgroup></informaltable></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Bl -tag -width Ds\n") {
		t.Errorf("missing .Bl -tag -width Ds in output:\n%s", out)
	}
	if !strings.Contains(out, ".It key\n") {
		t.Errorf("expected \".It key\" tag line, got:\n%s", out)
	}
	if !strings.Contains(out, "value") {
		t.Errorf("missing entry body text in output:\n%s", out)
	}
}

// A three-or-more-column tgroup falls back to an .Bl -ohang listing with an
// "It Table Row" placeholder tag per row.
func TestTgroupThreeColumnOhang(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<informaltable><tgroup cols="3">` +
		`<tbody><row><entry>a</entry><entry>b</entry><entry>c</entry></row></tbody>` +
		`</tgroup></informaltable></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Bl -ohang\n") {
		t.Errorf("missing .Bl -ohang in output:\n%s", out)
	}
	if !strings.Contains(out, ".It Table Row\n") {
		t.Errorf("missing \".It Table Row\" in output:\n%s", out)
	}
}

// An itemizedlist collapses to .Bl -bullet with one .It per <listitem>.
func TestItemizedList(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<para><itemizedlist><listitem><para>first</para></listitem>` +
		`<listitem><para>second</para></listitem></itemizedlist></para></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Bl -bullet\n") {
		t.Errorf("missing .Bl -bullet in output:\n%s", out)
	}
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Errorf("missing list item text in output:\n%s", out)
	}
}

// An orderedlist collapses to .Bl -enum instead of -bullet.
func TestOrderedList(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<para><orderedlist><listitem><para>first</para></listitem></orderedlist></para></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Bl -enum\n") {
		t.Errorf("missing .Bl -enum in output:\n%s", out)
	}
}

// <xref linkend="..."/> becomes ".Sx linkend".
func TestXref(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<para>see <xref linkend="OTHER"/></para></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Sx OTHER") {
		t.Errorf("expected .Sx OTHER cross-reference, got:\n%s", out)
	}
}

// <link linkend="..."> prints its own text, followed by the linkend as a
// parenthesized cross-reference (.Pq Sx).
func TestLinkWithLinkend(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<para>see <link linkend="OTHER">the other part</link></para></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Pq Sx OTHER") {
		t.Errorf("expected .Pq Sx OTHER in linked output:\n%s", out)
	}
	if !strings.Contains(out, "the other part") {
		t.Errorf("expected link text preserved, got:\n%s", out)
	}
}

// <ulink url="..."> (an alias for <link>) with a bare href renders as .Lk,
// exercising both alias.go's "ulink" -> KindLink mapping and printLink's
// xlink:href/url fallback path.
func TestUlinkAliasRendersLk(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<para>see <ulink url="http://example.com/">example</ulink></para></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Lk http://example.com/ example") {
		t.Errorf("expected .Lk line for ulink alias, got:\n%s", out)
	}
}

// <olink targetdoc="..."> renders as .Lk, with a targetptr appended as a
// parenthesized qualifier.
func TestOlink(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<para>see <olink targetdoc="other-doc" targetptr="SEC">a section</olink></para></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, `.Lk other-doc "a section"`) {
		t.Errorf("expected .Lk other-doc line, got:\n%s", out)
	}
	if !strings.Contains(out, ".Pq SEC") {
		t.Errorf("expected targetptr qualifier .Pq SEC, got:\n%s", out)
	}
}

// The AUTHORS-placement algorithm: a refentryinfo with an <author> is
// relocated into a synthesized AUTHORS section appended after the last
// standard section, not left where it was declared.
func TestAuthorsPlacementSynthesized(t *testing.T) {
	xml := `<refentry><refentryinfo><author><personname>Jane Doe</personname></author></refentryinfo>` +
		`<refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<refsect1><title>Description</title><para>body</para></refsect1></refentry>`
	out, _ := render(t, xml, "")
	if !strings.Contains(out, ".Sh AUTHORS") {
		t.Errorf("missing synthesized .Sh AUTHORS in output:\n%s", out)
	}
	if !strings.Contains(out, "Jane Doe") {
		t.Errorf("missing relocated author name in output:\n%s", out)
	}
	shAuthors := strings.Index(out, ".Sh AUTHORS")
	shDescription := strings.Index(out, ".Sh DESCRIPTION")
	if shDescription == -1 || shAuthors < shDescription {
		t.Errorf("expected AUTHORS to follow DESCRIPTION, got:\n%s", out)
	}
}

// reorg_refentry's CAVEATS/BUGS anchor: when a CAVEATS section exists, the
// synthesized AUTHORS section is inserted before it rather than appended
// at the very end.
func TestAuthorsPlacementAnchoredBeforeCaveats(t *testing.T) {
	xml := `<refentry><refentryinfo><author><personname>Jane Doe</personname></author></refentryinfo>` +
		`<refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<refsect1><title>Description</title><para>body</para></refsect1>` +
		`<refsect1><title>Caveats</title><para>careful</para></refsect1></refentry>`
	out, _ := render(t, xml, "")
	shAuthors := strings.Index(out, ".Sh AUTHORS")
	shCaveats := strings.Index(out, ".Sh CAVEATS")
	if shAuthors == -1 || shCaveats == -1 {
		t.Fatalf("expected both .Sh AUTHORS and .Sh CAVEATS, got:\n%s", out)
	}
	if shAuthors > shCaveats {
		t.Errorf("expected AUTHORS anchored before CAVEATS, got:\n%s", out)
	}
}

// An existing <refsect1><title>Authors</title> is reused rather than a new
// section being synthesized alongside it.
func TestAuthorsPlacementReusesExistingSection(t *testing.T) {
	xml := `<refentry><refentryinfo><author><personname>Jane Doe</personname></author></refentryinfo>` +
		`<refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<refsect1><title>Authors</title><para>Existing text.</para></refsect1></refentry>`
	out, _ := render(t, xml, "")
	if strings.Count(out, ".Sh AUTHORS") != 1 {
		t.Errorf("expected exactly one .Sh AUTHORS, got:\n%s", out)
	}
	if !strings.Contains(out, "Existing text.") || !strings.Contains(out, "Jane Doe") {
		t.Errorf("expected both existing body and relocated author, got:\n%s", out)
	}
}

// Admonition collapse: <warning>/<caution>/<tip> all become NOTE nodes with
// a synthesized default title, per reorgRecurse, rendered under a .Sy
// heading rather than .Sh/.Ss.
func TestAdmonitionCollapse(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<warning><para>be careful</para></warning></refentry>`
	out, tree := render(t, xml, "")
	if !strings.Contains(out, "Warning") {
		t.Errorf("expected synthesized \"Warning\" title in output:\n%s", out)
	}
	if !strings.Contains(out, "be careful") {
		t.Errorf("missing admonition body text in output:\n%s", out)
	}
	if tree.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0", tree.ExitCode())
	}
}

// Alias resolution: "ulink" (an historical DocBook variant name) resolves to
// the same canonical Kind as <link>, and "code" resolves to <literal>'s
// monospace rendering.
func TestAliasResolution(t *testing.T) {
	if k, ok := ResolveName("ulink"); !ok || k != KindLink {
		t.Errorf("ResolveName(%q) = (%v, %v), want (KindLink, true)", "ulink", k, ok)
	}
	if k, ok := ResolveName("code"); !ok || k != KindLiteral {
		t.Errorf("ResolveName(%q) = (%v, %v), want (KindLiteral, true)", "code", k, ok)
	}
	if k, ok := ResolveName("refsect1"); !ok || k != KindSection {
		t.Errorf("ResolveName(%q) = (%v, %v), want (KindSection, true)", "refsect1", k, ok)
	}
	if _, ok := ResolveName("not-a-real-element"); ok {
		t.Errorf("ResolveName of an unknown element name unexpectedly succeeded")
	}
}

// A DOCTYPE-declared internal-subset entity takes precedence over an
// identically-named HTML5 entity in x/net/html's table (the entity
// resolution order review fix): "times" has a built-in mdoc escape so this
// instead exercises a name the built-in table doesn't cover but HTML5 does
// ("hellip"), overridden by the document's own declaration.
func TestEntityDoctypeOverridesHTML5(t *testing.T) {
	xml := "<!DOCTYPE refentry [<!ENTITY hellip \"...\">]>" +
		`<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<para>wait&hellip;</para></refentry>`
	out, tree := render(t, xml, "")
	if tree.HasErrors() {
		t.Fatalf("unexpected errors: %v", tree.Diagnostics)
	}
	if !strings.Contains(out, "wait...") {
		t.Errorf("expected DOCTYPE-declared entity expansion \"wait...\", got:\n%s", out)
	}
	if strings.Contains(out, `\[u2026]`) {
		t.Errorf("HTML5 fallback shadowed the DOCTYPE declaration, got:\n%s", out)
	}
}

// With no DOCTYPE declaration at all, an HTML-borrowed entity the built-in
// table doesn't cover still resolves via the HTML5 fallback.
func TestEntityHTML5Fallback(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv>` +
		`<para>wait&hellip;</para></refentry>`
	out, tree := render(t, xml, "")
	if tree.HasErrors() {
		t.Fatalf("unexpected errors: %v", tree.Diagnostics)
	}
	if !strings.Contains(out, `\[u2026]`) {
		t.Errorf("expected HTML5 fallback escape for &hellip;, got:\n%s", out)
	}
}

func TestExitCodeClean(t *testing.T) {
	xml := `<refentry><refmeta><refentrytitle>x</refentrytitle><manvolnum>1</manvolnum></refmeta>` +
		`<refnamediv><refname>x</refname><refpurpose>p</refpurpose></refnamediv></refentry>`
	_, tree := render(t, xml, "")
	if tree.HasErrors() || tree.HasWarnings() {
		t.Errorf("unexpected diagnostics: %v", tree.Diagnostics)
	}
	if tree.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0", tree.ExitCode())
	}
}
