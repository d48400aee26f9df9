package docbook

// aliasTable maps non-canonical DocBook element names (including historical
// and structural variants) onto the canonical Kind they behave as. Ported
// from original_source/parse.c's aliases[] table. Two pseudo-kinds appear
// as targets here and nowhere else:
//
//   - kindIgnore: the element and its attributes are dropped, but its
//     children are spliced into its parent (used for elements that are
//     purely bibliographic or presentational noise in a man page).
//   - kindDelete: the element and its entire subtree are dropped.
var aliasTable = map[string]Kind{
	"acronym":      kindIgnore,
	"affiliation":  kindIgnore,
	"anchor":       kindDelete,
	"application":  KindCommand,
	"article":      KindSection,
	"articleinfo":  KindBookinfo,
	"book":         KindSection,
	"caption":      kindIgnore,
	"chapter":      KindSection,
	"!doctype":     KindDoctype,
	"code":         KindLiteral,
	"computeroutput": KindLiteral,
	"figure":       kindIgnore,
	"firstname":    KindPersonname,
	"glossary":     KindVariablelist,
	"glossdef":     kindIgnore,
	"glossdiv":     kindIgnore,
	"glossentry":   KindVarlistentry,
	"glosslist":    KindVariablelist,
	"holder":       kindIgnore,
	"imageobject":  kindIgnore,
	"indexterm":    kindDelete,
	"informaltable": KindTable,
	"jobtitle":     kindIgnore,
	"keycap":       KindKeysym,
	"keycode":      kindIgnore,
	"keycombo":     kindIgnore,
	"mediaobject":  KindBlockquote,
	"orgdiv":       kindIgnore,
	"orgname":      kindIgnore,
	"othercredit":  KindAuthor,
	"othername":    KindPersonname,
	"part":         KindSection,
	"phrase":       kindIgnore,
	"primary":      kindDelete,
	"property":     KindParameter,
	"reference":    KindSection,
	"refsect1":     KindSection,
	"refsect2":     KindSection,
	"refsect3":     KindSection,
	"refsection":   KindSection,
	"releaseinfo":  kindIgnore,
	"returnvalue":  kindIgnore,
	"secondary":    kindDelete,
	"sect1":        KindSection,
	"sect2":        KindSection,
	"sect3":        KindSection,
	"sect4":        KindSection,
	"sgmltag":      KindMarkup,
	"simpara":      KindPara,
	"structfield":  KindParameter,
	"structname":   KindType,
	"surname":      KindPersonname,
	"symbol":       KindConstant,
	"tag":          KindMarkup,
	"trademark":    kindIgnore,
	"ulink":        KindLink,
	"userinput":    KindLiteral,
}

// ResolveName resolves a raw element name (as it appeared in the source,
// namespace prefix included) to a Kind. It first tries the primary table,
// then the alias table, and returns (KindUnknown, false) for anything it
// does not recognize at all; the caller distinguishes KindUnknown from the
// kindIgnore/kindDelete sentinels to decide whether to keep, splice, or drop
// the element's subtree.
func ResolveName(name string) (Kind, bool) {
	if k, ok := parsePrimaryKind(name); ok {
		return k, true
	}
	if k, ok := aliasTable[name]; ok {
		return k, true
	}
	return KindUnknown, false
}
