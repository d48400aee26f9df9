package docbook

import (
	"io"
	"strconv"
	"strings"
)

// Format renders tree as mdoc(7) source to w, grounded on
// original_source/docbook2mdoc.c's ptree_print_mdoc: it emits the
// synthesized prologue (.Dd/.Dt/.Os, and a NAME section if a title
// survived reorganization) and then walks the whole tree.
func Format(tree *Tree, w io.Writer) error {
	f := NewFormatter(w)
	f.level, f.nofill = 0, 0
	f.lineState = lineNew
	f.paraState = paraHave
	f.printPrologue(tree.Root)
	f.print(tree.Root)
	if f.lineState != lineNew {
		f.w.WriteByte('\n')
	}
	return f.Flush()
}

// printPrologue consumes the DATE/REFENTRYTITLE/MANVOLNUM (and, if present,
// a leftover TITLE) reorgRoot synthesized at the front of the root's child
// list, emitting ".Dd"/".Dt"/".Os" and an optional NAME section. Grounded
// on pnode_printprologue.
func (f *Formatter) printPrologue(root *Node) {
	if root == nil || len(root.Children) == 0 {
		return
	}
	date := root.Children[0]
	date.Unlink()
	f.macroNodeline("Dd", date, 0)

	f.macroOpen("Dt")
	name := root.Children[0]
	name.Unlink()
	f.macroAddnode(name, argSpace|argSingle|argUpper)
	vol := root.Children[0]
	vol.Unlink()
	f.macroAddnode(vol, argSpace|argSingle)
	f.macroClose()

	f.macroLine("Os")

	if len(root.Children) > 0 && root.Children[0].Kind == KindTitle {
		title := root.Children[0]
		title.Unlink()
		f.macroLine("Sh NAME")
		f.macroNodeline("Nm", name, argSingle)
		f.macroNodeline("Nd", title, 0)
	}
	f.paraState = paraHave
}

// print is the recursive per-node dispatcher, grounded on pnode_print.
func (f *Formatter) print(n *Node) {
	if n == nil {
		return
	}

	if n.HasFlag(FlagLine) && (f.nofill > 0 || f.flags&(fmtArg|fmtImpl) == 0) {
		f.macroClose()
	}

	wasImpl := f.flags&fmtImpl != 0
	if n.HasFlag(FlagSpc) {
		f.flags &^= fmtNoSpc
	} else {
		f.flags |= fmtNoSpc
	}

	switch n.Kind {
	case KindArg:
		f.printArgOrGroup(n, false)
	case KindAuthor:
		f.printAuthor(n)
	case KindAuthorgroup:
		f.macroLine("An -split")
	case KindBlockquote:
		f.paraState = paraHave
		f.macroLine("Bd -ragged -offset indent")
		f.paraState = paraHave
	case KindCiterefentry:
		f.printCiterefentry(n)
	case KindCitetitle:
		f.macroOpen("%T")
	case KindCommand:
		f.macroOpen("Nm")
	case KindConstant:
		f.macroOpen("Dv")
	case KindCopyright:
		f.printText("Copyright", argSpace)
		f.w.WriteString(` \(co`)
	case KindEditor:
		f.printText("editor:", argSpace)
		f.printAuthor(n)
	case KindEmail:
		if wasImpl {
			f.macroOpen("Ao Mt")
		} else {
			f.macroOpen("Aq Mt")
			f.flags |= fmtImpl
		}
	case KindEmphasis, KindFirstterm, KindGlossterm:
		if len(n.Children) > 0 && n.Children[0].Kind.Class() < ClassLine {
			f.macroOpen("Em")
		}
		if n.Kind == KindGlossterm {
			f.paraState = paraHave
		}
	case KindEnvar:
		f.macroOpen("Ev")
	case KindErrorname:
		f.macroOpen("Er")
	case KindFilename:
		f.macroOpen("Pa")
	case KindFootnote:
		f.macroLine("Bo")
		f.paraState = paraHave
	case KindFunction:
		f.macroOpen("Fn")
	case KindFuncprototype:
		f.printFuncprototype(n)
	case KindFuncsynopsisinfo:
		f.macroOpen("Fd")
	case KindImagedata:
		f.printImagedata(n)
	case KindInformalequation:
		f.paraState = paraHave
		f.macroLine("Bd -ragged -offset indent")
		f.paraState = paraHave
		f.macroLine("EQ")
	case KindInlineequation:
		f.macroLine("EQ")
	case KindItemizedlist, KindOrderedlist:
		f.printList(n)
	case KindGroup:
		f.printArgOrGroup(n, true)
	case KindKeysym, KindProductname:
		f.macroOpen("Sy")
	case KindLink:
		f.printLink(n)
	case KindLiteral:
		switch {
		case n.Parent != nil && n.Parent.Kind == KindQuote:
			f.macroOpen("Li")
		case wasImpl:
			f.macroOpen("So Li")
		default:
			f.macroOpen("Ql")
			f.flags |= fmtImpl
		}
	case KindLiterallayout:
		f.macroClose()
		f.paraState = paraHave
		val, _, _ := n.GetAttr(AttrClass)
		style := "-unfilled"
		if val == AttrValMonospaced {
			style = "-literal"
		}
		f.macroArgline("Bd", style)
		f.paraState = paraHave
	case KindMarkup:
		f.macroOpen("Ic")
	case KindMMLMfenced:
		f.printMathFenced(n)
	case KindMMLMrow, KindMMLMi, KindMMLMn, KindMMLMo:
		if len(n.Children) > 0 {
			f.w.WriteString(" { ")
		}
	case KindMMLMfrac, KindMMLMsub, KindMMLMsup:
		f.printMathInfix(n)
	case KindOlink:
		f.printOlink(n)
	case KindOption:
		if len(n.Children) > 0 && n.Children[0].Kind.Class() < ClassLine {
			f.macroOpen("Fl")
		}
	case KindPara:
		if f.paraState == paraMid {
			f.paraState = paraWant
		}
	case KindParamdef, KindParameter:
		f.macroOpen("Fa")
		f.macroAddnode(n, argSpace|argSingle)
		n.UnlinkChildren()
	case KindQuote:
		switch {
		case len(n.Children) == 1 && n.Children[0].Kind == KindFilename:
			if n.HasFlag(FlagSpc) {
				n.Children[0].Flags |= FlagSpc
			}
		case wasImpl:
			f.macroOpen("Do")
		default:
			f.macroOpen("Dq")
			f.flags |= fmtImpl
		}
	case KindProgramlisting, KindScreen, KindSynopsis:
		f.paraState = paraHave
		f.macroLine("Bd -literal")
		f.paraState = paraHave
	case KindSystemitem:
		f.printSystemitem(n)
	case KindRefname:
		f.macroOpen("Nm")
	case KindRefnamediv:
		f.printRefnamediv(n)
	case KindRefpurpose:
		f.macroOpen("Nd")
	case KindRefsynopsisdiv:
		f.printRefsynopsisdiv(n)
	case KindSection, KindSimplesect, KindAppendix, KindNote:
		f.printSection(n)
	case KindReplaceable:
		f.macroOpen("Ar")
	case KindSbr:
		if f.paraState == paraMid {
			f.macroLine("br")
		}
	case KindSubscript:
		if f.lineState == lineMacro {
			f.macroAddarg("_", 0)
		} else {
			f.printText("_", 0)
		}
		if len(n.Children) > 0 {
			n.Children[0].Flags &^= FlagLine | FlagSpc
		}
	case KindSuperscript:
		f.w.WriteString(`\(ha`)
		if len(n.Children) > 0 {
			n.Children[0].Flags &^= FlagLine | FlagSpc
		}
	case KindText, KindEscape:
		f.printLeafText(n)
	case KindTgroup:
		f.printTgroup(n)
	case KindTitle, KindSubtitle:
		if f.paraState == paraMid {
			f.paraState = paraWant
		}
		f.macroNodeline("Sy", n, 0)
		n.UnlinkChildren()
	case KindType:
		f.macroOpen("Vt")
	case KindVariablelist:
		f.printVariablelist(n)
	case KindVarname:
		f.macroOpen("Va")
	case KindVoid:
		f.printText("void", argSpace)
	case KindXref:
		f.printXref(n)
	}

	if n.Kind.Class() == ClassNofill {
		f.nofill++
	}

	children := append([]*Node(nil), n.Children...)
	for _, nc := range children {
		f.print(nc)
	}

	switch n.Kind {
	case KindEmail:
		if wasImpl {
			f.flags &^= fmtNoSpc
			f.macroOpen("Ac")
		} else {
			f.flags &^= fmtImpl
		}
	case KindEscape, KindTerm, KindText:
		return
	case KindFootnote:
		f.paraState = paraHave
		f.macroLine("Bc")
	case KindGlossterm:
		f.paraState = paraHave
	case KindInformalequation:
		f.macroLine("EN")
		f.macroLine("Ed")
	case KindInlineequation:
		f.macroLine("EN")
	case KindLiteral:
		switch {
		case n.Parent != nil && n.Parent.Kind == KindQuote:
		case wasImpl:
			f.flags &^= fmtNoSpc
			f.macroOpen("Sc")
		default:
			f.flags &^= fmtImpl
		}
	case KindMember:
		f.printMemberClose(n)
	case KindMMLMrow, KindMMLMi, KindMMLMn, KindMMLMo:
		if len(n.Children) > 0 {
			f.w.WriteString(" } ")
		}
	case KindPara:
		if f.paraState == paraMid {
			f.paraState = paraWant
		}
	case KindQuote:
		switch {
		case len(n.Children) == 1 && n.Children[0].Kind == KindFilename:
		case wasImpl:
			f.flags &^= fmtNoSpc
			f.macroOpen("Dc")
		default:
			f.flags &^= fmtImpl
		}
	case KindSection, KindSimplesect, KindAppendix, KindNote:
		if n.Parent != nil {
			f.level--
		}
	case KindBlockquote, KindLiterallayout, KindProgramlisting, KindScreen, KindSynopsis:
		f.paraState = paraHave
		f.macroLine("Ed")
		f.paraState = paraWant
	case KindTitle, KindSubtitle:
		f.paraState = paraWant
	case KindYear:
		f.printYearJoin(n)
	}
	f.flags &^= fmtArg
	if n.Kind.Class() == ClassNofill {
		f.nofill--
	}
}

// printLeafText prints a NODE_TEXT/NODE_ESCAPE node, grounded on
// pnode_printtext: it handles the ".Pf"/".Ns" glue logic for text that
// abuts a macro without intervening whitespace, and strips a leading '-'
// from an <option> child (mdoc's .Fl never wants one).
func (f *Formatter) printLeafText(n *Node) {
	f.paraCheck()
	cp := n.Text
	acceptArg := f.flags&fmtArg != 0
	if f.lineState == lineMacro && !acceptArg && !n.HasFlag(FlagSpc) {
		for len(cp) > 0 && strings.IndexByte("!),.:;?]", cp[0]) >= 0 {
			f.w.WriteByte(' ')
			f.w.WriteByte(cp[0])
			cp = cp[1:]
		}
		if cp == "" {
			return
		}
		if cp[0] == ' ' || cp[0] == '\t' {
			cp = strings.TrimLeft(cp, " \t")
			n.Flags |= FlagSpc
		} else {
			f.flags &^= fmtNoSpc
			f.flags |= fmtChild
			f.macroOpen("Ns")
			f.flags &^= fmtArg
			f.flags |= fmtChild
			acceptArg = true
		}
	}
	if f.lineState == lineMacro && f.nofill == 0 && !acceptArg && f.flags&fmtImpl == 0 {
		f.macroClose()
	}

	parent := n.Parent
	if parent != nil {
		idx := indexOfChild(parent, n)
		if idx >= 0 && idx+1 < len(parent.Children) {
			next := parent.Children[idx+1]
			if (f.nofill > 0 || f.lineState != lineMacro) && !next.HasFlag(FlagSpc) {
				switch next.Kind.Class() {
				case ClassLine, ClassEncl:
					f.macroOpen("Pf")
					acceptArg = true
					f.flags |= fmtChild
					next.Flags |= FlagSpc
				}
			}
		}
	}

	switch f.lineState {
	case lineNew:
	case lineText:
		if n.HasFlag(FlagSpc) {
			if n.HasFlag(FlagLine) && n.Kind.Class() == ClassText {
				f.macroClose()
			} else {
				f.w.WriteByte(' ')
			}
		}
	case lineMacro:
		if !acceptArg {
			if f.nofill > 0 {
				f.flags &^= fmtNoSpc
				f.flags |= fmtChild
				f.macroOpen("No ")
				f.flags &^= fmtArg
				f.flags |= fmtChild
			} else {
				f.macroClose()
			}
		} else if n.HasFlag(FlagSpc) || f.flags&fmtArg == 0 {
			f.w.WriteByte(' ')
		} else if parent == nil {
			f.w.WriteByte(' ')
		} else {
			idx := indexOfChild(parent, n)
			if idx <= 0 || parent.Children[idx-1].Kind.Class() != ClassText {
				f.w.WriteByte(' ')
			}
		}
	}

	if n.Kind == KindEscape {
		f.w.WriteString(n.Text)
		if f.lineState == lineNew {
			f.lineState = lineText
		}
		return
	}

	if parent != nil && parent.Kind == KindOption && strings.HasPrefix(cp, "-") {
		cp = cp[1:]
	}

	if f.lineState == lineMacro {
		f.macroAddarg(cp, 0)
	} else {
		f.printText(cp, 0)
	}
}

func (f *Formatter) printImagedata(n *Node) {
	cp := n.GetAttrRaw(AttrFileref, "")
	if cp == "" {
		cp = n.GetAttrRaw(AttrEntityref, "")
	}
	if cp != "" {
		f.printText("[image:", argSpace)
		f.printText(cp, argSpace)
		f.printText("]", 0)
	} else {
		f.printText("[image]", argSpace)
	}
}

func (f *Formatter) printRefnamediv(n *Node) {
	f.paraState = paraHave
	f.macroLine("Sh NAME")
	f.paraState = paraHave
	comma := false
	for _, nc := range append([]*Node(nil), n.Children...) {
		if nc.Kind != KindRefname {
			continue
		}
		if comma {
			f.macroAddarg(",", argSpace)
		}
		f.macroOpen("Nm")
		f.macroAddnode(nc, argSpace)
		nc.Unlink()
		comma = true
	}
	f.macroClose()
}

func (f *Formatter) printRefsynopsisdiv(n *Node) {
	for _, nc := range append([]*Node(nil), n.Children...) {
		if nc.Kind == KindTitle {
			nc.Unlink()
		}
	}
	f.paraState = paraHave
	f.macroLine("Sh SYNOPSIS")
	f.paraState = paraHave
}

func (f *Formatter) printSection(n *Node) {
	if n.Parent == nil {
		return
	}
	f.level++
	level := f.level
	flags := argSpace
	switch n.Kind {
	case KindSection, KindAppendix:
		if level == 1 {
			flags |= argUpper
		}
	case KindSimplesect:
		if level < 2 {
			level = 2
		}
	case KindNote:
		if level < 3 {
			level = 3
		}
	}

	var title *Node
	for _, nc := range n.Children {
		if nc.Kind == KindTitle {
			title = nc
			break
		}
	}

	switch level {
	case 1:
		f.macroClose()
		f.paraState = paraHave
		f.macroOpen("Sh")
	case 2:
		f.macroClose()
		f.paraState = paraHave
		f.macroOpen("Ss")
	default:
		if f.paraState == paraMid {
			f.paraState = paraWant
		}
		f.macroOpen("Sy")
	}
	f.macroAddnode(title, flags)
	f.macroClose()

	if title != nil {
		if level == 1 && len(title.Children) > 0 && title.Children[0].Kind == KindText &&
			strings.EqualFold(title.Children[0].Text, "AUTHORS") {
			f.macroLine("An -nosplit")
		}
		title.Unlink()
	}
	if level > 2 {
		f.paraState = paraWant
	} else {
		f.paraState = paraHave
	}
}

func (f *Formatter) printCiterefentry(n *Node) {
	var title, manvol *Node
	for _, nc := range n.Children {
		switch nc.Kind {
		case KindManvolnum:
			manvol = nc
		case KindRefentrytitle:
			title = nc
		}
	}
	f.macroOpen("Xr")
	if title == nil {
		f.macroAddarg("unknown", argSpace)
	} else {
		f.macroAddnode(title, argSpace|argSingle)
	}
	if manvol == nil {
		f.macroAddarg("1", argSpace)
	} else {
		f.macroAddnode(manvol, argSpace|argSingle)
	}
	n.UnlinkChildren()
}

func (f *Formatter) printMathFenced(n *Node) {
	f.w.WriteString("left " + n.GetAttrRaw(AttrOpen, "(") + " ")
	children := n.Children
	if len(children) > 0 {
		f.print(children[0])
	}
	for _, nc := range children[minInt(1, len(children)):] {
		f.w.WriteByte(',')
		f.print(nc)
	}
	f.w.WriteString("right " + n.GetAttrRaw(AttrClose, ")") + " ")
	n.UnlinkChildren()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (f *Formatter) printMathInfix(n *Node) {
	children := n.Children
	if len(children) == 0 {
		return
	}
	f.print(children[0])
	switch n.Kind {
	case KindMMLMsup:
		f.w.WriteString(" sup ")
	case KindMMLMfrac:
		f.w.WriteString(" over ")
	case KindMMLMsub:
		f.w.WriteString(" sub ")
	}
	if len(children) > 1 {
		f.print(children[1])
	}
	n.UnlinkChildren()
}

func (f *Formatter) printFuncprototype(n *Node) {
	var fdef *Node
	for _, nc := range append([]*Node(nil), n.Children...) {
		switch nc.Kind {
		case KindFuncdef:
			if fdef == nil {
				fdef = nc
				nc.Unlink()
			}
		case KindVoid:
			nc.Unlink()
		}
	}

	var nc *Node
	if len(n.Children) > 0 {
		nc = n.Children[0]
	}
	if fdef != nil {
		if len(fdef.Children) > 0 && fdef.Children[0].Kind == KindText {
			ftype := fdef.Children[0]
			f.macroArgline("Ft", ftype.Text)
			ftype.Unlink()
		}
		if nc == nil {
			f.macroOpen("Fn")
			f.macroAddnode(fdef, argSpace|argSingle)
			f.macroAddarg("void", argSpace)
			f.macroClose()
		} else {
			f.macroNodeline("Fo", fdef, argSingle)
		}
	} else if nc == nil {
		f.macroLine("Fn UNKNOWN void")
	} else {
		f.macroLine("Fo UNKNOWN")
	}

	if nc == nil {
		return
	}
	for len(n.Children) > 0 {
		nc = n.Children[0]
		if fps := nc.TakeFirst(KindFuncparams); fps != nil {
			f.macroOpen(`Fa "`)
			f.macroAddnode(nc, argQuoted)
			f.macroAddarg("(", argQuoted)
			f.macroAddnode(fps, argQuoted)
			f.macroAddarg(")", argQuoted)
			f.w.WriteByte('"')
			f.macroClose()
		} else {
			f.macroNodeline("Fa", nc, argSingle)
		}
		nc.Unlink()
	}
	f.macroLine("Fc")
}

// printArgOrGroup implements both <arg> (isGroup=false, grounded on
// pnode_printarg) and <group> (isGroup=true, grounded on pnode_printgroup):
// the two share the optional/repeat attribute handling and differ in which
// enclosure macros they use, whether a "|" separates children, whether a
// text child gets an .Ar (only for <arg>), and whether "..." goes inside or
// after the enclosure.
func (f *Formatter) printArgOrGroup(n *Node, isGroup bool) {
	isOp, isRep := true, false
	for _, a := range n.Attrs {
		if a.Key == AttrChoice && (a.Val == AttrValPlain || a.Val == AttrValReq) {
			isOp = false
		} else if a.Key == AttrRep && a.Val == AttrValRepeat {
			isRep = true
		}
	}
	wasImpl := false
	if isGroup {
		switch {
		case isOp:
			if f.flags&fmtImpl != 0 {
				wasImpl = true
				f.macroOpen("Oo")
			} else {
				f.macroOpen("Op")
				f.flags |= fmtImpl
			}
		case isRep:
			if f.flags&fmtImpl != 0 {
				wasImpl = true
				f.macroOpen("Bro")
			} else {
				f.macroOpen("Brq")
				f.flags |= fmtImpl
			}
		}
		bar := false
		for _, nc := range append([]*Node(nil), n.Children...) {
			if bar && f.lineState == lineMacro {
				f.macroAddarg("|", argSpace)
			}
			f.print(nc)
			bar = true
		}
		switch {
		case isOp:
			if wasImpl {
				f.macroOpen("Oc")
			} else {
				f.flags &^= fmtImpl
			}
		case isRep:
			if wasImpl {
				f.macroOpen("Brc")
			} else {
				f.flags &^= fmtImpl
			}
		}
		if isRep && f.lineState == lineMacro {
			f.macroAddarg("...", argSpace)
		}
		n.UnlinkChildren()
		return
	}

	if isOp {
		if f.flags&fmtImpl != 0 {
			wasImpl = true
			f.macroOpen("Oo")
		} else {
			f.macroOpen("Op")
			f.flags |= fmtImpl
		}
	}
	for _, nc := range append([]*Node(nil), n.Children...) {
		if nc.Kind == KindText {
			f.macroOpen("Ar")
		}
		f.print(nc)
	}
	if isRep && f.lineState == lineMacro {
		f.macroAddarg("...", argSpace)
	}
	if isOp {
		if wasImpl {
			f.macroOpen("Oc")
		} else {
			f.flags &^= fmtImpl
		}
	}
	n.UnlinkChildren()
}

func (f *Formatter) printSystemitem(n *Node) {
	val, _, _ := n.GetAttr(AttrClass)
	switch val {
	case AttrValIPAddress:
	case AttrValSystemname:
		f.macroOpen("Pa")
	default:
		f.macroOpen("Sy")
	}
}

func (f *Formatter) printAuthor(n *Node) {
	haveContrib, haveName := false, false
	for _, nc := range append([]*Node(nil), n.Children...) {
		switch nc.Kind {
		case KindContrib:
			if haveContrib {
				f.printText(",", 0)
			}
			f.printTextNode(nc)
			nc.Unlink()
			haveContrib = true
		case KindPersonname:
			haveName = true
		}
	}
	if len(n.Children) == 0 {
		return
	}
	if haveContrib {
		f.printText(":", 0)
	}

	f.macroOpen("An")
	for _, nc := range append([]*Node(nil), n.Children...) {
		if nc.Kind == KindPersonname || !haveName {
			f.macroAddnode(nc, argSpace)
			nc.Unlink()
		}
	}

	if email := n.FindFirst(KindEmail); email != nil {
		f.flags |= fmtChild
		f.macroOpen("Aq Mt")
		f.macroAddnode(email, argSpace)
		email.Unlink()
	}

	if len(n.Children) > 0 {
		f.macroAddarg(",", argSpace)
		f.macroClose()
	}
}

func (f *Formatter) printXref(n *Node) {
	linkend := n.GetAttrRaw(AttrLinkend, "")
	if linkend != "" {
		f.macroOpen("Sx")
		f.macroAddarg(linkend, argSpace)
	}
}

func (f *Formatter) printLink(n *Node) {
	uri := n.GetAttrRaw(AttrLinkend, "")
	if uri != "" {
		var text string
		haveText := false
		if len(n.Children) > 0 {
			for _, nc := range n.Children {
				f.print(nc)
			}
			text, haveText = "", true
		} else if endterm := n.GetAttrRaw(AttrEndterm, ""); endterm != "" {
			text, haveText = endterm, true
			if f.lineState == lineMacro && f.flags&fmtArg != 0 {
				f.macroAddarg(text, argSpace)
			} else {
				f.printText(text, argSpace)
			}
		}
		if haveText {
			if f.flags&fmtImpl != 0 {
				f.macroOpen("Po")
			} else {
				f.macroOpen("Pq")
				f.flags |= fmtChild
			}
		}
		f.macroOpen("Sx")
		f.macroAddarg(uri, argSpace)
		if haveText && f.flags&fmtImpl != 0 {
			f.macroOpen("Pc")
		}
		n.UnlinkChildren()
		return
	}
	uri = n.GetAttrRaw(AttrXlinkHref, "")
	if uri == "" {
		uri = n.GetAttrRaw(AttrURL, "")
	}
	if uri != "" {
		f.macroOpen("Lk")
		f.macroAddarg(uri, argSpace|argSingle)
		if len(n.Children) > 0 {
			f.macroAddnode(n, argSpace|argSingle)
		}
		n.UnlinkChildren()
	}
}

func (f *Formatter) printOlink(n *Node) {
	uri := n.GetAttrRaw(AttrTargetdoc, "")
	ptr := n.GetAttrRaw(AttrTargetptr, "")
	local := n.GetAttrRaw(AttrLocalinfo, "")
	if uri == "" {
		uri, ptr = ptr, ""
	}
	if uri == "" {
		uri, local = local, ""
	}
	if uri == "" {
		return
	}
	f.macroOpen("Lk")
	f.macroAddarg(uri, argSpace|argSingle)
	f.macroAddnode(n, argSpace|argSingle)
	if ptr != "" || local != "" {
		f.macroClose()
		f.macroOpen("Pq")
		if ptr != "" {
			f.macroAddarg(ptr, argSpace)
		}
		if local != "" {
			f.macroAddarg(local, argSpace)
		}
	}
	n.UnlinkChildren()
}

func (f *Formatter) printVarlistentry(n *Node) {
	f.macroOpen("It")
	f.paraState = paraHave
	f.flags |= fmtImpl
	comma := argFlags(-1)
	haveComma := false
	for _, nc := range append([]*Node(nil), n.Children...) {
		if nc.Kind != KindTerm && nc.Kind != KindGlossterm {
			continue
		}
		if haveComma {
			switch f.lineState {
			case lineNew:
			case lineText:
				f.printText(",", 0)
			case lineMacro:
				f.macroAddarg(",", comma)
			}
		}
		f.paraState = paraHave
		comma = argSpace
		if len(nc.Children) == 0 || nc.Children[0].Kind.Class() == ClassText {
			comma = 0
		}
		haveComma = true
		f.print(nc)
		nc.Unlink()
	}
	f.macroClose()
	f.paraState = paraHave
	for len(n.Children) > 0 {
		nc := n.Children[0]
		f.print(nc)
		nc.Unlink()
	}
	f.macroClose()
	f.paraState = paraHave
}

func (f *Formatter) printTitle(n *Node) {
	for _, nc := range append([]*Node(nil), n.Children...) {
		if nc.Kind == KindTitle {
			if f.paraState == paraMid {
				f.paraState = paraWant
			}
			f.macroNodeline("Sy", nc, 0)
			nc.Unlink()
		}
	}
}

func (f *Formatter) printRow(n *Node) {
	f.macroLine("Bl -dash -compact")
	for _, nc := range n.Children {
		f.macroLine("It")
		f.print(nc)
	}
	f.macroLine("El")
	n.Unlink()
}

func (f *Formatter) printTgroup1(n *Node) {
	f.macroLine("Bl -bullet -compact")
	for {
		nc := n.FindFirst(KindEntry)
		if nc == nil {
			break
		}
		f.macroLine("It")
		f.paraState = paraHave
		f.print(nc)
		f.paraState = paraHave
		nc.Unlink()
	}
	f.macroLine("El")
	n.UnlinkChildren()
}

func (f *Formatter) printTgroup2(n *Node) {
	f.paraState = paraHave
	f.macroLine("Bl -tag -width Ds")
	for {
		nr := n.FindFirst(KindRow)
		if nr == nil {
			break
		}
		ne := n.FindFirst(KindEntry)
		if ne == nil {
			break
		}
		f.macroOpen("It")
		f.flags |= fmtImpl
		f.paraState = paraHave
		f.print(ne)
		f.macroClose()
		ne.Unlink()
		f.paraState = paraHave
		f.print(nr)
		f.paraState = paraHave
		nr.Unlink()
	}
	f.macroLine("El")
	f.paraState = paraWant
	n.UnlinkChildren()
}

func (f *Formatter) printTgroup(n *Node) {
	switch cols, _ := strconv.Atoi(n.GetAttrRaw(AttrCols, "0")); cols {
	case 1:
		f.printTgroup1(n)
		return
	case 2:
		f.printTgroup2(n)
		return
	}

	f.paraState = paraHave
	f.macroLine("Bl -ohang")
	for {
		nc := n.FindFirst(KindRow)
		if nc == nil {
			break
		}
		f.macroLine("It Table Row")
		f.printRow(nc)
	}
	f.macroLine("El")
	f.paraState = paraWant
	n.UnlinkChildren()
}

func (f *Formatter) printList(n *Node) {
	f.printTitle(n)
	f.paraState = paraHave
	style := "-bullet"
	if n.Kind == KindOrderedlist {
		style = "-enum"
	}
	f.macroArgline("Bl", style)
	for _, nc := range n.Children {
		f.macroLine("It")
		f.paraState = paraHave
		f.print(nc)
		f.paraState = paraHave
	}
	f.macroLine("El")
	f.paraState = paraWant
	n.UnlinkChildren()
}

func (f *Formatter) printVariablelist(n *Node) {
	f.printTitle(n)
	f.paraState = paraHave
	f.macroLine("Bl -tag -width Ds")
	for _, nc := range n.Children {
		if nc.Kind == KindVarlistentry {
			f.printVarlistentry(nc)
		} else {
			f.macroNodeline("It", nc, 0)
		}
	}
	f.macroLine("El")
	f.paraState = paraWant
	n.UnlinkChildren()
}

func (f *Formatter) printMemberClose(n *Node) {
	parent := n.Parent
	var next *Node
	if parent != nil {
		idx := indexOfChild(parent, n)
		if idx+1 < len(parent.Children) {
			next = parent.Children[idx+1]
		}
	}
	if next != nil && next.Kind != KindMember {
		next = nil
	}
	switch f.lineState {
	case lineText:
		if next != nil {
			f.printText(",", 0)
		}
	case lineMacro:
		if next != nil {
			f.macroAddarg(",", argSpace)
		}
		f.macroClose()
	case lineNew:
	}
}

func (f *Formatter) printYearJoin(n *Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	idx := indexOfChild(parent, n)
	if idx+1 >= len(parent.Children) {
		return
	}
	next := parent.Children[idx+1]
	if next.Kind != KindYear || f.lineState != lineText {
		return
	}
	f.printText(",", 0)
	next.Flags |= FlagSpc
	if len(next.Children) > 0 {
		next.Children[0].Flags |= FlagSpc
	}
}
