package docbook

import "strings"

// Reorganize transforms a freshly parsed Tree into mdoc-ready shape:
// synthesizing the DATE/REFENTRYTITLE/MANVOLNUM prologue, relocating
// AUTHORS-relevant bibliographic data, collapsing admonitions into NOTE/
// SIMPLESECT, giving untitled sections a default title, and trimming the
// "()" suffix DocBook <function> text conventionally carries. Grounded on
// original_source/reorg.c's ptree_reorg.
func Reorganize(tree *Tree, section string) {
	reorgRoot(tree.Root, section)
	reorgRecurse(tree.Root)
}

// reorgRoot synthesizes the mdoc prologue (.Dd/.Dt-equivalent data),
// grounded on reorg_root. It runs once, on the tree root, regardless of the
// root's own kind.
func reorgRoot(root *Node, section string) {
	if root == nil {
		return
	}

	date := root.TakeFirst(KindPubdate)
	if date == nil {
		date = root.TakeFirst(KindDate)
	}
	if date == nil {
		date = NewNode(nil, KindDate)
		NewTextNode(date, "$Mdocdate$")
	}
	date.Kind = KindDate

	var name, vol *Node
	if meta := root.FindFirst(KindRefmeta); meta != nil {
		name = meta.TakeFirst(KindRefentrytitle)
		vol = meta.TakeFirst(KindManvolnum)
	}
	if name == nil {
		name = NewNode(nil, KindRefentrytitle)
		NewTextNode(name, root.GetAttrRaw(AttrID, "UNKNOWN"))
	}
	if vol == nil || section != "" {
		vol = NewNode(nil, KindManvolnum)
		sec := section
		if sec == "" {
			sec = "1"
		}
		NewTextNode(vol, sec)
	}

	// Insert prologue information at the beginning, in reverse order of
	// final position (each InsertChildAt(0, ...) pushes the previous
	// head back).
	if root.FindFirst(KindRefnamediv) == nil {
		info := root.FindFirst(KindBookinfo)
		if info == nil {
			info = root.FindFirst(KindRefentryinfo)
		}
		if info != nil {
			if abstract := info.TakeFirst(KindAbstract); abstract != nil {
				root.InsertChildAt(0, abstract)
			}
			if title := info.TakeFirst(KindTitle); title != nil {
				root.InsertChildAt(0, title)
			}
		}
	}
	root.InsertChildAt(0, vol)
	root.InsertChildAt(0, name)
	root.InsertChildAt(0, date)
}

// standardSections precede AUTHORS by convention; their presence resets the
// "later" insertion anchor (reorg_refentry).
var standardSections = map[string]bool{
	"NAME":          true,
	"SYNOPSIS":      true,
	"DESCRIPTION":   true,
	"RETURN VALUES": true,
	"ENVIRONMENT":   true,
	"FILES":         true,
	"EXIT STATUS":   true,
	"EXAMPLES":      true,
	"DIAGNOSTICS":   true,
	"ERRORS":        true,
	"SEE ALSO":      true,
	"STANDARDS":     true,
	"HISTORY":       true,
}

// reorgRefentry relocates bibliographic info (BOOKINFO/REFENTRYINFO/INFO/
// REFMETA, whatever is left after reorgRoot plucked the prologue fields out
// of them) into an AUTHORS section, grounded on reorg_refentry.
func reorgRefentry(n *Node) {
	info := takeNonEmpty(n, KindBookinfo)
	var meta *Node
	if info == nil {
		info = takeNonEmpty(n, KindRefentryinfo)
		if info == nil {
			info = n.TakeFirst(KindInfo)
		}
		meta = takeNonEmpty(n, KindRefmeta)
	}
	if info == nil && meta == nil {
		return
	}

	var match, later *Node
	for _, nc := range n.Children {
		switch nc.Kind {
		case KindRefentry, KindRefnamediv, KindRefsynopsisdiv:
			later = nil
			continue
		case KindAppendix, KindIndex:
			if later == nil {
				later = nc
			}
			continue
		}
		title := nc.FindFirst(KindTitle)
		if title == nil || len(title.Children) == 0 || title.Children[0].Kind != KindText {
			continue
		}
		text := strings.ToUpper(title.Children[0].Text)
		switch {
		case text == "AUTHORS" || text == "AUTHOR":
			match = nc
		case standardSections[text]:
			later = nil
		case (text == "CAVEATS" || text == "BUGS") && later == nil:
			later = nc
		}
	}

	if match == nil {
		match = NewNode(nil, KindSection)
		match.Flags |= FlagSpc
		title := NewNode(match, KindTitle)
		title.Flags |= FlagSpc
		authorsText := NewTextNode(title, "AUTHORS")
		authorsText.Flags |= FlagSpc
		if later == nil {
			n.AppendChild(match)
		} else {
			idx := indexOfChild(n, later)
			n.InsertChildAt(idx, match)
		}
	}

	if info != nil {
		match.AppendChild(info)
	}
	if meta != nil {
		match.AppendChild(meta)
	}
}

func takeNonEmpty(n *Node, kind Kind) *Node {
	found := n.TakeFirst(kind)
	if found != nil && len(found.Children) == 0 {
		return nil
	}
	return found
}

func indexOfChild(parent, child *Node) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return len(parent.Children)
}

// defaultTitle gives n a synthesized <title>text</title> first child if it
// doesn't already have one, grounded on default_title. It does nothing to
// the tree root (n.Parent == nil), matching the original's guard.
func defaultTitle(n *Node, title string) {
	if n.Parent == nil {
		return
	}
	for _, nc := range n.Children {
		if nc.Kind == KindTitle {
			return
		}
	}
	t := NewNode(nil, KindTitle)
	NewTextNode(t, title)
	n.InsertChildAt(0, t)
}

// reorgFunction strips the conventional trailing "()" from a lone text
// child of <function>, grounded on reorg_function.
func reorgFunction(n *Node) {
	if len(n.Children) != 1 {
		return
	}
	c := n.Children[0]
	if c.Kind != KindText {
		return
	}
	if strings.HasSuffix(c.Text, "()") && len(c.Text) > 2 {
		c.Text = c.Text[:len(c.Text)-2]
	}
}

func reorgRecurse(n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindAbstract:
		defaultTitle(n, "Abstract")
		n.Kind = KindSection
	case KindAppendix:
		if n.Parent == nil {
			reorgRefentry(n)
		}
		defaultTitle(n, "Appendix")
	case KindCaution:
		defaultTitle(n, "Caution")
		n.Kind = KindNote
	case KindFunction:
		reorgFunction(n)
	case KindLegalnotice:
		defaultTitle(n, "Legal Notice")
		n.Kind = KindSimplesect
	case KindNote:
		defaultTitle(n, "Note")
	case KindPreface:
		if n.Parent == nil {
			reorgRefentry(n)
		}
		defaultTitle(n, "Preface")
		n.Kind = KindSection
	case KindRefentry:
		reorgRefentry(n)
	case KindSection:
		if n.Parent == nil {
			reorgRefentry(n)
		}
		defaultTitle(n, "Untitled")
	case KindSimplesect:
		defaultTitle(n, "Untitled")
	case KindTip:
		defaultTitle(n, "Tip")
		n.Kind = KindNote
	case KindWarning:
		defaultTitle(n, "Warning")
		n.Kind = KindNote
	}

	// n.Children may have been mutated above (defaultTitle inserts,
	// reorgRefentry relocates); iterate a snapshot to visit exactly the
	// children present at the point each transform settled.
	children := append([]*Node(nil), n.Children...)
	for _, nc := range children {
		reorgRecurse(nc)
	}
}
