package docbook

import (
	"fmt"
	"io"
	"strings"
)

// DumpTree writes the "-T tree" debug dump of tree to w: one line per node,
// each indented two spaces per nesting level, a direct port of
// original_source/tree.c's print_node/ptree_print_tree (spec.md §6's
// one-line grammar: "indent, flag char, element name, optional text,
// attributes as key='val'"). Out of scope for the core converter per
// spec.md §2 ("external collaborator"), but kept alongside the formatter
// since it shares Node/Kind with it.
func DumpTree(w io.Writer, tree *Tree) error {
	return dumpNode(w, tree.Root, 0)
}

func dumpNode(w io.Writer, n *Node, depth int) error {
	if n == nil {
		return nil
	}
	flag := byte('-')
	switch {
	case n.HasFlag(FlagLine):
		flag = '*'
	case n.HasFlag(FlagSpc):
		flag = ' '
	}

	indent := strings.Repeat("  ", depth)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%c%s", indent, flag, n.Kind.String())
	if n.Kind == KindText || n.Kind == KindEscape {
		sb.WriteByte(' ')
		sb.WriteString(n.Text)
	}
	for _, a := range n.Attrs {
		fmt.Fprintf(&sb, " %s='%s'", a.KeyRaw, a.Raw)
	}
	if _, err := fmt.Fprintln(w, sb.String()); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := dumpNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
