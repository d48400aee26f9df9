package docbook

// NodeFlags records per-node parse-time state consulted by both the
// reorganizer and the formatter; it is the Go analogue of
// original_source/node.h's NFLAG_* bitmask.
type NodeFlags uint8

const (
	// FlagLine marks a node that began a new source line: the formatter
	// uses it to decide whether a line-class sibling needs its own troff
	// line or can share one with its predecessor.
	FlagLine NodeFlags = 1 << iota
	// FlagSpc marks a node that was preceded by inter-element whitespace
	// in the source, distinct from whitespace inside a text node.
	FlagSpc
)

// Node is the single generic tree-node type every parsed element,
// text run, and escape becomes -- mirroring org.Node's approach of a small
// closed set of fields rather than one Go struct per DocBook element.
type Node struct {
	Kind     Kind
	Text     string // meaningful only when Kind == KindText or KindEscape
	Parent   *Node
	Children []*Node
	Attrs    []Attribute
	Flags    NodeFlags
}

// NewNode allocates a Node of the given kind and appends it as the last
// child of parent. parent may be nil only for the tree root.
func NewNode(parent *Node, kind Kind) *Node {
	n := &Node{Kind: kind, Parent: parent}
	if parent != nil {
		parent.Children = append(parent.Children, n)
	}
	return n
}

// NewTextNode allocates a KindText node holding text, appended to parent.
func NewTextNode(parent *Node, text string) *Node {
	n := NewNode(parent, KindText)
	n.Text = text
	return n
}

// HasFlag reports whether all bits in f are set.
func (n *Node) HasFlag(f NodeFlags) bool { return n.Flags&f == f }

// Unlink detaches n from its parent's child list. n.Parent is cleared.
// Safe to call on a node with no parent (a no-op).
func (n *Node) Unlink() {
	if n.Parent == nil {
		return
	}
	siblings := n.Parent.Children
	for i, c := range siblings {
		if c == n {
			n.Parent.Children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// UnlinkChildren detaches every child of n and returns them, leaving n
// childless. Used by the formatter to drop children it has already
// consumed.
func (n *Node) UnlinkChildren() []*Node {
	kids := n.Children
	n.Children = nil
	for _, c := range kids {
		c.Parent = nil
	}
	return kids
}

// AppendChild appends c as the last child of n, setting c.Parent.
// If c already has a parent it is unlinked first.
func (n *Node) AppendChild(c *Node) {
	c.Unlink()
	c.Parent = n
	n.Children = append(n.Children, c)
}

// InsertChildAt inserts c at position i in n's child list.
func (n *Node) InsertChildAt(i int, c *Node) {
	c.Unlink()
	c.Parent = n
	if i < 0 {
		i = 0
	}
	if i > len(n.Children) {
		i = len(n.Children)
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = c
}

// FindFirst performs a pre-order search of n's subtree (n included) and
// returns the first node of the given kind, or nil.
func (n *Node) FindFirst(kind Kind) *Node {
	if n.Kind == kind {
		return n
	}
	for _, c := range n.Children {
		if found := c.FindFirst(kind); found != nil {
			return found
		}
	}
	return nil
}

// TakeFirst finds the first descendant of the given kind (n itself is never
// matched), unlinks it from its current parent and returns it. Used by the
// reorganizer to relocate nodes like REFENTRYTITLE into a synthesized
// prologue.
func (n *Node) TakeFirst(kind Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			c.Unlink()
			return c
		}
		if found := c.TakeFirst(kind); found != nil {
			return found
		}
	}
	return nil
}

// GetAttr returns the resolved AttrVal for key, its raw string, and whether
// the attribute was present at all.
func (n *Node) GetAttr(key AttrKey) (val AttrVal, raw string, ok bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, a.Raw, true
		}
	}
	return attrValRaw, "", false
}

// GetAttrRaw returns the raw string value of key, or def if not present.
func (n *Node) GetAttrRaw(key AttrKey, def string) string {
	if _, raw, ok := n.GetAttr(key); ok {
		return raw
	}
	return def
}

// IsEmpty reports whether n has no children and (for a text node) no text.
func (n *Node) IsEmpty() bool {
	if n.Kind == KindText || n.Kind == KindEscape {
		return n.Text == ""
	}
	return len(n.Children) == 0
}

// TextContent returns the accumulated plain-text content of n's subtree,
// ignoring markup.
func (n *Node) TextContent() string {
	if n.Kind == KindText || n.Kind == KindEscape {
		return n.Text
	}
	var sb []byte
	for _, c := range n.Children {
		sb = append(sb, c.TextContent()...)
	}
	return string(sb)
}
