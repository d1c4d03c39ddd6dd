package xmltree

import "strings"

// NodeID addresses a node in the document arena. IDs are assigned in
// document pre-order, starting at 0 for the root node, and are never reused.
type NodeID uint32

type nodeKind uint8

const (
	nodeRoot nodeKind = iota
	nodeElement
	nodeText
)

// attrRange is a contiguous span over the document's attribute table.
type attrRange struct {
	start, end uint32
}

// scopeRange is a contiguous span over the namespace scope log.
type scopeRange struct {
	start, end uint16
}

// nodeData is one arena slot. The zero NodeID doubles as "no link" for the
// sibling, child and subtree fields: the root occupies slot 0 and can never
// be a sibling or follow another node's subtree.
type nodeData struct {
	parent      NodeID
	prevSibling NodeID
	lastChild   NodeID
	nextSubtree NodeID // first node after this node's entire subtree
	kind        nodeKind
	nsIdx       nsIndex // element tag namespace
	local       string  // element local name
	attrs       attrRange
	scope       scopeRange
	text        string // text node content
}

// Document is an immutable parsed XML document. It is safe for concurrent
// reads; independent parses each build their own Document.
type Document struct {
	input      string
	nodes      []nodeData
	attributes []attributeData
	ns         namespaces
}

type attributeData struct {
	nsIdx nsIndex
	local string
	value string
}

// Attribute is a resolved attribute as exposed by the query API.
type Attribute struct {
	NamespaceURI string
	Local        string
	Value        string
}

// Input returns the original input text the document was parsed from.
func (d *Document) Input() string {
	return d.input
}

// Root returns the root node. The root is not an element; the document's
// single top-level element is its child.
func (d *Document) Root() Node {
	return Node{doc: d, id: 0}
}

// RootElement returns the document's top-level element. Parse guarantees
// exactly one exists.
func (d *Document) RootElement() Node {
	for n, ok := d.Root().FirstChild(); ok; n, ok = n.NextSibling() {
		if n.IsElement() {
			return n
		}
	}
	// Unreachable for documents produced by Parse.
	return d.Root()
}

// Node is a lightweight handle to one node of a Document.
type Node struct {
	doc *Document
	id  NodeID
}

func (n Node) data() *nodeData {
	return &n.doc.nodes[n.id]
}

// ID returns the node's arena id.
func (n Node) ID() NodeID {
	return n.id
}

// Document returns the document this node belongs to.
func (n Node) Document() *Document {
	return n.doc
}

// IsRoot reports whether this is the root node.
func (n Node) IsRoot() bool {
	return n.data().kind == nodeRoot
}

// IsElement reports whether this is an element node.
func (n Node) IsElement() bool {
	return n.data().kind == nodeElement
}

// IsText reports whether this is a text node.
func (n Node) IsText() bool {
	return n.data().kind == nodeText
}

// TagName returns the element's local name, or "" for non-elements.
func (n Node) TagName() string {
	if !n.IsElement() {
		return ""
	}
	return n.data().local
}

// NamespaceURI returns the element's namespace URI, or "" when the element
// is in no namespace or the node is not an element.
func (n Node) NamespaceURI() string {
	if !n.IsElement() {
		return ""
	}
	return n.doc.ns.uri(n.data().nsIdx)
}

// HasTagName reports whether the node is an element with the given local
// name, regardless of namespace.
func (n Node) HasTagName(local string) bool {
	return n.IsElement() && n.data().local == local
}

// HasTagNameNS reports whether the node is an element with the given
// namespace URI and local name.
func (n Node) HasTagNameNS(uri, local string) bool {
	return n.HasTagName(local) && n.NamespaceURI() == uri
}

// Parent returns the parent node. The second result is false for the root.
func (n Node) Parent() (Node, bool) {
	if n.id == 0 {
		return Node{}, false
	}
	return Node{doc: n.doc, id: n.data().parent}, true
}

// FirstChild returns the node's first child. In a pre-order arena the first
// child of any node with children is the node's immediate successor.
func (n Node) FirstChild() (Node, bool) {
	if n.data().lastChild == 0 {
		return Node{}, false
	}
	return Node{doc: n.doc, id: n.id + 1}, true
}

// LastChild returns the node's last child.
func (n Node) LastChild() (Node, bool) {
	last := n.data().lastChild
	if last == 0 {
		return Node{}, false
	}
	return Node{doc: n.doc, id: last}, true
}

// PrevSibling returns the previous sibling.
func (n Node) PrevSibling() (Node, bool) {
	prev := n.data().prevSibling
	if prev == 0 {
		return Node{}, false
	}
	return Node{doc: n.doc, id: prev}, true
}

// NextSibling returns the next sibling. This is where the subtree-skip link
// pays off: the node after this node's whole subtree is the next sibling
// exactly when it has the same parent, so no descent is needed.
func (n Node) NextSibling() (Node, bool) {
	next := n.data().nextSubtree
	if next == 0 || n.doc.nodes[next].parent != n.data().parent {
		return Node{}, false
	}
	return Node{doc: n.doc, id: next}, true
}

// subtreeEnd returns the id one past n's subtree. For most nodes this is the
// stored skip link; nodes on the document's trailing spine climb to the
// nearest ancestor carrying one.
func (n Node) subtreeEnd() NodeID {
	for id := n.id; ; {
		if next := n.doc.nodes[id].nextSubtree; next != 0 {
			return next
		}
		if id == 0 {
			return NodeID(len(n.doc.nodes))
		}
		id = n.doc.nodes[id].parent
	}
}

// Children returns the node's direct children.
func (n Node) Children() []Node {
	var out []Node
	for c, ok := n.FirstChild(); ok; c, ok = c.NextSibling() {
		out = append(out, c)
	}
	return out
}

// ChildElements returns the node's direct element children.
func (n Node) ChildElements() []Node {
	var out []Node
	for c, ok := n.FirstChild(); ok; c, ok = c.NextSibling() {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

// LastElementChild returns the node's last element child.
func (n Node) LastElementChild() (Node, bool) {
	for c, ok := n.LastChild(); ok; c, ok = c.PrevSibling() {
		if c.IsElement() {
			return c, true
		}
	}
	return Node{}, false
}

// Descendants returns an iterator over the node and all its descendants in
// document order.
func (n Node) Descendants() Iter {
	return Iter{doc: n.doc, cur: n.id, end: n.subtreeEnd()}
}

// Iter walks a subtree in document order. SkipSubtree jumps past the most
// recently returned node's subtree in constant time via the skip link.
type Iter struct {
	doc  *Document
	cur  NodeID
	end  NodeID
	last NodeID
}

// Next returns the next node, or false when the subtree is exhausted.
func (it *Iter) Next() (Node, bool) {
	if it.cur >= it.end {
		return Node{}, false
	}
	it.last = it.cur
	it.cur++
	return Node{doc: it.doc, id: it.last}, true
}

// SkipSubtree advances past the remaining descendants of the node most
// recently returned by Next.
func (it *Iter) SkipSubtree() {
	end := Node{doc: it.doc, id: it.last}.subtreeEnd()
	if end > it.cur {
		it.cur = end
	}
}

// FindDescendant returns the first descendant element (or the node itself)
// with the given local name.
func (n Node) FindDescendant(local string) (Node, bool) {
	it := n.Descendants()
	for d, ok := it.Next(); ok; d, ok = it.Next() {
		if d.HasTagName(local) {
			return d, true
		}
	}
	return Node{}, false
}

// RequiredDescendant is FindDescendant failing with a distinct not-found
// error when the tag is absent.
func (n Node) RequiredDescendant(local string) (Node, error) {
	d, ok := n.FindDescendant(local)
	if !ok {
		return Node{}, &Error{Kind: ErrNodeNotFound, Pos: TextPos{Line: 1, Col: 1}, Name: local}
	}
	return d, nil
}

// Attributes returns the element's resolved attributes.
func (n Node) Attributes() []Attribute {
	if !n.IsElement() {
		return nil
	}
	r := n.data().attrs
	out := make([]Attribute, 0, r.end-r.start)
	for _, a := range n.doc.attributes[r.start:r.end] {
		out = append(out, Attribute{
			NamespaceURI: n.doc.ns.uri(a.nsIdx),
			Local:        a.local,
			Value:        a.value,
		})
	}
	return out
}

// Attribute returns the value of the first attribute with the given local
// name, in any namespace.
func (n Node) Attribute(local string) (string, bool) {
	if !n.IsElement() {
		return "", false
	}
	r := n.data().attrs
	for _, a := range n.doc.attributes[r.start:r.end] {
		if a.local == local {
			return a.value, true
		}
	}
	return "", false
}

// AttributeNS returns the value of the attribute with the given namespace
// URI ("" for no namespace) and local name.
func (n Node) AttributeNS(uri, local string) (string, bool) {
	if !n.IsElement() {
		return "", false
	}
	r := n.data().attrs
	for _, a := range n.doc.attributes[r.start:r.end] {
		if a.local == local && n.doc.ns.uri(a.nsIdx) == uri {
			return a.value, true
		}
	}
	return "", false
}

// RequiredAttribute is Attribute failing with a distinct not-found error
// when the attribute is absent.
func (n Node) RequiredAttribute(local string) (string, error) {
	v, ok := n.Attribute(local)
	if !ok {
		return "", &Error{Kind: ErrNodeNotFound, Pos: TextPos{Line: 1, Col: 1}, Name: local}
	}
	return v, nil
}

// Text returns a text node's content, or an element's content when its
// first child is a text node. It returns "" in every other case.
func (n Node) Text() string {
	switch n.data().kind {
	case nodeText:
		return n.data().text
	case nodeElement:
		if c, ok := n.FirstChild(); ok && c.IsText() {
			return c.data().text
		}
	}
	return ""
}

// CollectText concatenates the content of every text node in the subtree.
func (n Node) CollectText() string {
	var sb strings.Builder
	it := n.Descendants()
	for d, ok := it.Next(); ok; d, ok = it.Next() {
		if d.IsText() {
			sb.WriteString(d.data().text)
		}
	}
	return sb.String()
}
