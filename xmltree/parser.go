package xmltree

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Options controls parsing behavior.
type Options struct {
	// AllowDTD enables the DOCTYPE internal subset. When set, internal
	// entity declarations are collected and references to them expand;
	// when unset the DOCTYPE is skipped and entity references reach the
	// text as-is, failing as malformed references.
	AllowDTD bool

	// NodeLimit caps the number of nodes a document may allocate,
	// including the root. Zero means no limit beyond the id space.
	NodeLimit uint32
}

// Parse parses a complete XML document with the default options.
func Parse(text string) (*Document, error) {
	return ParseWithOptions(text, Options{AllowDTD: true})
}

// ParseWithOptions parses a complete XML document. The returned document
// borrows from text where it can; text must not be mutated afterwards.
func ParseWithOptions(text string, opts Options) (*Document, error) {
	doc := &Document{
		input: text,
		nodes: make([]nodeData, 1, 64), // slot 0 is the implicit root
	}
	doc.ns.values = append(doc.ns.values, namespaceEntry{prefix: nsXMLPrefix, uri: nsXMLURI})
	b := &builder{doc: doc, opts: opts, src: text}
	if err := Tokenize(text, opts, b); err != nil {
		return nil, err
	}
	if err := b.finish(); err != nil {
		return nil, err
	}
	return doc, nil
}

// stagedAttr is an attribute of the element currently being built, held
// until the element's namespace scope is known.
type stagedAttr struct {
	prefix string
	local  string
	value  string // already normalized
	offset int
}

// builder implements EventSink and assembles the arena tree. It mirrors the
// nesting of the document with a single parent pointer plus a prefix stack;
// subtree skip links are patched in retroactively as nodes are appended.
type builder struct {
	doc  *Document
	opts Options
	src  string

	tagPrefix string
	tagLocal  string
	tagOffset int

	attrs   []stagedAttr
	nsStart int // first scope-log index owned by the current element

	parent       NodeID
	openPrefixes []string
	afterText    bool
	awaiting     []NodeID // nodes whose nextSubtree is still unset
}

func (b *builder) Event(ev *Event) error {
	switch ev.Kind {
	case EventElementStart:
		return b.onElementStart(ev)
	case EventAttribute:
		return b.onAttribute(ev)
	case EventElementEnd:
		return b.onElementEnd(ev)
	case EventText:
		return b.onText(ev)
	}
	return nil
}

func (b *builder) posAt(offset int) TextPos {
	return textPosAt(b.src, offset)
}

func (b *builder) onElementStart(ev *Event) error {
	if ev.Prefix == xmlnsToken {
		return &Error{Kind: ErrInvalidElementNamePrefix, Pos: b.posAt(ev.Offset)}
	}
	b.tagPrefix = ev.Prefix
	b.tagLocal = ev.Local
	b.tagOffset = ev.Offset
	b.attrs = b.attrs[:0]
	b.nsStart = len(b.doc.ns.scope)
	b.afterText = false
	return nil
}

func (b *builder) onAttribute(ev *Event) error {
	ns := &b.doc.ns
	switch {
	case ev.Prefix == xmlnsToken:
		// xmlns:prefix="uri"
		uri, err := b.normalizeAttrValue(ev.Value, ev.Offset)
		if err != nil {
			return err
		}
		if ev.Local == nsXMLPrefix {
			if uri != nsXMLURI {
				return &Error{Kind: ErrInvalidXMLPrefixURI, Pos: b.posAt(ev.Offset)}
			}
			// Redeclaring the xml prefix with its fixed URI is a no-op.
			return nil
		}
		if uri == nsXMLURI {
			return &Error{Kind: ErrUnexpectedXMLURI, Pos: b.posAt(ev.Offset)}
		}
		if uri == nsXmlnsURI {
			return &Error{Kind: ErrUnexpectedXmlnsURI, Pos: b.posAt(ev.Offset)}
		}
		if ns.exists(b.nsStart, ev.Local) {
			return &Error{Kind: ErrDuplicatedNamespace, Name: ev.Local, Pos: b.posAt(ev.Offset)}
		}
		return ns.push(ev.Local, uri)
	case ev.Prefix == "" && ev.Local == xmlnsToken:
		// xmlns="uri"
		uri, err := b.normalizeAttrValue(ev.Value, ev.Offset)
		if err != nil {
			return err
		}
		if uri == nsXMLURI {
			return &Error{Kind: ErrUnexpectedXMLURI, Pos: b.posAt(ev.Offset)}
		}
		if uri == nsXmlnsURI {
			return &Error{Kind: ErrUnexpectedXmlnsURI, Pos: b.posAt(ev.Offset)}
		}
		return ns.push("", uri)
	default:
		value, err := b.normalizeAttrValue(ev.Value, ev.Offset)
		if err != nil {
			return err
		}
		b.attrs = append(b.attrs, stagedAttr{
			prefix: ev.Prefix,
			local:  ev.Local,
			value:  value,
			offset: ev.Offset,
		})
		return nil
	}
}

func (b *builder) onElementEnd(ev *Event) error {
	switch ev.End {
	case EndEmpty:
		id, err := b.appendElement(ev.Offset)
		if err != nil {
			return err
		}
		b.awaiting = append(b.awaiting, id)
		b.afterText = false
		return nil
	case EndOpen:
		id, err := b.appendElement(ev.Offset)
		if err != nil {
			return err
		}
		b.parent = id
		b.openPrefixes = append(b.openPrefixes, b.tagPrefix)
		b.afterText = false
		return nil
	default: // EndClose
		b.afterText = false
		if b.tagLocal == "" || b.parent == 0 {
			return &Error{Kind: ErrUnexpectedEntityCloseTag, Pos: b.posAt(ev.Offset)}
		}
		open := b.openPrefixes[len(b.openPrefixes)-1]
		pd := &b.doc.nodes[b.parent]
		if ev.Prefix != open || ev.Local != pd.local {
			return &Error{
				Kind:     ErrUnexpectedCloseTag,
				Expected: qname(open, pd.local),
				Actual:   qname(ev.Prefix, ev.Local),
				Pos:      b.posAt(ev.Offset),
			}
		}
		b.awaiting = append(b.awaiting, b.parent)
		b.parent = pd.parent
		b.openPrefixes = b.openPrefixes[:len(b.openPrefixes)-1]
		return nil
	}
}

func qname(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// appendElement resolves the staged start tag into a node: fixes the
// namespace scope, resolves the tag and attribute namespaces, and appends
// the node to the arena.
func (b *builder) appendElement(offset int) (NodeID, error) {
	scope, err := b.resolveNamespaces()
	if err != nil {
		return 0, err
	}
	var nsIdx nsIndex
	if b.tagPrefix == "" {
		nsIdx, _ = b.doc.ns.resolve(scope, "")
	} else {
		var ok bool
		nsIdx, ok = b.doc.ns.resolve(scope, b.tagPrefix)
		if !ok {
			return 0, &Error{Kind: ErrUnknownNamespace, Name: b.tagPrefix, Pos: b.posAt(b.tagOffset)}
		}
	}
	attrs, err := b.resolveAttributes(scope)
	if err != nil {
		return 0, err
	}
	return b.appendNode(nodeData{
		kind:  nodeElement,
		nsIdx: nsIdx,
		local: b.tagLocal,
		attrs: attrs,
		scope: scope,
	}, offset)
}

// resolveNamespaces fixes the visible namespace range for the current
// element. Without declarations of its own the element shares its parent's
// range; otherwise the parent's non-shadowed bindings are re-appended after
// the element's own so the result stays contiguous.
func (b *builder) resolveNamespaces() (scopeRange, error) {
	ns := &b.doc.ns
	declEnd := len(ns.scope)
	if b.nsStart == declEnd {
		if b.parent != 0 {
			return b.doc.nodes[b.parent].scope, nil
		}
		return scopeRange{start: uint16(declEnd), end: uint16(declEnd)}, nil
	}
	if b.parent != 0 {
		pr := b.doc.nodes[b.parent].scope
		for i := int(pr.start); i < int(pr.end); i++ {
			prefix := ns.values[ns.scope[i]].prefix
			shadowed := false
			for j := b.nsStart; j < declEnd; j++ {
				if ns.values[ns.scope[j]].prefix == prefix {
					shadowed = true
					break
				}
			}
			if !shadowed {
				if err := ns.pushRef(i); err != nil {
					return scopeRange{}, err
				}
			}
		}
	}
	return scopeRange{start: uint16(b.nsStart), end: uint16(len(ns.scope))}, nil
}

// resolveAttributes moves the staged attributes into the document table,
// resolving prefixes against the element's scope and rejecting duplicates
// by expanded name.
func (b *builder) resolveAttributes(scope scopeRange) (attrRange, error) {
	doc := b.doc
	start := len(doc.attributes)
	for _, a := range b.attrs {
		var idx nsIndex
		switch {
		case a.prefix == nsXMLPrefix:
			idx = 0 // the fixed xml binding
		case a.prefix == "":
			// An unprefixed attribute is never in the default namespace.
			idx = nsNone
		default:
			var ok bool
			idx, ok = doc.ns.resolve(scope, a.prefix)
			if !ok {
				return attrRange{}, &Error{Kind: ErrUnknownNamespace, Name: a.prefix, Pos: b.posAt(a.offset)}
			}
		}
		uri := doc.ns.uri(idx)
		for i := start; i < len(doc.attributes); i++ {
			d := &doc.attributes[i]
			if d.local == a.local && doc.ns.uri(d.nsIdx) == uri {
				return attrRange{}, &Error{Kind: ErrDuplicatedAttribute, Name: a.local, Pos: b.posAt(a.offset)}
			}
		}
		if len(doc.attributes) >= math.MaxUint32 {
			return attrRange{}, &Error{Kind: ErrAttributesLimitReached, Pos: b.posAt(a.offset)}
		}
		doc.attributes = append(doc.attributes, attributeData{
			nsIdx: idx,
			local: a.local,
			value: a.value,
		})
	}
	return attrRange{start: uint32(start), end: uint32(len(doc.attributes))}, nil
}

// appendNode adds one node under the current parent and patches every
// pending subtree skip link to point at it. The caller decides whether the
// new node itself starts waiting, since an open element's subtree is not
// finished yet.
func (b *builder) appendNode(nd nodeData, offset int) (NodeID, error) {
	doc := b.doc
	if len(doc.nodes) >= math.MaxUint32 ||
		(b.opts.NodeLimit > 0 && uint32(len(doc.nodes)) >= b.opts.NodeLimit) {
		return 0, &Error{Kind: ErrNodesLimitReached, Pos: b.posAt(offset)}
	}
	id := NodeID(len(doc.nodes))
	nd.parent = b.parent
	pd := &doc.nodes[b.parent]
	nd.prevSibling = pd.lastChild
	pd.lastChild = id
	doc.nodes = append(doc.nodes, nd)
	for _, w := range b.awaiting {
		doc.nodes[w].nextSubtree = id
	}
	b.awaiting = b.awaiting[:0]
	return id, nil
}

func (b *builder) onText(ev *Event) error {
	var (
		text string
		err  error
	)
	if ev.Raw {
		// CDATA content is taken verbatim.
		text = ev.Value
	} else {
		text, err = b.normalizeText(ev.Value, ev.Offset)
		if err != nil {
			return err
		}
	}
	if text == "" {
		return nil
	}
	doc := b.doc
	if b.afterText {
		// Adjacent chunks, e.g. around an expanded entity, merge into the
		// preceding text node.
		last := doc.nodes[b.parent].lastChild
		doc.nodes[last].text += text
		return nil
	}
	id, err := b.appendNode(nodeData{kind: nodeText, nsIdx: nsNone, text: text}, ev.Offset)
	if err != nil {
		return err
	}
	b.awaiting = append(b.awaiting, id)
	b.afterText = true
	return nil
}

// finish validates the document-level structure after the event stream ends.
func (b *builder) finish() error {
	if b.parent != 0 {
		return &Error{Kind: ErrUnclosedRootNode}
	}
	for _, nd := range b.doc.nodes[1:] {
		if nd.parent == 0 && nd.kind == nodeElement {
			return nil
		}
	}
	return &Error{Kind: ErrNoRootNode}
}

// normalizeText decodes character references and predefined entities and
// normalizes line endings in element text. In the common case of no
// references and no carriage returns it borrows the input chunk.
//
// Line-ending substitution is deferred by one byte: a plain '\r' enters the
// buffer verbatim and is rewritten to '\n' when the next plain byte arrives
// (or at the end of the chunk). Reference-decoded bytes and the single byte
// right after a reference are appended raw and never trigger the rewrite,
// so a pending '\r' directly before a reference survives untouched.
func (b *builder) normalizeText(text string, offset int) (string, error) {
	if !strings.ContainsAny(text, "&\r") {
		return text, nil
	}
	buf := make([]byte, 0, len(text))
	asIs := false
	for i := 0; i < len(text); {
		c := text[i]
		if c == '&' {
			r, width, ok := tryDecodeReference(text[i:])
			if !ok {
				return "", &Error{Kind: ErrMalformedReference, Pos: b.posAt(offset + i)}
			}
			buf = utf8.AppendRune(buf, r)
			i += width
			asIs = true
			continue
		}
		i++
		if asIs {
			buf = append(buf, c)
			asIs = false
			continue
		}
		atEnd := i == len(text)
		switch {
		case len(buf) > 0 && buf[len(buf)-1] == '\r':
			buf[len(buf)-1] = '\n'
			switch {
			case atEnd && c == '\r':
				buf = append(buf, '\n')
			case c != '\n': // a '\n' completing "\r\n" is dropped
				buf = append(buf, c)
			}
		case atEnd && c == '\r':
			buf = append(buf, '\n')
		default:
			buf = append(buf, c)
		}
	}
	return string(buf), nil
}

// normalizeAttrValue is the attribute-value variant: tab, LF and CR become
// single spaces, a "\r\n" pair becomes one space, and reference-decoded
// bytes are appended raw, exempt from the substitution.
func (b *builder) normalizeAttrValue(value string, offset int) (string, error) {
	if !strings.ContainsAny(value, "&\t\n\r") {
		return value, nil
	}
	buf := make([]byte, 0, len(value))
	for i := 0; i < len(value); {
		c := value[i]
		if c == '&' {
			r, width, ok := tryDecodeReference(value[i:])
			if !ok {
				return "", &Error{Kind: ErrMalformedReference, Pos: b.posAt(offset + i)}
			}
			buf = utf8.AppendRune(buf, r)
			i += width
			continue
		}
		i++
		if c == '\r' && i < len(value) && value[i] == '\n' {
			continue
		}
		if c == '\t' || c == '\n' || c == '\r' {
			c = ' '
		}
		buf = append(buf, c)
	}
	return string(buf), nil
}

// tryDecodeReference decodes one "&...;" reference at the start of s:
// a decimal or hexadecimal character reference, or one of the five
// predefined entities. width covers the full reference span.
func tryDecodeReference(s string) (r rune, width int, ok bool) {
	end := strings.IndexByte(s, ';')
	if end < 2 {
		return 0, 0, false
	}
	body := s[1:end]
	width = end + 1
	if body[0] == '#' {
		var (
			v    uint32
			seen bool
		)
		digits := body[1:]
		hex := false
		if digits != "" && digits[0] == 'x' {
			hex = true
			digits = digits[1:]
		}
		for i := 0; i < len(digits); i++ {
			c := digits[i]
			var d uint32
			switch {
			case isDigit(c):
				d = uint32(c - '0')
			case hex && c >= 'a' && c <= 'f':
				d = uint32(c-'a') + 10
			case hex && c >= 'A' && c <= 'F':
				d = uint32(c-'A') + 10
			default:
				return 0, 0, false
			}
			if hex {
				v = v*16 + d
			} else {
				v = v*10 + d
			}
			if v > 0x10FFFF {
				return 0, 0, false
			}
			seen = true
		}
		if !seen {
			return 0, 0, false
		}
		r = rune(v)
		if !isXMLChar(r) {
			return 0, 0, false
		}
		return r, width, true
	}
	switch body {
	case "amp":
		return '&', width, true
	case "lt":
		return '<', width, true
	case "gt":
		return '>', width, true
	case "apos":
		return '\'', width, true
	case "quot":
		return '"', width, true
	}
	return 0, 0, false
}

// isXMLChar reports whether r is a character the XML specification allows
// in content.
func isXMLChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}
