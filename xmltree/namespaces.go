package xmltree

// Reserved namespace names.
const (
	nsXMLPrefix = "xml"
	nsXMLURI    = "http://www.w3.org/XML/1998/namespace"
	nsXmlnsURI  = "http://www.w3.org/2000/xmlns/"
	xmlnsToken  = "xmlns"
)

// nsIndex addresses one entry in the namespace value log. nsNone marks
// "no namespace".
type nsIndex uint16

const nsNone nsIndex = 0xFFFF

type namespaceEntry struct {
	prefix string // "" for the default namespace
	uri    string
}

// namespaces is the append-only namespace registry. values holds each
// distinct (prefix, uri) binding once; scope is a log of value indices in
// which every element owns one contiguous range describing the bindings
// visible at that point in the tree. A branch that declares nothing reuses
// its parent's range, so nothing is ever copied per element in the common
// case.
//
// Slot 0 of values is always the fixed xml prefix binding. It never appears
// in the scope log; attribute resolution special-cases it instead.
type namespaces struct {
	values []namespaceEntry
	scope  []nsIndex
}

// push registers a binding and makes it visible by appending it to the scope
// log, deduplicating identical (prefix, uri) pairs in the value log.
func (ns *namespaces) push(prefix, uri string) error {
	for i := range ns.values {
		if ns.values[i].prefix == prefix && ns.values[i].uri == uri {
			return ns.pushIndex(nsIndex(i))
		}
	}
	if len(ns.values) >= int(nsNone) {
		return &Error{Kind: ErrNamespacesLimitReached, Pos: TextPos{Line: 1, Col: 1}}
	}
	idx := nsIndex(len(ns.values))
	ns.values = append(ns.values, namespaceEntry{prefix: prefix, uri: uri})
	return ns.pushIndex(idx)
}

// pushRef re-appends the binding at the given scope position, used to carry
// an inherited binding into a child range that shadows a sibling binding.
func (ns *namespaces) pushRef(scopePos int) error {
	return ns.pushIndex(ns.scope[scopePos])
}

func (ns *namespaces) pushIndex(idx nsIndex) error {
	if len(ns.scope) >= int(nsNone) {
		return &Error{Kind: ErrNamespacesLimitReached, Pos: TextPos{Line: 1, Col: 1}}
	}
	ns.scope = append(ns.scope, idx)
	return nil
}

// exists reports whether prefix is declared anywhere in scope[start:]. The
// builder uses it with the start of the current element's own declarations,
// which scopes the duplicate check to one nesting level.
func (ns *namespaces) exists(start int, prefix string) bool {
	for _, idx := range ns.scope[start:] {
		if ns.values[idx].prefix == prefix {
			return true
		}
	}
	return false
}

// resolve finds the binding for prefix within the given visible range.
func (ns *namespaces) resolve(r scopeRange, prefix string) (nsIndex, bool) {
	for _, idx := range ns.scope[r.start:r.end] {
		if ns.values[idx].prefix == prefix {
			return idx, true
		}
	}
	return nsNone, false
}

// uri returns the namespace URI for an index, or "" for nsNone.
func (ns *namespaces) uri(idx nsIndex) string {
	if idx == nsNone {
		return ""
	}
	return ns.values[idx].uri
}
