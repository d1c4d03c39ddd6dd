// Package xmltree parses well-formed XML into an immutable, namespace-aware
// document tree.
//
// The tree is built in a single forward pass over an already-decoded input
// string. Nodes live in a flat arena addressed by [NodeID] values that
// increase in document order, which keeps the tree compact, relocatable and
// free of cyclic references. Every node additionally carries a subtree-skip
// link to the first node after its entire subtree, so traversal can bypass a
// subtree in constant time.
//
// # Parsing
//
// [Parse] and [ParseWithOptions] consume a complete XML document:
//
//	doc, err := xmltree.Parse(`<pkg version="1.0"><title>Moby-Dick</title></pkg>`)
//	if err != nil {
//	    // handle error
//	}
//	title, _ := doc.RootElement().FindDescendant("title")
//	fmt.Println(title.CollectText())
//
// Namespaces are fully resolved while the tree is built: elements and
// attributes expose a namespace URI and a local name, prefix spellings are
// validated (including the reserved xml and xmlns bindings), and attributes
// that collide after prefix resolution are rejected. Character references,
// the predefined entities and - when [Options.AllowDTD] is set - entities
// declared in an internal DOCTYPE subset are decoded, and line endings and
// attribute whitespace are normalized per the XML specification.
//
// # Errors
//
// Every failure aborts the parse immediately and is reported as an [*Error]
// carrying a discriminated [ErrorKind] and a 1-based line/column position.
// No partial document is ever returned.
//
// The package performs no DTD or schema validation beyond internal entity
// lookup, never resolves external entities, and does not support parsing
// partial input, mutating a parsed tree, or serializing it back to text.
package xmltree
