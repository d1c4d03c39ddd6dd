package xmltree

import "fmt"

// TextPos is a 1-based line and column position in the source text.
type TextPos struct {
	Line uint32
	Col  uint32
}

// String implements fmt.Stringer.
func (p TextPos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// textPosAt converts a byte offset into a line/column position. Columns are
// counted in characters, not bytes, so positions stay meaningful for
// multi-byte content.
func textPosAt(text string, offset int) TextPos {
	if offset > len(text) {
		offset = len(text)
	}
	pos := TextPos{Line: 1, Col: 1}
	for _, r := range text[:offset] {
		if r == '\n' {
			pos.Line++
			pos.Col = 1
		} else {
			pos.Col++
		}
	}
	return pos
}

// ErrorKind discriminates parse failures.
type ErrorKind int

const (
	// ErrInvalidXMLPrefixURI reports an xmlns:xml declaration whose value is
	// not the fixed xml namespace URI.
	ErrInvalidXMLPrefixURI ErrorKind = iota

	// ErrUnexpectedXMLURI reports the xml namespace URI bound to a prefix
	// other than xml.
	ErrUnexpectedXMLURI

	// ErrUnexpectedXmlnsURI reports an attempt to declare the reserved xmlns
	// namespace URI.
	ErrUnexpectedXmlnsURI

	// ErrInvalidElementNamePrefix reports xmlns used as an element prefix.
	ErrInvalidElementNamePrefix

	// ErrDuplicatedNamespace reports a namespace declared twice on the same
	// element.
	ErrDuplicatedNamespace

	// ErrUnknownNamespace reports a qualified name whose prefix has no
	// visible declaration.
	ErrUnknownNamespace

	// ErrUnexpectedCloseTag reports a close tag that does not match the
	// innermost open element.
	ErrUnexpectedCloseTag

	// ErrUnexpectedEntityCloseTag reports a close tag where no element was
	// ever opened, typically produced by entity content such as
	// <!ENTITY p '</p>'>.
	ErrUnexpectedEntityCloseTag

	// ErrUnknownEntityReference reports a named reference that is not
	// defined in the internal DTD subset.
	ErrUnknownEntityReference

	// ErrMalformedReference reports a & that does not introduce a valid
	// character or entity reference.
	ErrMalformedReference

	// ErrInvalidAttributeValue reports an unescaped < inside an attribute
	// value.
	ErrInvalidAttributeValue

	// ErrDuplicatedAttribute reports two attributes that resolve to the same
	// (namespace, local name) pair on one element.
	ErrDuplicatedAttribute

	// ErrNoRootNode reports a document without a root element.
	ErrNoRootNode

	// ErrUnclosedRootNode reports a root element that was opened but never
	// closed.
	ErrUnclosedRootNode

	// ErrUnexpectedDeclaration reports an XML declaration anywhere but the
	// very start of the document.
	ErrUnexpectedDeclaration

	// ErrAttributesLimitReached reports more than 2^32 attributes.
	ErrAttributesLimitReached

	// ErrNamespacesLimitReached reports more than 2^16 namespace bindings.
	ErrNamespacesLimitReached

	// ErrNodesLimitReached reports that Options.NodeLimit was exceeded.
	ErrNodesLimitReached

	// ErrInvalidName reports an invalid name token.
	ErrInvalidName

	// ErrNonXMLChar reports a character outside the XML character range.
	ErrNonXMLChar

	// ErrInvalidChar reports an unexpected character where a specific one
	// was required.
	ErrInvalidChar

	// ErrInvalidString reports an unexpected string where a specific literal
	// was required.
	ErrInvalidString

	// ErrInvalidCharData reports "]]>" inside character data.
	ErrInvalidCharData

	// ErrUnknownToken reports markup that fits no production at this point.
	ErrUnknownToken

	// ErrUnexpectedEOF reports input that ended inside a token.
	ErrUnexpectedEOF

	// ErrNodeNotFound reports a required tag or attribute that was absent,
	// signaled by the document query API rather than the parser.
	ErrNodeNotFound
)

// Error is a parse or query failure. Kind discriminates the failure and Pos
// locates it in the source text; the remaining fields hold kind-specific
// detail.
type Error struct {
	Kind     ErrorKind
	Pos      TextPos
	Name     string // offending name, prefix or entity, when applicable
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case ErrInvalidXMLPrefixURI:
		return fmt.Sprintf("'xml' namespace prefix mapped to wrong URI at %s", e.Pos)
	case ErrUnexpectedXMLURI:
		return fmt.Sprintf("the 'xml' namespace URI is used for not 'xml' prefix at %s", e.Pos)
	case ErrUnexpectedXmlnsURI:
		return fmt.Sprintf("the 'xmlns' URI is used at %s, but it must not be declared", e.Pos)
	case ErrInvalidElementNamePrefix:
		return fmt.Sprintf("the 'xmlns' prefix is used at %s, but it must not be", e.Pos)
	case ErrDuplicatedNamespace:
		return fmt.Sprintf("namespace %q at %s is already defined", e.Name, e.Pos)
	case ErrUnknownNamespace:
		return fmt.Sprintf("an unknown namespace prefix %q at %s", e.Name, e.Pos)
	case ErrUnexpectedCloseTag:
		return fmt.Sprintf("expected %q tag, not %q at %s", e.Expected, e.Actual, e.Pos)
	case ErrUnexpectedEntityCloseTag:
		return fmt.Sprintf("unexpected close tag at %s", e.Pos)
	case ErrUnknownEntityReference:
		return fmt.Sprintf("unknown entity reference %q at %s", e.Name, e.Pos)
	case ErrMalformedReference:
		return fmt.Sprintf("malformed entity reference at %s", e.Pos)
	case ErrInvalidAttributeValue:
		return fmt.Sprintf("unescaped '<' found at %s", e.Pos)
	case ErrDuplicatedAttribute:
		return fmt.Sprintf("attribute %q at %s is already defined", e.Name, e.Pos)
	case ErrNoRootNode:
		return "the document does not have a root node"
	case ErrUnclosedRootNode:
		return "the root node was opened but never closed"
	case ErrUnexpectedDeclaration:
		return fmt.Sprintf("unexpected XML declaration at %s", e.Pos)
	case ErrAttributesLimitReached:
		return "more than 2^32 attributes were parsed"
	case ErrNamespacesLimitReached:
		return "more than 2^16 unique namespaces were parsed"
	case ErrNodesLimitReached:
		return "the node limit was reached"
	case ErrInvalidName:
		return fmt.Sprintf("invalid name token at %s", e.Pos)
	case ErrNonXMLChar:
		return fmt.Sprintf("a non-XML character %q found at %s", e.Name, e.Pos)
	case ErrInvalidChar:
		return fmt.Sprintf("expected %q not %q at %s", e.Expected, e.Actual, e.Pos)
	case ErrInvalidString:
		return fmt.Sprintf("expected %q at %s", e.Expected, e.Pos)
	case ErrInvalidCharData:
		return fmt.Sprintf("']]>' at %s is not allowed inside a character data", e.Pos)
	case ErrUnknownToken:
		return fmt.Sprintf("unknown token at %s", e.Pos)
	case ErrUnexpectedEOF:
		return "unexpected end of stream"
	case ErrNodeNotFound:
		return fmt.Sprintf("required %q tag or attribute not found", e.Name)
	default:
		return "an XML parsing error"
	}
}
