package xmltree

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *Document {
	t.Helper()

	doc, err := Parse(input)
	require.NoError(t, err)
	return doc
}

func parseKind(t *testing.T, input string) ErrorKind {
	t.Helper()

	_, err := Parse(input)
	var xe *Error
	require.ErrorAs(t, err, &xe)
	return xe.Kind
}

func TestParseSimpleDocument(t *testing.T) {
	// given
	doc := mustParse(t, `<root><a>one</a><b/>two</root>`)

	// when
	root := doc.RootElement()
	kids := root.Children()

	// then
	assert.Equal(t, "root", root.TagName())
	require.Len(t, kids, 3)
	assert.Equal(t, "a", kids[0].TagName())
	assert.Equal(t, "one", kids[0].Text())
	assert.Equal(t, "b", kids[1].TagName())
	assert.True(t, kids[2].IsText())
	assert.Equal(t, "two", kids[2].Text())
}

func TestParsePreOrderIDs(t *testing.T) {
	// given
	doc := mustParse(t, `<r><a><b/><c/></a><d/></r>`)

	// when walking the whole document
	it := doc.Root().Descendants()

	// then ids are strictly increasing in document order
	var ids []NodeID
	var names []string
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		ids = append(ids, n.ID())
		names = append(names, n.TagName())
	}
	assert.Equal(t, []NodeID{0, 1, 2, 3, 4, 5}, ids)
	assert.Equal(t, []string{"", "r", "a", "b", "c", "d"}, names)
}

func TestParseSiblingTraversalMatchesRecursive(t *testing.T) {
	// given a tree with mixed depths
	doc := mustParse(t, `<r><a><b>x</b><c/></a><d><e/></d>text</r>`)

	// when collecting elements once via sibling links and once recursively
	var bySibling []NodeID
	var walk func(n Node)
	walk = func(n Node) {
		bySibling = append(bySibling, n.ID())
		for c, ok := n.FirstChild(); ok; c, ok = c.NextSibling() {
			walk(c)
		}
	}
	walk(doc.Root())

	var byIter []NodeID
	it := doc.Root().Descendants()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		byIter = append(byIter, n.ID())
	}

	// then both traversals agree
	assert.Equal(t, byIter, bySibling)
}

func TestParseRandomizedTraversalEquivalence(t *testing.T) {
	// given a deterministic stream of randomly shaped documents
	rng := rand.New(rand.NewSource(7))

	var build func(sb *strings.Builder, depth int)
	build = func(sb *strings.Builder, depth int) {
		n := rng.Intn(4)
		for i := 0; i < n; i++ {
			switch {
			case depth < 5 && rng.Intn(2) == 0:
				name := string(rune('a' + rng.Intn(6)))
				sb.WriteString("<" + name + ">")
				build(sb, depth+1)
				sb.WriteString("</" + name + ">")
			default:
				sb.WriteString("t")
			}
		}
	}

	for i := 0; i < 50; i++ {
		var sb strings.Builder
		sb.WriteString("<root>")
		build(&sb, 0)
		sb.WriteString("</root>")
		doc := mustParse(t, sb.String())

		// when collecting nodes via sibling links and via the iterator
		var bySibling []NodeID
		var walk func(n Node)
		walk = func(n Node) {
			bySibling = append(bySibling, n.ID())
			for c, ok := n.FirstChild(); ok; c, ok = c.NextSibling() {
				walk(c)
			}
		}
		walk(doc.Root())

		var byIter []NodeID
		it := doc.Root().Descendants()
		for n, ok := it.Next(); ok; n, ok = it.Next() {
			byIter = append(byIter, n.ID())
		}

		// then both traversals agree on every tree
		require.Equal(t, byIter, bySibling, "input: %s", sb.String())
	}
}

func TestIterSkipSubtree(t *testing.T) {
	// given
	doc := mustParse(t, `<r><skip><x/><y/></skip><keep/></r>`)

	// when skipping the first element child's subtree
	it := doc.Root().Descendants()
	var names []string
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		if n.HasTagName("skip") {
			it.SkipSubtree()
			continue
		}
		if n.IsElement() {
			names = append(names, n.TagName())
		}
	}

	// then the skipped element's children never surface
	assert.Equal(t, []string{"r", "keep"}, names)
}

func TestParseNamespaces(t *testing.T) {
	// given
	doc := mustParse(t, `<r xmlns="urn:default" xmlns:p="urn:p"><p:a q="1" p:q="2"/></r>`)

	// when
	root := doc.RootElement()
	a := root.ChildElements()[0]

	// then the default namespace applies to elements but not attributes
	assert.Equal(t, "urn:default", root.NamespaceURI())
	assert.Equal(t, "urn:p", a.NamespaceURI())
	v, ok := a.AttributeNS("", "q")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	v, ok = a.AttributeNS("urn:p", "q")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestParseNamespaceShadowing(t *testing.T) {
	// given a prefix rebound on a nested element
	doc := mustParse(t, `<r xmlns:p="urn:outer"><p:a><p:b xmlns:p="urn:inner"><p:c/></p:b></p:a></r>`)

	// when
	a := doc.RootElement().ChildElements()[0]
	b := a.ChildElements()[0]
	c := b.ChildElements()[0]

	// then the inner binding wins only within its subtree
	assert.Equal(t, "urn:outer", a.NamespaceURI())
	assert.Equal(t, "urn:inner", b.NamespaceURI())
	assert.Equal(t, "urn:inner", c.NamespaceURI())
}

func TestParseXMLPrefix(t *testing.T) {
	// given the predeclared xml prefix used without a declaration
	doc := mustParse(t, `<r xml:lang="en"/>`)

	// then it resolves to the fixed namespace
	v, ok := doc.RootElement().AttributeNS(nsXMLURI, "lang")
	assert.True(t, ok)
	assert.Equal(t, "en", v)
}

func TestParseReservedNamespaceErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ErrorKind
	}{
		{"xml prefix wrong uri", `<r xmlns:xml="urn:x"/>`, ErrInvalidXMLPrefixURI},
		{"xml uri other prefix", `<r xmlns:p="http://www.w3.org/XML/1998/namespace"/>`, ErrUnexpectedXMLURI},
		{"xmlns uri declared", `<r xmlns:p="http://www.w3.org/2000/xmlns/"/>`, ErrUnexpectedXmlnsURI},
		{"xmlns element prefix", `<xmlns:r/>`, ErrInvalidElementNamePrefix},
		{"duplicate prefix", `<r xmlns:p="urn:a" xmlns:p="urn:b"/>`, ErrDuplicatedNamespace},
		{"undeclared prefix", `<p:r/>`, ErrUnknownNamespace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseKind(t, tt.input))
		})
	}
}

func TestParseXMLPrefixRedeclaration(t *testing.T) {
	// given xmlns:xml bound to its own fixed URI
	doc := mustParse(t, `<r xmlns:xml="http://www.w3.org/XML/1998/namespace" xml:id="a"/>`)

	// then it is accepted as a no-op
	v, ok := doc.RootElement().AttributeNS(nsXMLURI, "id")
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestParseDuplicateAttributeAcrossPrefixes(t *testing.T) {
	// given two prefixes bound to the same URI
	input := `<r xmlns:n1="urn:x" xmlns:n2="urn:x" n1:a="1" n2:a="2"/>`

	// then the second attribute is a duplicate by expanded name
	assert.Equal(t, ErrDuplicatedAttribute, parseKind(t, input))
}

func TestParseDuplicateAttributePosition(t *testing.T) {
	// given
	input := "<root>\n  <a attr='1' attr='2'/>\n</root>"

	// when
	_, err := Parse(input)

	// then the error points at the second declaration
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrDuplicatedAttribute, xe.Kind)
	assert.Equal(t, TextPos{Line: 2, Col: 15}, xe.Pos)
}

func TestParseMismatchedCloseTag(t *testing.T) {
	// given
	_, err := Parse(`<root><a></b></root>`)

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrUnexpectedCloseTag, xe.Kind)
	assert.Equal(t, "a", xe.Expected)
	assert.Equal(t, "b", xe.Actual)
	assert.Contains(t, xe.Error(), `expected "a" tag, not "b"`)
}

func TestParseStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ErrorKind
	}{
		{"empty document", ``, ErrNoRootNode},
		{"declaration only", `<?xml version="1.0"?>`, ErrNoRootNode},
		{"comment only", `<!-- nothing here -->`, ErrNoRootNode},
		{"unclosed root", `<root>`, ErrUnclosedRootNode},
		{"unclosed child", `<root><a></root>`, ErrUnexpectedCloseTag},
		{"stray close tag", `</a>`, ErrUnexpectedEntityCloseTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseKind(t, tt.input))
		})
	}
}

func TestParseEntityCloseTag(t *testing.T) {
	// given an entity that injects a close tag
	input := `<!DOCTYPE d [<!ENTITY p "</p>">]><root>&p;</root>`

	// then the close tag cannot match the open element
	assert.Equal(t, ErrUnexpectedCloseTag, parseKind(t, input))
}

func TestParseTextNewlineNormalization(t *testing.T) {
	// given every line-ending flavor
	doc := mustParse(t, "<a>l1\r\nl2\rl3</a>")

	// then all of them normalize to a single newline
	assert.Equal(t, "l1\nl2\nl3", doc.RootElement().Text())
}

func TestParseTextNormalizationIdempotent(t *testing.T) {
	inputs := []string{
		"l1\r\nl2\rl3",
		"plain text",
		"  spaced \r out \n",
		"tabs\tstay\tput",
	}
	for _, in := range inputs {
		// given a once-normalized text run
		once := mustParse(t, "<a>"+in+"</a>").RootElement().Text()

		// when feeding it through the parser again
		twice := mustParse(t, "<a>"+once+"</a>").RootElement().Text()

		// then nothing changes
		assert.Equal(t, once, twice, "input: %q", in)
	}
}

func TestParseAttributeWhitespaceNormalization(t *testing.T) {
	// given literal whitespace in an attribute value
	doc := mustParse(t, "<a v=\"x\ty\nz\r\nw\"/>")

	// then it collapses to single spaces
	v, _ := doc.RootElement().Attribute("v")
	assert.Equal(t, "x y z w", v)
}

func TestParseCharacterReferenceKeepsWhitespace(t *testing.T) {
	// given a tab written as a character reference
	doc := mustParse(t, `<a v="x&#9;y"/>`)

	// then the decoded character is not collapsed
	v, _ := doc.RootElement().Attribute("v")
	assert.Equal(t, "x\ty", v)
}

func TestParseAttributeWhitespaceAfterReference(t *testing.T) {
	// given a literal tab right after a decoded reference
	doc := mustParse(t, "<a v=\"&#65;\tb\"/>")

	// then only the decoded byte is exempt; the tab still collapses
	v, _ := doc.RootElement().Attribute("v")
	assert.Equal(t, "A b", v)
}

func TestParseTextLineEndingAfterReference(t *testing.T) {
	// given a carriage return between a reference and more text
	doc := mustParse(t, "<a>&#65;\rX</a>")

	// then the pending return still normalizes once text follows it
	assert.Equal(t, "A\nX", doc.RootElement().Text())
}

func TestParseTextCarriageReturnBeforeReference(t *testing.T) {
	// given a carriage return directly before a reference
	doc := mustParse(t, "<a>x\r&#48;</a>")

	// then the reference's raw bytes freeze the pending return as-is
	assert.Equal(t, "x\r0", doc.RootElement().Text())
}

func TestParseCharacterReferences(t *testing.T) {
	// given decimal, hexadecimal and predefined references
	doc := mustParse(t, `<a>&lt;&#65;&#x42;&amp;</a>`)

	// then
	assert.Equal(t, "<AB&", doc.RootElement().Text())
}

func TestParseReferenceErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare ampersand", `<a>1 & 2</a>`},
		{"empty reference", `<a>&;</a>`},
		{"bad digits", `<a>&#xZZ;</a>`},
		{"out of range", `<a>&#x110000;</a>`},
		{"surrogate", `<a>&#xD800;</a>`},
		{"undeclared entity", `<a>&nope;</a>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ErrMalformedReference, parseKind(t, tt.input))
		})
	}
}

func TestParseCDATAVerbatim(t *testing.T) {
	// given references and special characters inside CDATA
	doc := mustParse(t, `<a><![CDATA[a&lt;b <c>]]></a>`)

	// then nothing is decoded
	assert.Equal(t, "a&lt;b <c>", doc.RootElement().Text())
}

func TestParseAdjacentTextMerges(t *testing.T) {
	// given text interleaved with CDATA and an entity
	doc := mustParse(t, `<!DOCTYPE d [<!ENTITY e "1">]><a>x&e;y<![CDATA[z]]>w</a>`)

	// then a single text node holds the concatenation
	root := doc.RootElement()
	kids := root.Children()
	require.Len(t, kids, 1)
	assert.Equal(t, "x1yzw", kids[0].Text())
}

func TestParseEntityWithMarkup(t *testing.T) {
	// given
	doc := mustParse(t, `<!DOCTYPE d [<!ENTITY e "<b>x</b>">]><a>&e;</a>`)

	// when
	b := doc.RootElement().ChildElements()[0]

	// then the expanded element is a regular tree node
	assert.Equal(t, "b", b.TagName())
	assert.Equal(t, "x", b.Text())
}

func TestParseWithoutDTDLeavesEntitiesMalformed(t *testing.T) {
	// given
	input := `<!DOCTYPE d [<!ENTITY e "1">]><a>&e;</a>`

	// when parsing with the DTD disabled
	_, err := ParseWithOptions(input, Options{AllowDTD: false})

	// then the unexpanded reference fails in the normalizer
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrMalformedReference, xe.Kind)
}

func TestParseNodeLimit(t *testing.T) {
	// given a limit covering the root and one element
	_, err := ParseWithOptions(`<a><b/><c/></a>`, Options{NodeLimit: 2})

	// then the second element trips it
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrNodesLimitReached, xe.Kind)
}

func TestParseCollectText(t *testing.T) {
	// given
	doc := mustParse(t, `<r>a<b>b<c>c</c></b>d</r>`)

	// then subtree text concatenates in document order
	assert.Equal(t, "abcd", doc.Root().CollectText())
}

func TestParseInputIsRetained(t *testing.T) {
	// given
	input := `<a/>`
	doc := mustParse(t, input)

	// then
	assert.Equal(t, input, doc.Input())
}
