package epubdoc

import (
	"bytes"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/deep110/rpub/xmltree"
)

// Link is a hyperlink in rendered chapter text, anchored to the line its
// text starts on.
type Link struct {
	Href string
	Line int
}

// Rendered is chapter content flattened to plain text lines, together with
// the links and fragment anchors needed for in-book navigation.
type Rendered struct {
	Lines     []string
	Links     []Link
	Fragments map[string]int // element id to line index
}

// Text joins the rendered lines.
func (r *Rendered) Text() string {
	return strings.Join(r.Lines, "\n")
}

var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "tr": true,
	"section": true, "article": true, "aside": true, "figure": true,
	"figcaption": true, "table": true, "ul": true, "ol": true, "dl": true,
	"dd": true, "dt": true, "header": true, "footer": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var skipTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
}

// renderChapter flattens the body of a parsed XHTML chapter to plain text.
func renderChapter(doc *xmltree.Document) *Rendered {
	r := &renderer{}
	r.out.Fragments = make(map[string]int)
	body, ok := doc.Root().FindDescendant("body")
	if !ok {
		body = doc.Root()
	}
	r.walk(body)
	r.flushLine()
	for len(r.out.Lines) > 0 && r.out.Lines[len(r.out.Lines)-1] == "" {
		r.out.Lines = r.out.Lines[:len(r.out.Lines)-1]
	}
	return &r.out
}

type renderer struct {
	out       Rendered
	line      strings.Builder
	needSpace bool
	pre       int
}

func (r *renderer) walk(n xmltree.Node) {
	if n.IsText() {
		r.text(n.Text())
		return
	}
	local := n.TagName()
	if skipTags[local] {
		return
	}
	if id, ok := n.Attribute("id"); ok && id != "" {
		r.out.Fragments[id] = r.curLine()
	}
	switch {
	case local == "br":
		r.breakLine()
	case local == "hr":
		r.endBlock()
		r.out.Lines = append(r.out.Lines, "----")
		r.endBlock()
	case local == "img":
		if alt, ok := n.Attribute("alt"); ok && alt != "" {
			r.text("[" + alt + "]")
		} else {
			r.text("[image]")
		}
	case local == "a":
		if href, ok := n.Attribute("href"); ok && href != "" {
			r.out.Links = append(r.out.Links, Link{Href: href, Line: r.curLine()})
		}
		r.children(n)
	case local == "pre":
		r.endBlock()
		r.pre++
		r.children(n)
		r.pre--
		r.endBlock()
	case local == "li":
		r.flushLine()
		r.line.WriteString("- ")
		r.children(n)
		r.flushLine()
	case blockTags[local]:
		r.endBlock()
		r.children(n)
		r.endBlock()
	default:
		r.children(n)
	}
}

func (r *renderer) children(n xmltree.Node) {
	for c, ok := n.FirstChild(); ok; c, ok = c.NextSibling() {
		r.walk(c)
	}
}

// curLine is the index the next flushed line will get, which is where any
// text produced now ends up.
func (r *renderer) curLine() int {
	return len(r.out.Lines)
}

// text appends a text chunk to the current line. Outside pre blocks runs of
// whitespace collapse to a single space, including across adjacent chunks.
func (r *renderer) text(s string) {
	if r.pre > 0 {
		for i, part := range strings.Split(s, "\n") {
			if i > 0 {
				r.breakLine()
			}
			r.line.WriteString(part)
		}
		return
	}
	for _, c := range s {
		if unicode.IsSpace(c) {
			r.needSpace = r.line.Len() > 0
			continue
		}
		if r.needSpace {
			r.line.WriteByte(' ')
			r.needSpace = false
		}
		r.line.WriteRune(c)
	}
}

// flushLine ends the current line if it holds anything.
func (r *renderer) flushLine() {
	if r.line.Len() > 0 {
		r.out.Lines = append(r.out.Lines, r.line.String())
		r.line.Reset()
	}
	r.needSpace = false
}

// breakLine ends the current line unconditionally, so consecutive br tags
// produce empty lines.
func (r *renderer) breakLine() {
	r.out.Lines = append(r.out.Lines, r.line.String())
	r.line.Reset()
	r.needSpace = false
}

// endBlock closes the current line and separates blocks with one blank line.
func (r *renderer) endBlock() {
	r.flushLine()
	if n := len(r.out.Lines); n > 0 && r.out.Lines[n-1] != "" {
		r.out.Lines = append(r.out.Lines, "")
	}
}

// renderHTMLChapter is the lenient fallback for chapters that are not
// well-formed XML. Returns nil when even the HTML parser gives up.
func renderHTMLChapter(content []byte) *Rendered {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil
	}
	r := &renderer{}
	r.out.Fragments = make(map[string]int)
	r.walkHTML(doc)
	r.flushLine()
	for len(r.out.Lines) > 0 && r.out.Lines[len(r.out.Lines)-1] == "" {
		r.out.Lines = r.out.Lines[:len(r.out.Lines)-1]
	}
	return &r.out
}

func (r *renderer) walkHTML(n *html.Node) {
	if n.Type == html.TextNode {
		r.text(n.Data)
		return
	}
	if n.Type != html.ElementNode {
		r.htmlChildren(n)
		return
	}
	local := n.Data
	if skipTags[local] {
		return
	}
	if id := htmlAttr(n, "id"); id != "" {
		r.out.Fragments[id] = r.curLine()
	}
	switch {
	case local == "br":
		r.breakLine()
	case local == "hr":
		r.endBlock()
		r.out.Lines = append(r.out.Lines, "----")
		r.endBlock()
	case local == "img":
		if alt := htmlAttr(n, "alt"); alt != "" {
			r.text("[" + alt + "]")
		} else {
			r.text("[image]")
		}
	case local == "a":
		if href := htmlAttr(n, "href"); href != "" {
			r.out.Links = append(r.out.Links, Link{Href: href, Line: r.curLine()})
		}
		r.htmlChildren(n)
	case local == "pre":
		r.endBlock()
		r.pre++
		r.htmlChildren(n)
		r.pre--
		r.endBlock()
	case local == "li":
		r.flushLine()
		r.line.WriteString("- ")
		r.htmlChildren(n)
		r.flushLine()
	case blockTags[local]:
		r.endBlock()
		r.htmlChildren(n)
		r.endBlock()
	default:
		r.htmlChildren(n)
	}
}

func (r *renderer) htmlChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walkHTML(c)
	}
}

func htmlAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// htmlChapterTitle extracts a chapter title with the lenient parser.
func htmlChapterTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}
	var heading string
	var find func(n *html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if t := collapseSpace(htmlText(n)); t != "" {
					return t
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if heading == "" {
					heading = collapseSpace(htmlText(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	if t := find(doc); t != "" {
		return t
	}
	return heading
}
