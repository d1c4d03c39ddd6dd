package epubdoc

import (
	"archive/zip"
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/deep110/rpub/xmltree"
)

// parseNavigation builds the table of contents, trying the EPUB 3 nav
// document first, then the EPUB 2 NCX, then the spine itself.
func (r *Reader) parseNavigation(zr *zip.Reader) *TableOfContents {
	if navItem := r.findNavDocument(); navItem != nil {
		if content, err := r.readFile(zr, r.resolveHref(navItem.Href)); err == nil {
			if toc := parseNavDocument(content); toc != nil {
				return toc
			}
		}
	}
	if ncxItem := r.findNCX(); ncxItem != nil {
		if content, err := r.readFile(zr, r.resolveHref(ncxItem.Href)); err == nil {
			if toc := parseNCX(content); toc != nil {
				return toc
			}
		}
	}
	return r.generateTOCFromSpine()
}

// findNavDocument finds the EPUB 3 nav document in the manifest.
func (r *Reader) findNavDocument() *ManifestItem {
	for _, item := range r.pkg.Manifest {
		for _, prop := range item.Properties {
			if prop == "nav" {
				return &item
			}
		}
	}
	return nil
}

// findNCX finds the NCX document, preferring the id named by the spine's
// toc attribute.
func (r *Reader) findNCX() *ManifestItem {
	if r.pkg.TocID != "" {
		if item, ok := r.pkg.Manifest[r.pkg.TocID]; ok {
			return &item
		}
	}
	for _, item := range r.pkg.Manifest {
		if item.MediaType == "application/x-dtbncx+xml" {
			return &item
		}
	}
	return nil
}

// parseNavDocument parses an EPUB 3 nav document. Well-formed XHTML goes
// through the XML parser; anything else gets one more chance with the
// lenient HTML parser. Returns nil when no toc nav is found.
func parseNavDocument(content []byte) *TableOfContents {
	if text, err := decodeText(content); err == nil {
		if doc, err := xmltree.Parse(text); err == nil {
			if toc := navFromTree(doc); toc != nil {
				return toc
			}
			return nil
		}
	}
	return navFromHTML(content)
}

// navFromTree extracts the toc nav from a parsed XHTML document.
func navFromTree(doc *xmltree.Document) *TableOfContents {
	nav, ok := findTocNav(doc.Root())
	if !ok {
		return nil
	}
	toc := &TableOfContents{}
	for _, child := range nav.ChildElements() {
		switch child.TagName() {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if toc.Title == "" {
				toc.Title = collapseSpace(child.CollectText())
			}
		case "ol":
			if toc.Entries == nil {
				toc.Entries = listEntries(child)
			}
		}
	}
	return toc
}

// findTocNav looks for a nav element with an epub:type (or plain type)
// containing "toc"; a lone nav without the attribute also qualifies.
func findTocNav(root xmltree.Node) (xmltree.Node, bool) {
	var fallback xmltree.Node
	var haveFallback bool
	it := root.Descendants()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		if !n.HasTagName("nav") {
			continue
		}
		typ, ok := n.Attribute("type")
		if !ok {
			if !haveFallback {
				fallback, haveFallback = n, true
			}
			continue
		}
		if strings.Contains(typ, "toc") {
			return n, true
		}
	}
	return fallback, haveFallback
}

// listEntries converts an ol element into TOC entries, one per li.
func listEntries(ol xmltree.Node) []TOCEntry {
	var entries []TOCEntry
	for _, li := range ol.ChildElements() {
		if !li.HasTagName("li") {
			continue
		}
		var entry TOCEntry
		for _, child := range li.ChildElements() {
			switch child.TagName() {
			case "a":
				entry.Title = collapseSpace(child.CollectText())
				entry.Href, _ = child.Attribute("href")
			case "span":
				if entry.Title == "" {
					entry.Title = collapseSpace(child.CollectText())
				}
			case "ol":
				entry.Children = listEntries(child)
			}
		}
		if entry.Title != "" || entry.Href != "" || len(entry.Children) > 0 {
			entries = append(entries, entry)
		}
	}
	return entries
}

// parseNCX parses an EPUB 2 NCX document. Returns nil when the document is
// unusable.
func parseNCX(content []byte) *TableOfContents {
	text, err := decodeText(content)
	if err != nil {
		return nil
	}
	doc, err := xmltree.Parse(text)
	if err != nil {
		return nil
	}
	root := doc.RootElement()
	if !root.HasTagName("ncx") {
		return nil
	}

	toc := &TableOfContents{}
	if title, ok := root.FindDescendant("docTitle"); ok {
		toc.Title = collapseSpace(title.CollectText())
	}
	if navMap, ok := root.FindDescendant("navMap"); ok {
		toc.Entries = navPoints(navMap)
	}
	return toc
}

// navPoints converts the navPoint children of a node into TOC entries,
// recursing for nested points.
func navPoints(parent xmltree.Node) []TOCEntry {
	var entries []TOCEntry
	for _, np := range parent.ChildElements() {
		if !np.HasTagName("navPoint") {
			continue
		}
		var entry TOCEntry
		for _, child := range np.ChildElements() {
			switch child.TagName() {
			case "navLabel":
				entry.Title = collapseSpace(child.CollectText())
			case "content":
				entry.Href, _ = child.Attribute("src")
			}
		}
		entry.Children = navPoints(np)
		entries = append(entries, entry)
	}
	return entries
}

// navFromHTML is the lenient fallback for nav documents that are not
// well-formed XML.
func navFromHTML(content []byte) *TableOfContents {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil
	}
	nav := findHTMLTocNav(doc)
	if nav == nil {
		return nil
	}
	toc := &TableOfContents{}
	for c := nav.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if toc.Title == "" {
				toc.Title = collapseSpace(htmlText(c))
			}
		case "ol":
			if toc.Entries == nil {
				toc.Entries = htmlListEntries(c)
			}
		}
	}
	return toc
}

func findHTMLTocNav(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "nav" {
		for _, attr := range n.Attr {
			if (attr.Key == "epub:type" || attr.Key == "type") && strings.Contains(attr.Val, "toc") {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findHTMLTocNav(c); found != nil {
			return found
		}
	}
	return nil
}

func htmlListEntries(ol *html.Node) []TOCEntry {
	var entries []TOCEntry
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		var entry TOCEntry
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "a":
				entry.Title = collapseSpace(htmlText(c))
				for _, attr := range c.Attr {
					if attr.Key == "href" {
						entry.Href = attr.Val
					}
				}
			case "span":
				if entry.Title == "" {
					entry.Title = collapseSpace(htmlText(c))
				}
			case "ol":
				entry.Children = htmlListEntries(c)
			}
		}
		if entry.Title != "" || entry.Href != "" || len(entry.Children) > 0 {
			entries = append(entries, entry)
		}
	}
	return entries
}

func htmlText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(htmlText(c))
	}
	return sb.String()
}

// collapseSpace trims and collapses interior whitespace runs.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// generateTOCFromSpine creates a flat TOC from the spine when no navigation
// document is usable.
func (r *Reader) generateTOCFromSpine() *TableOfContents {
	toc := &TableOfContents{
		Title:   r.pkg.Metadata.Title,
		Entries: make([]TOCEntry, 0, len(r.chapters)),
	}
	for _, chapter := range r.chapters {
		title := chapter.Title
		if title == "" {
			title = chapter.ID
		}
		toc.Entries = append(toc.Entries, TOCEntry{Title: title, Href: chapter.Href})
	}
	return toc
}

// TableOfContents returns the book's navigation structure, parsing it on
// first use.
func (r *Reader) TableOfContents() *TableOfContents {
	if r.toc == nil {
		r.toc = r.parseNavigation(r.getZipReader())
	}
	return r.toc
}
