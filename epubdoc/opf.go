package epubdoc

import (
	"archive/zip"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/deep110/rpub/xmltree"
)

// OPF-related errors.
var (
	ErrNoOPF      = errors.New("epub: missing package document (OPF)")
	ErrInvalidOPF = errors.New("epub: invalid package document")
	ErrEmptySpine = errors.New("epub: no content in spine")
)

// parseOPF parses the package document and returns the Package plus the
// directory all manifest hrefs resolve against.
func parseOPF(zr *zip.Reader, opfPath string) (*Package, string, error) {
	data, err := readArchiveFile(zr, opfPath)
	if err != nil {
		return nil, "", ErrNoOPF
	}

	baseDir := path.Dir(opfPath)
	if baseDir == "." {
		baseDir = ""
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, "", ErrInvalidOPF
	}
	doc, err := xmltree.Parse(text)
	if err != nil {
		return nil, "", ErrInvalidOPF
	}

	root := doc.RootElement()
	if !root.HasTagName("package") {
		return nil, "", ErrInvalidOPF
	}

	pkg := &Package{}
	pkg.Version, _ = root.Attribute("version")

	if meta, ok := root.FindDescendant("metadata"); ok {
		pkg.Metadata = parseMetadata(meta)
	}
	if manifest, ok := root.FindDescendant("manifest"); ok {
		pkg.Manifest = parseManifest(manifest)
	}
	spine, err := root.RequiredDescendant("spine")
	if err != nil {
		return nil, "", ErrEmptySpine
	}
	pkg.Spine, pkg.TocID = parseSpine(spine)

	if len(pkg.Spine) == 0 {
		return nil, "", ErrEmptySpine
	}
	return pkg, baseDir, nil
}

// parseMetadata reads the Dublin Core elements. Prefixes vary between
// books, so elements are matched by local name only.
func parseMetadata(meta xmltree.Node) Metadata {
	var m Metadata
	for _, child := range meta.ChildElements() {
		content := strings.TrimSpace(child.Text())
		switch child.TagName() {
		case "title":
			if m.Title == "" {
				m.Title = content
			}
		case "creator":
			if content != "" {
				m.Creator = append(m.Creator, content)
			}
		case "language":
			if m.Language == "" {
				m.Language = content
			}
		case "identifier":
			if m.Identifier == "" {
				m.Identifier = content
			}
		case "publisher":
			if m.Publisher == "" {
				m.Publisher = content
			}
		case "date":
			if m.Date == "" {
				m.Date = content
			}
		case "description":
			if m.Description == "" {
				m.Description = content
			}
		case "subject":
			if content != "" {
				m.Subjects = append(m.Subjects, content)
			}
		case "rights":
			if m.Rights == "" {
				m.Rights = content
			}
		case "meta":
			if prop, _ := child.Attribute("property"); prop == "dcterms:modified" {
				if t, err := time.Parse(time.RFC3339, content); err == nil {
					m.Modified = t
				}
			}
		}
	}
	return m
}

func parseManifest(manifest xmltree.Node) map[string]ManifestItem {
	items := make(map[string]ManifestItem)
	for _, child := range manifest.ChildElements() {
		if !child.HasTagName("item") {
			continue
		}
		mi := ManifestItem{}
		mi.ID, _ = child.Attribute("id")
		mi.Href, _ = child.Attribute("href")
		mi.MediaType, _ = child.Attribute("media-type")
		if props, ok := child.Attribute("properties"); ok {
			mi.Properties = strings.Fields(props)
		}
		if mi.ID == "" || mi.Href == "" {
			continue
		}
		items[mi.ID] = mi
	}
	return items
}

func parseSpine(spine xmltree.Node) ([]SpineItem, string) {
	tocID, _ := spine.Attribute("toc")
	var items []SpineItem
	for _, child := range spine.ChildElements() {
		if !child.HasTagName("itemref") {
			continue
		}
		idref, ok := child.Attribute("idref")
		if !ok || idref == "" {
			continue
		}
		linear, _ := child.Attribute("linear")
		items = append(items, SpineItem{
			IDRef:  idref,
			Linear: linear != "no", // linear by default
		})
	}
	return items, tocID
}
