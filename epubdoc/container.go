package epubdoc

import (
	"archive/zip"
	"errors"

	"github.com/deep110/rpub/xmltree"
)

// Container-related errors.
var (
	ErrNoContainer      = errors.New("epub: missing META-INF/container.xml")
	ErrInvalidContainer = errors.New("epub: invalid container.xml")
	ErrNoRootfile       = errors.New("epub: no rootfile found in container.xml")
)

const opfMediaType = "application/oebps-package+xml"

// parseContainer parses META-INF/container.xml and returns the path of the
// package document inside the archive.
func parseContainer(zr *zip.Reader) (string, error) {
	data, err := readArchiveFile(zr, "META-INF/container.xml")
	if err != nil {
		return "", ErrNoContainer
	}

	text, err := decodeText(data)
	if err != nil {
		return "", ErrInvalidContainer
	}
	doc, err := xmltree.Parse(text)
	if err != nil {
		return "", ErrInvalidContainer
	}

	// Prefer the rootfile carrying the OPF media type.
	var first string
	it := doc.Root().Descendants()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		if !n.HasTagName("rootfile") {
			continue
		}
		fullPath, _ := n.Attribute("full-path")
		if fullPath == "" {
			continue
		}
		if first == "" {
			first = fullPath
		}
		mediaType, _ := n.Attribute("media-type")
		if mediaType == opfMediaType || mediaType == "" {
			return fullPath, nil
		}
	}
	if first != "" {
		return first, nil
	}
	return "", ErrNoRootfile
}
