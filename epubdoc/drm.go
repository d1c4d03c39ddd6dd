package epubdoc

import (
	"archive/zip"
	"errors"
	"strings"

	"github.com/deep110/rpub/xmltree"
)

// DRM-related errors.
var (
	ErrDRMProtected = errors.New("epub: DRM-protected content cannot be processed")
)

// checkForDRM rejects archives whose content files are encrypted. Font
// obfuscation is tolerated; an Adobe rights.xml is an immediate reject.
func checkForDRM(zr *zip.Reader) error {
	for _, f := range zr.File {
		switch f.Name {
		case "META-INF/rights.xml":
			return ErrDRMProtected
		case "META-INF/encryption.xml":
			encrypted, err := hasEncryptedContent(zr)
			if err != nil {
				// An unreadable encryption manifest is treated as DRM.
				return ErrDRMProtected
			}
			if encrypted {
				return ErrDRMProtected
			}
		}
	}
	return nil
}

// hasEncryptedContent reports whether encryption.xml covers any content
// file, as opposed to obfuscated fonts.
func hasEncryptedContent(zr *zip.Reader) (bool, error) {
	data, err := readArchiveFile(zr, "META-INF/encryption.xml")
	if err != nil {
		return false, err
	}
	text, err := decodeText(data)
	if err != nil {
		return false, err
	}
	doc, err := xmltree.Parse(text)
	if err != nil {
		return false, err
	}

	it := doc.Root().Descendants()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		if !n.HasTagName("EncryptedData") {
			continue
		}
		var algorithm, uri string
		if method, ok := n.FindDescendant("EncryptionMethod"); ok {
			algorithm, _ = method.Attribute("Algorithm")
		}
		if ref, ok := n.FindDescendant("CipherReference"); ok {
			uri, _ = ref.Attribute("URI")
		}
		if isFontObfuscation(algorithm) {
			it.SkipSubtree()
			continue
		}
		if isContentFile(uri) {
			return true, nil
		}
		it.SkipSubtree()
	}
	return false, nil
}

// isFontObfuscation reports whether the algorithm is one of the known font
// obfuscation schemes, which are not DRM.
func isFontObfuscation(algorithm string) bool {
	if strings.Contains(algorithm, "adobe.com") && strings.Contains(algorithm, "obfuscation") {
		return true
	}
	if strings.Contains(algorithm, "idpf.org") && strings.Contains(algorithm, "obfuscation") {
		return true
	}
	return false
}

// isContentFile reports whether an encrypted URI points at a reading-order
// resource rather than a font or image.
func isContentFile(uri string) bool {
	uri = strings.ToLower(uri)
	switch {
	case strings.HasSuffix(uri, ".xhtml"),
		strings.HasSuffix(uri, ".html"),
		strings.HasSuffix(uri, ".htm"),
		strings.HasSuffix(uri, ".xml"),
		strings.HasSuffix(uri, ".css"):
		return true
	}
	return false
}
