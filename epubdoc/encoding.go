package epubdoc

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Encoding-related errors.
var (
	ErrUndecodableText = errors.New("epub: content is not valid text in any detected encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts a raw content file to a UTF-8 string. Valid UTF-8
// passes through untouched apart from BOM stripping; anything else goes
// through charset detection and transcoding.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	enc, _, _ := charset.DetermineEncoding(data, "")
	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", ErrUndecodableText
	}
	if !utf8.Valid(decoded) {
		return "", ErrUndecodableText
	}
	return string(decoded), nil
}
