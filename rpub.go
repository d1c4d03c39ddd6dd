// Package rpub reads EPUB e-books: metadata, navigation, and chapter text.
//
// Basic usage:
//
//	book, err := rpub.Open("novel.epub")
//	if err != nil {
//	    // handle error
//	}
//	defer book.Close()
//	fmt.Println(book.Metadata().Title)
//	text, err := book.ChapterText(0)
//
// With options:
//
//	book, err := rpub.OpenWithOptions("novel.epub", rpub.Options{
//	    Strict: true,
//	})
//
// For lower-level access to the package document, manifest and rendered
// chapters, the epubdoc package is also available; the xmltree package
// underneath it is a general namespace-aware XML parser.
package rpub

import (
	"io"

	"github.com/deep110/rpub/epubdoc"
)

// Book is an opened EPUB.
type Book struct {
	r *epubdoc.Reader
}

// Open opens an EPUB file with default options. The returned Book must be
// closed when done.
func Open(filename string) (*Book, error) {
	return OpenWithOptions(filename, Options{})
}

// OpenWithOptions opens an EPUB file with explicit options.
func OpenWithOptions(filename string, opts Options) (*Book, error) {
	r, err := epubdoc.OpenWithOptions(filename, opts.epub())
	if err != nil {
		return nil, err
	}
	return &Book{r: r}, nil
}

// FromReaderAt opens an EPUB from an io.ReaderAt, for archives that are not
// files on disk.
func FromReaderAt(ra io.ReaderAt, size int64, opts Options) (*Book, error) {
	r, err := epubdoc.OpenReaderWithOptions(ra, size, opts.epub())
	if err != nil {
		return nil, err
	}
	return &Book{r: r}, nil
}

// Close releases the underlying archive.
func (b *Book) Close() error {
	return b.r.Close()
}

// Metadata returns the book's Dublin Core metadata.
func (b *Book) Metadata() epubdoc.Metadata {
	return b.r.Metadata()
}

// Version returns the EPUB version string, "2.0" or "3.0" for most books.
func (b *Book) Version() string {
	return b.r.Version()
}

// TableOfContents returns the book's navigation structure.
func (b *Book) TableOfContents() *epubdoc.TableOfContents {
	return b.r.TableOfContents()
}

// ChapterCount returns the number of readable chapters.
func (b *Book) ChapterCount() int {
	return b.r.ChapterCount()
}

// Chapters returns all chapters in spine order.
func (b *Book) Chapters() []*epubdoc.Chapter {
	return b.r.Chapters()
}

// ChapterText returns the plain text of chapter i.
func (b *Book) ChapterText(i int) (string, error) {
	return b.r.ChapterText(i)
}

// RenderChapter returns chapter i as rendered lines with links and
// fragment anchors, for pagination or in-book navigation.
func (b *Book) RenderChapter(i int) (*epubdoc.Rendered, error) {
	return b.r.RenderChapter(i)
}

// Text returns the plain text of the whole book, chapters separated by
// blank lines.
func (b *Book) Text() string {
	return b.r.Text()
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	text := rpub.Must(book.ChapterText(0))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
