package epubdoc

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/deep110/rpub/xmltree"
)

// Reader-related errors.
var (
	ErrInvalidArchive  = errors.New("epub: invalid or corrupted archive")
	ErrInvalidMimetype = errors.New("epub: invalid mimetype (not an EPUB)")
	ErrMissingContent  = errors.New("epub: referenced content file not found")
	ErrNoChapter       = errors.New("epub: chapter index out of range")
)

// Options configures how an EPUB is opened.
type Options struct {
	// Strict fails on chapters that are not well-formed XHTML instead of
	// retrying them with the lenient HTML parser.
	Strict bool

	// NodeLimit caps the node count of any single parsed document.
	// Zero means unlimited.
	NodeLimit uint32
}

// Reader provides access to EPUB content.
type Reader struct {
	zr       *zip.ReadCloser
	zrReader *zip.Reader // For when opened from io.ReaderAt
	opts     Options
	pkg      *Package
	baseDir  string // Directory containing OPF (for resolving relative paths)
	chapters []*Chapter
	toc      *TableOfContents
}

// Open opens an EPUB file from a path.
func Open(filePath string) (*Reader, error) {
	return OpenWithOptions(filePath, Options{})
}

// OpenWithOptions opens an EPUB file from a path with explicit options.
func OpenWithOptions(filePath string, opts Options) (*Reader, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, ErrInvalidArchive
	}

	r := &Reader{zr: zr, opts: opts}
	if err := r.init(&zr.Reader); err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

// OpenReader opens an EPUB from an io.ReaderAt.
func OpenReader(ra io.ReaderAt, size int64) (*Reader, error) {
	return OpenReaderWithOptions(ra, size, Options{})
}

// OpenReaderWithOptions opens an EPUB from an io.ReaderAt with explicit
// options.
func OpenReaderWithOptions(ra io.ReaderAt, size int64, opts Options) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, ErrInvalidArchive
	}

	r := &Reader{zrReader: zr, opts: opts}
	if err := r.init(zr); err != nil {
		return nil, err
	}
	return r, nil
}

// init initializes the reader by parsing the EPUB structure.
func (r *Reader) init(zr *zip.Reader) error {
	// Some EPUBs in the wild lack or mangle the mimetype entry, so it is
	// only enforced in strict mode.
	if err := r.validateMimetype(zr); err != nil && r.opts.Strict {
		return err
	}

	if err := checkForDRM(zr); err != nil {
		return err
	}

	opfPath, err := parseContainer(zr)
	if err != nil {
		return err
	}

	pkg, baseDir, err := parseOPF(zr, opfPath)
	if err != nil {
		return err
	}
	r.pkg = pkg
	r.baseDir = baseDir

	return r.loadChapters(zr)
}

// validateMimetype checks the archive's mimetype entry.
func (r *Reader) validateMimetype(zr *zip.Reader) error {
	data, err := readArchiveFile(zr, "mimetype")
	if err != nil {
		return ErrInvalidMimetype
	}
	if strings.TrimSpace(string(data)) != "application/epub+zip" {
		return ErrInvalidMimetype
	}
	return nil
}

// loadChapters reads and parses every spine item. In strict mode a
// malformed chapter aborts the open; otherwise it is retried with the
// lenient HTML parser.
func (r *Reader) loadChapters(zr *zip.Reader) error {
	r.chapters = make([]*Chapter, 0, len(r.pkg.Spine))

	for i, spineItem := range r.pkg.Spine {
		item, ok := r.pkg.Manifest[spineItem.IDRef]
		if !ok {
			continue // Skip unresolvable spine entries
		}

		href := r.resolveHref(item.Href)
		content, err := r.readFile(zr, href)
		if err != nil {
			if r.opts.Strict {
				return fmt.Errorf("epub: chapter %s: %w", href, err)
			}
			continue
		}

		chapter := &Chapter{
			ID:      item.ID,
			Index:   i,
			Href:    href,
			Content: content,
		}

		doc, err := r.parseChapter(content)
		if err != nil {
			if r.opts.Strict {
				return fmt.Errorf("epub: chapter %s: %w", href, err)
			}
			chapter.rendered = renderHTMLChapter(content)
			if chapter.rendered == nil {
				chapter.rendered = &Rendered{}
			}
			chapter.Title = htmlChapterTitle(content)
		} else {
			chapter.rendered = renderChapter(doc)
			chapter.Title = chapterTitle(doc)
		}

		r.chapters = append(r.chapters, chapter)
	}

	if len(r.chapters) == 0 {
		return ErrEmptySpine
	}
	return nil
}

// parseChapter parses one XHTML content document. The DTD is enabled since
// XHTML books routinely declare named entities in their DOCTYPE.
func (r *Reader) parseChapter(content []byte) (*xmltree.Document, error) {
	text, err := decodeText(content)
	if err != nil {
		return nil, err
	}
	return xmltree.ParseWithOptions(text, xmltree.Options{
		AllowDTD:  true,
		NodeLimit: r.opts.NodeLimit,
	})
}

// chapterTitle pulls a display title from a parsed chapter: the head title
// when present, otherwise the first heading.
func chapterTitle(doc *xmltree.Document) string {
	if title, ok := doc.Root().FindDescendant("title"); ok {
		if t := collapseSpace(title.CollectText()); t != "" {
			return t
		}
	}
	it := doc.Root().Descendants()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		switch n.TagName() {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if t := collapseSpace(n.CollectText()); t != "" {
				return t
			}
		}
	}
	return ""
}

// resolveHref resolves a relative href against the OPF base directory.
func (r *Reader) resolveHref(href string) string {
	// URL-decode the href
	if decoded, err := url.QueryUnescape(href); err == nil {
		href = decoded
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}

	if r.baseDir == "" {
		return href
	}
	return path.Join(r.baseDir, href)
}

// readFile reads a file from the ZIP archive.
func (r *Reader) readFile(zr *zip.Reader, name string) ([]byte, error) {
	return readArchiveFile(zr, name)
}

// readArchiveFile reads one named entry out of the archive.
func readArchiveFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, ErrMissingContent
}

// Close closes the reader and releases resources.
func (r *Reader) Close() error {
	if r.zr != nil {
		return r.zr.Close()
	}
	return nil
}

// Metadata returns the EPUB metadata.
func (r *Reader) Metadata() Metadata {
	return r.pkg.Metadata
}

// Version returns the EPUB version string from the package document.
func (r *Reader) Version() string {
	return r.pkg.Version
}

// ChapterCount returns the number of chapters.
func (r *Reader) ChapterCount() int {
	return len(r.chapters)
}

// Chapters returns all chapters.
func (r *Reader) Chapters() []*Chapter {
	return r.chapters
}

// RenderChapter returns the rendered form of chapter i.
func (r *Reader) RenderChapter(i int) (*Rendered, error) {
	if i < 0 || i >= len(r.chapters) {
		return nil, ErrNoChapter
	}
	return r.chapters[i].rendered, nil
}

// ChapterText returns the plain text of chapter i.
func (r *Reader) ChapterText(i int) (string, error) {
	rendered, err := r.RenderChapter(i)
	if err != nil {
		return "", err
	}
	return rendered.Text(), nil
}

// Text extracts plain text from all chapters, separated by blank lines.
func (r *Reader) Text() string {
	var parts []string
	for _, chapter := range r.chapters {
		if t := strings.TrimSpace(chapter.rendered.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// getZipReader returns the appropriate zip.Reader.
func (r *Reader) getZipReader() *zip.Reader {
	if r.zr != nil {
		return &r.zr.Reader
	}
	return r.zrReader
}
