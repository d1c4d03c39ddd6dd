package rpub

import (
	"github.com/deep110/rpub/epubdoc"
)

// Options holds configuration for opening a book.
type Options struct {
	// Strict rejects books whose chapters are not well-formed XHTML.
	// By default such chapters are reparsed leniently as HTML.
	Strict bool

	// NodeLimit caps the node count of any single parsed document,
	// guarding against pathological inputs. Zero means unlimited.
	NodeLimit uint32
}

// epub converts to the lower-level reader options.
func (o Options) epub() epubdoc.Options {
	return epubdoc.Options{
		Strict:    o.Strict,
		NodeLimit: o.NodeLimit,
	}
}
