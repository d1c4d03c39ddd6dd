// Command rpub prints EPUB metadata, navigation, or chapter text.
//
// Usage:
//
//	rpub [flags] book.epub
//
// With no flags the whole book's text is printed.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/deep110/rpub"
	"github.com/deep110/rpub/epubdoc"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rpub", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		meta    = fs.Bool("meta", false, "print book metadata")
		toc     = fs.Bool("toc", false, "print the table of contents")
		chapter = fs.Int("chapter", -1, "print the text of one chapter (0-based)")
		strict  = fs.Bool("strict", false, "reject books with malformed chapters")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: rpub [flags] book.epub")
		fs.PrintDefaults()
		return 2
	}

	book, err := rpub.OpenWithOptions(fs.Arg(0), rpub.Options{Strict: *strict})
	if err != nil {
		fmt.Fprintf(stderr, "rpub: %v\n", err)
		return 1
	}
	defer book.Close()

	switch {
	case *meta:
		printMetadata(stdout, book)
	case *toc:
		printEntries(stdout, book.TableOfContents().Entries, 0)
	case *chapter >= 0:
		text, err := book.ChapterText(*chapter)
		if err != nil {
			fmt.Fprintf(stderr, "rpub: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, text)
	default:
		fmt.Fprintln(stdout, book.Text())
	}
	return 0
}

func printMetadata(w io.Writer, book *rpub.Book) {
	m := book.Metadata()
	fmt.Fprintf(w, "Title:      %s\n", m.Title)
	if len(m.Creator) > 0 {
		fmt.Fprintf(w, "Creator:    %s\n", strings.Join(m.Creator, ", "))
	}
	if m.Language != "" {
		fmt.Fprintf(w, "Language:   %s\n", m.Language)
	}
	if m.Identifier != "" {
		fmt.Fprintf(w, "Identifier: %s\n", m.Identifier)
	}
	if m.Publisher != "" {
		fmt.Fprintf(w, "Publisher:  %s\n", m.Publisher)
	}
	if m.Date != "" {
		fmt.Fprintf(w, "Date:       %s\n", m.Date)
	}
	fmt.Fprintf(w, "Version:    %s\n", book.Version())
	fmt.Fprintf(w, "Chapters:   %d\n", book.ChapterCount())
}

func printEntries(w io.Writer, entries []epubdoc.TOCEntry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		if e.Href != "" {
			fmt.Fprintf(w, "%s%s (%s)\n", indent, e.Title, e.Href)
		} else {
			fmt.Fprintf(w, "%s%s\n", indent, e.Title)
		}
		printEntries(w, e.Children, depth+1)
	}
}
