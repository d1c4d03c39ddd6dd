package rpub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestBook(t *testing.T) string {
	t.Helper()

	entries := []struct{ name, body string }{
		{"META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`},
		{"content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Facade Test</dc:title>
    <dc:creator>An Author</dc:creator>
  </metadata>
  <manifest>
    <item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="c1"/></spine>
</package>`},
		{"c1.xhtml", `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Only Chapter</title></head>
<body><p>Hello from the facade.</p></body>
</html>`},
	}

	path := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	mw.Write([]byte("application/epub+zip"))
	for _, e := range entries {
		fw, err := w.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(e.body))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenAndReadBook(t *testing.T) {
	book, err := Open(writeTestBook(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer book.Close()

	if got := book.Metadata().Title; got != "Facade Test" {
		t.Errorf("Title = %q", got)
	}
	if book.ChapterCount() != 1 {
		t.Fatalf("ChapterCount = %d", book.ChapterCount())
	}
	text, err := book.ChapterText(0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Hello from the facade.") {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(book.Text(), "Hello from the facade.") {
		t.Errorf("book text = %q", book.Text())
	}
}

func TestTableOfContentsFallsBackToSpine(t *testing.T) {
	book, err := Open(writeTestBook(t))
	if err != nil {
		t.Fatal(err)
	}
	defer book.Close()

	toc := book.TableOfContents()
	if len(toc.Entries) != 1 {
		t.Fatalf("entries = %+v", toc.Entries)
	}
	if toc.Entries[0].Title != "Only Chapter" {
		t.Errorf("entry title = %q", toc.Entries[0].Title)
	}
}

func TestMustPanicsOnError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Must did not panic")
		}
	}()
	book, err := Open(writeTestBook(t))
	if err != nil {
		t.Fatal(err)
	}
	defer book.Close()
	Must(book.ChapterText(99))
}
