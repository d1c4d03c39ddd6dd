package xmltree

import (
	"strings"
	"unicode/utf8"
)

// EventKind identifies a lexical event.
type EventKind uint8

const (
	EventElementStart EventKind = iota
	EventAttribute
	EventElementEnd
	EventText
)

// ElementEndKind discriminates the three ways an element production ends.
type ElementEndKind uint8

const (
	// EndOpen is the ">" closing a start tag; children follow.
	EndOpen ElementEndKind = iota
	// EndClose is a "</prefix:local>" close tag.
	EndClose
	// EndEmpty is the "/>" of a self-closing element.
	EndEmpty
)

// Event is one lexical parse event. Only the fields relevant to Kind are
// meaningful. Offset is a byte offset into the original document text, kept
// so a line/column position can be computed lazily on error.
type Event struct {
	Kind   EventKind
	Prefix string
	Local  string
	Value  string // raw attribute value or raw text chunk
	End    ElementEndKind
	Offset int
	Raw    bool // text from a CDATA section; not subject to reference decoding
}

// EventSink consumes the tokenizer's event stream one event at a time. The
// production implementation is the tree builder; tests use trivial recording
// sinks.
type EventSink interface {
	Event(ev *Event) error
}

// Tokenize scans a complete XML document and pushes its lexical events into
// sink. It validates everything below the tree level: name tokens, markup
// structure, character ranges, the prolog, and the DOCTYPE internal subset.
func Tokenize(text string, opts Options, sink EventSink) error {
	tk := &tokenizer{text: text, src: text, opts: opts, sink: sink}
	return tk.run()
}

// maxEntityDepth bounds nested entity expansion as a guard against
// reference loops and expansion blowup.
const maxEntityDepth = 10

type tokenizer struct {
	text string // current stream: the document or an entity value
	src  string // the document text, for positions
	pos  int
	opts Options
	sink EventSink

	entities  map[string]string
	sawSubset bool

	depth     int  // entity expansion depth
	refOffset int  // position reported for everything inside an entity
	inEntity  bool
	elemDepth int  // open elements in the main stream
	afterRoot bool // the root element has been closed
}

func (tk *tokenizer) run() error {
	if strings.HasPrefix(tk.text, "\uFEFF") {
		tk.pos = len("\uFEFF")
	}
	if err := tk.parseProlog(); err != nil {
		return err
	}
	return tk.parseContent()
}

// offset maps a position in the current stream to a document offset. Events
// produced while expanding an entity all report the reference's position.
func (tk *tokenizer) offset(p int) int {
	if tk.inEntity {
		return tk.refOffset
	}
	return p
}

func (tk *tokenizer) errAt(kind ErrorKind, p int) *Error {
	return &Error{Kind: kind, Pos: textPosAt(tk.src, tk.offset(p))}
}

func (tk *tokenizer) errEOF() *Error {
	return &Error{Kind: ErrUnexpectedEOF, Pos: textPosAt(tk.src, len(tk.src))}
}

func (tk *tokenizer) atEnd() bool {
	return tk.pos >= len(tk.text)
}

func (tk *tokenizer) cur() byte {
	return tk.text[tk.pos]
}

func (tk *tokenizer) startsWith(s string) bool {
	return strings.HasPrefix(tk.text[tk.pos:], s)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// skipSpaces advances over whitespace and reports whether any was skipped.
func (tk *tokenizer) skipSpaces() bool {
	start := tk.pos
	for !tk.atEnd() && isSpace(tk.cur()) {
		tk.pos++
	}
	return tk.pos != start
}

func (tk *tokenizer) consumeByte(want byte) error {
	if tk.atEnd() {
		return tk.errEOF()
	}
	if c := tk.cur(); c != want {
		err := tk.errAt(ErrInvalidChar, tk.pos)
		err.Expected = string(want)
		err.Actual = string(c)
		return err
	}
	tk.pos++
	return nil
}

func isNameStart(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		r >= 0x80
}

func isNameChar(r rune) bool {
	return isNameStart(r) || (r >= '0' && r <= '9') || r == '-' || r == '.'
}

// readName reads one colon-free name token.
func (tk *tokenizer) readName() (string, error) {
	start := tk.pos
	r, size := utf8.DecodeRuneInString(tk.text[tk.pos:])
	if size == 0 {
		return "", tk.errEOF()
	}
	if !isNameStart(r) {
		return "", tk.errAt(ErrInvalidName, start)
	}
	tk.pos += size
	for !tk.atEnd() {
		r, size = utf8.DecodeRuneInString(tk.text[tk.pos:])
		if !isNameChar(r) {
			break
		}
		tk.pos += size
	}
	return tk.text[start:tk.pos], nil
}

// readQName reads a qualified name and splits it into prefix and local part.
func (tk *tokenizer) readQName() (prefix, local string, err error) {
	first, err := tk.readName()
	if err != nil {
		return "", "", err
	}
	if tk.atEnd() || tk.cur() != ':' {
		return "", first, nil
	}
	tk.pos++
	second, err := tk.readName()
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

// parseProlog handles the optional XML declaration, misc items and the
// DOCTYPE before the root element.
func (tk *tokenizer) parseProlog() error {
	if tk.startsWith("<?xml") && tk.declarationFollows() {
		if err := tk.parseDeclaration(); err != nil {
			return err
		}
	}
	doctypeSeen := false
	for {
		tk.skipSpaces()
		switch {
		case tk.startsWith("<!--"):
			if err := tk.parseComment(); err != nil {
				return err
			}
		case tk.startsWith("<!DOCTYPE"):
			if doctypeSeen {
				return tk.errAt(ErrUnknownToken, tk.pos)
			}
			doctypeSeen = true
			if err := tk.parseDoctype(); err != nil {
				return err
			}
		case tk.startsWith("<?"):
			if err := tk.parsePI(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// declarationFollows distinguishes "<?xml " from PI targets that merely
// start with xml, such as xml-stylesheet.
func (tk *tokenizer) declarationFollows() bool {
	rest := tk.text[tk.pos+len("<?xml"):]
	return rest != "" && isSpace(rest[0])
}

func (tk *tokenizer) parseDeclaration() error {
	tk.pos += len("<?xml")
	for {
		tk.skipSpaces()
		if tk.atEnd() {
			return tk.errEOF()
		}
		if tk.startsWith("?>") {
			tk.pos += 2
			return nil
		}
		keyStart := tk.pos
		key, err := tk.readName()
		if err != nil {
			return err
		}
		tk.skipSpaces()
		if err := tk.consumeByte('='); err != nil {
			return err
		}
		tk.skipSpaces()
		value, _, err := tk.readQuoted()
		if err != nil {
			return err
		}
		switch key {
		case "version":
			if !strings.HasPrefix(value, "1.") {
				e := tk.errAt(ErrInvalidString, keyStart)
				e.Expected = "1."
				return e
			}
		case "standalone":
			if value != "yes" && value != "no" {
				e := tk.errAt(ErrInvalidString, keyStart)
				e.Expected = "yes or no"
				return e
			}
		case "encoding":
			// The input is already decoded; the label is informational.
		default:
			return tk.errAt(ErrUnknownToken, keyStart)
		}
	}
}

// readQuoted reads a single- or double-quoted string and returns its content
// and the content's start position.
func (tk *tokenizer) readQuoted() (string, int, error) {
	if tk.atEnd() {
		return "", 0, tk.errEOF()
	}
	q := tk.cur()
	if q != '"' && q != '\'' {
		err := tk.errAt(ErrInvalidChar, tk.pos)
		err.Expected = "\""
		err.Actual = string(q)
		return "", 0, err
	}
	tk.pos++
	start := tk.pos
	idx := strings.IndexByte(tk.text[tk.pos:], q)
	if idx < 0 {
		return "", 0, tk.errEOF()
	}
	tk.pos += idx + 1
	return tk.text[start : start+idx], start, nil
}

func (tk *tokenizer) parseComment() error {
	start := tk.pos
	tk.pos += len("<!--")
	for {
		idx := strings.Index(tk.text[tk.pos:], "--")
		if idx < 0 {
			return tk.errEOF()
		}
		tk.pos += idx + 2
		if tk.atEnd() {
			return tk.errEOF()
		}
		if tk.cur() == '>' {
			tk.pos++
			return nil
		}
		// "--" is not allowed inside a comment
		err := tk.errAt(ErrInvalidString, start)
		err.Expected = "-->"
		return err
	}
}

func (tk *tokenizer) parsePI() error {
	start := tk.pos
	tk.pos += len("<?")
	target, err := tk.readName()
	if err != nil {
		return err
	}
	if strings.EqualFold(target, "xml") {
		return tk.errAt(ErrUnexpectedDeclaration, start)
	}
	idx := strings.Index(tk.text[tk.pos:], "?>")
	if idx < 0 {
		return tk.errEOF()
	}
	tk.pos += idx + 2
	return nil
}

// parseDoctype scans a DOCTYPE declaration. The internal subset is always
// consumed syntactically; its entity declarations are collected only when
// Options.AllowDTD is set.
func (tk *tokenizer) parseDoctype() error {
	tk.pos += len("<!DOCTYPE")
	if !tk.skipSpaces() {
		return tk.errAt(ErrInvalidName, tk.pos)
	}
	if _, err := tk.readName(); err != nil {
		return err
	}
	tk.skipSpaces()
	if tk.startsWith("SYSTEM") || tk.startsWith("PUBLIC") {
		if err := tk.parseExternalID(); err != nil {
			return err
		}
		tk.skipSpaces()
	}
	if !tk.atEnd() && tk.cur() == '[' {
		tk.pos++
		if tk.opts.AllowDTD {
			tk.sawSubset = true
			if tk.entities == nil {
				tk.entities = make(map[string]string)
			}
		}
		if err := tk.parseInternalSubset(); err != nil {
			return err
		}
		tk.skipSpaces()
	}
	return tk.consumeByte('>')
}

func (tk *tokenizer) parseExternalID() error {
	kind := tk.text[tk.pos : tk.pos+len("SYSTEM")]
	tk.pos += len(kind)
	if !tk.skipSpaces() {
		return tk.errAt(ErrInvalidChar, tk.pos)
	}
	if _, _, err := tk.readQuoted(); err != nil {
		return err
	}
	if kind == "PUBLIC" {
		tk.skipSpaces()
		if _, _, err := tk.readQuoted(); err != nil {
			return err
		}
	}
	return nil
}

func (tk *tokenizer) parseInternalSubset() error {
	for {
		tk.skipSpaces()
		if tk.atEnd() {
			return tk.errEOF()
		}
		switch {
		case tk.cur() == ']':
			tk.pos++
			return nil
		case tk.startsWith("<!ENTITY"):
			if err := tk.parseEntityDecl(); err != nil {
				return err
			}
		case tk.startsWith("<!--"):
			if err := tk.parseComment(); err != nil {
				return err
			}
		case tk.startsWith("<?"):
			if err := tk.parsePI(); err != nil {
				return err
			}
		case tk.startsWith("<!ELEMENT"), tk.startsWith("<!ATTLIST"), tk.startsWith("<!NOTATION"):
			if err := tk.skipMarkupDecl(); err != nil {
				return err
			}
		default:
			return tk.errAt(ErrUnknownToken, tk.pos)
		}
	}
}

// skipMarkupDecl discards a markup declaration up to its closing '>',
// honoring quoted sections.
func (tk *tokenizer) skipMarkupDecl() error {
	for !tk.atEnd() {
		switch c := tk.cur(); c {
		case '"', '\'':
			if _, _, err := tk.readQuoted(); err != nil {
				return err
			}
		case '>':
			tk.pos++
			return nil
		default:
			tk.pos++
		}
	}
	return tk.errEOF()
}

func (tk *tokenizer) parseEntityDecl() error {
	tk.pos += len("<!ENTITY")
	if !tk.skipSpaces() {
		return tk.errAt(ErrInvalidName, tk.pos)
	}
	if !tk.atEnd() && tk.cur() == '%' {
		// Parameter entities are not supported; skip the declaration.
		return tk.skipMarkupDecl()
	}
	name, err := tk.readName()
	if err != nil {
		return err
	}
	if !tk.skipSpaces() {
		return tk.errAt(ErrInvalidChar, tk.pos)
	}
	if tk.startsWith("SYSTEM") || tk.startsWith("PUBLIC") {
		// External entities are never resolved; skip the declaration.
		return tk.skipMarkupDecl()
	}
	value, _, err := tk.readQuoted()
	if err != nil {
		return err
	}
	tk.skipSpaces()
	if err := tk.consumeByte('>'); err != nil {
		return err
	}
	if tk.opts.AllowDTD {
		if _, dup := tk.entities[name]; !dup {
			// First declaration wins, per the XML specification.
			tk.entities[name] = value
		}
	}
	return nil
}

// parseContent is the per-stream scanning loop for element content. The
// main stream enforces the document-level rules (single root, whitespace-only
// text outside it); entity streams run the same loop without them.
func (tk *tokenizer) parseContent() error {
	for !tk.atEnd() {
		if tk.cur() != '<' {
			if err := tk.parseText(); err != nil {
				return err
			}
			continue
		}
		switch {
		case tk.startsWith("<!--"):
			if err := tk.parseComment(); err != nil {
				return err
			}
		case tk.startsWith("<![CDATA["):
			if err := tk.parseCDATA(); err != nil {
				return err
			}
		case tk.startsWith("<?"):
			if err := tk.parsePI(); err != nil {
				return err
			}
		case tk.startsWith("</"):
			if err := tk.parseCloseTag(); err != nil {
				return err
			}
		case tk.startsWith("<!"):
			return tk.errAt(ErrUnknownToken, tk.pos)
		default:
			if err := tk.parseElement(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (tk *tokenizer) parseElement() error {
	start := tk.pos
	if !tk.inEntity && tk.elemDepth == 0 && tk.afterRoot {
		return tk.errAt(ErrUnknownToken, start)
	}
	tk.pos++
	prefix, local, err := tk.readQName()
	if err != nil {
		return err
	}
	if tk.atEnd() {
		return tk.errEOF()
	}
	if c := tk.cur(); !isSpace(c) && c != '/' && c != '>' {
		e := tk.errAt(ErrInvalidChar, tk.pos)
		e.Expected = "whitespace, '/' or '>'"
		e.Actual = string(c)
		return e
	}
	err = tk.sink.Event(&Event{
		Kind:   EventElementStart,
		Prefix: prefix,
		Local:  local,
		Offset: tk.offset(start + 1),
	})
	if err != nil {
		return err
	}

	for {
		hadSpace := tk.skipSpaces()
		if tk.atEnd() {
			return tk.errEOF()
		}
		switch c := tk.cur(); c {
		case '/':
			endStart := tk.pos
			tk.pos++
			if err := tk.consumeByte('>'); err != nil {
				return err
			}
			if !tk.inEntity && tk.elemDepth == 0 {
				tk.afterRoot = true
			}
			return tk.sink.Event(&Event{
				Kind:   EventElementEnd,
				End:    EndEmpty,
				Offset: tk.offset(endStart),
			})
		case '>':
			endStart := tk.pos
			tk.pos++
			if !tk.inEntity {
				tk.elemDepth++
			}
			return tk.sink.Event(&Event{
				Kind:   EventElementEnd,
				End:    EndOpen,
				Offset: tk.offset(endStart),
			})
		default:
			if !hadSpace {
				e := tk.errAt(ErrInvalidChar, tk.pos)
				e.Expected = " "
				e.Actual = string(c)
				return e
			}
			if err := tk.parseAttribute(); err != nil {
				return err
			}
		}
	}
}

func (tk *tokenizer) parseCloseTag() error {
	start := tk.pos
	if !tk.inEntity && tk.elemDepth == 0 && tk.afterRoot {
		return tk.errAt(ErrUnknownToken, start)
	}
	tk.pos += 2
	prefix, local, err := tk.readQName()
	if err != nil {
		return err
	}
	tk.skipSpaces()
	if err := tk.consumeByte('>'); err != nil {
		return err
	}
	if !tk.inEntity && tk.elemDepth > 0 {
		tk.elemDepth--
		if tk.elemDepth == 0 {
			tk.afterRoot = true
		}
	}
	return tk.sink.Event(&Event{
		Kind:   EventElementEnd,
		End:    EndClose,
		Prefix: prefix,
		Local:  local,
		Offset: tk.offset(start),
	})
}

func (tk *tokenizer) parseAttribute() error {
	start := tk.pos
	prefix, local, err := tk.readQName()
	if err != nil {
		return err
	}
	tk.skipSpaces()
	if err := tk.consumeByte('='); err != nil {
		return err
	}
	tk.skipSpaces()
	value, err := tk.readAttrValue()
	if err != nil {
		return err
	}
	return tk.sink.Event(&Event{
		Kind:   EventAttribute,
		Prefix: prefix,
		Local:  local,
		Value:  value,
		Offset: tk.offset(start),
	})
}

// readAttrValue reads a quoted attribute value, substituting internal-subset
// entities in place. Character references and the predefined entities stay
// raw for the normalizer.
func (tk *tokenizer) readAttrValue() (string, error) {
	if tk.atEnd() {
		return "", tk.errEOF()
	}
	q := tk.cur()
	if q != '"' && q != '\'' {
		err := tk.errAt(ErrInvalidChar, tk.pos)
		err.Expected = "\""
		err.Actual = string(q)
		return "", err
	}
	tk.pos++
	var sb *strings.Builder
	chunkStart := tk.pos
	for {
		if tk.atEnd() {
			return "", tk.errEOF()
		}
		c := tk.cur()
		if c == q {
			break
		}
		switch {
		case c == '<':
			return "", tk.errAt(ErrInvalidAttributeValue, tk.pos)
		case c == '&':
			ampPos := tk.pos
			name, width, kind := scanReference(tk.text[tk.pos:])
			if kind == refName {
				if value, ok := tk.entities[name]; ok {
					if sb == nil {
						sb = &strings.Builder{}
					}
					sb.WriteString(tk.text[chunkStart:ampPos])
					expanded, err := tk.expandEntityInValue(value, ampPos, tk.depth)
					if err != nil {
						return "", err
					}
					sb.WriteString(expanded)
					tk.pos = ampPos + width
					chunkStart = tk.pos
					continue
				}
				if tk.sawSubset {
					e := tk.errAt(ErrUnknownEntityReference, ampPos)
					e.Name = name
					return "", e
				}
			}
			if kind == refBad {
				tk.pos++
			} else {
				tk.pos += width
			}
		default:
			if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
				e := tk.errAt(ErrNonXMLChar, tk.pos)
				e.Name = string(rune(c))
				return "", e
			}
			tk.pos++
		}
	}
	raw := tk.text[chunkStart:tk.pos]
	tk.pos++ // closing quote
	if sb == nil {
		return raw, nil
	}
	sb.WriteString(raw)
	return sb.String(), nil
}

// expandEntityInValue substitutes entity references inside an attribute
// value. Markup is not allowed there: a '<' arriving via an entity is an
// invalid attribute value.
func (tk *tokenizer) expandEntityInValue(value string, at, depth int) (string, error) {
	if depth >= maxEntityDepth {
		return "", tk.errAt(ErrMalformedReference, at)
	}
	var sb strings.Builder
	for i := 0; i < len(value); {
		c := value[i]
		switch c {
		case '<':
			return "", tk.errAt(ErrInvalidAttributeValue, at)
		case '&':
			name, width, kind := scanReference(value[i:])
			if kind == refName {
				if nested, ok := tk.entities[name]; ok {
					expanded, err := tk.expandEntityInValue(nested, at, depth+1)
					if err != nil {
						return "", err
					}
					sb.WriteString(expanded)
					i += width
					continue
				}
				if tk.sawSubset {
					e := tk.errAt(ErrUnknownEntityReference, at)
					e.Name = name
					return "", e
				}
			}
			if kind == refBad {
				sb.WriteByte(c)
				i++
			} else {
				sb.WriteString(value[i : i+width])
				i += width
			}
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), nil
}

func (tk *tokenizer) parseText() error {
	// Outside the root element only whitespace may appear.
	if !tk.inEntity && tk.elemDepth == 0 {
		for !tk.atEnd() && tk.cur() != '<' {
			if !isSpace(tk.cur()) {
				return tk.errAt(ErrUnknownToken, tk.pos)
			}
			tk.pos++
		}
		return nil
	}
	chunkStart := tk.pos
	for !tk.atEnd() {
		c := tk.cur()
		if c == '<' {
			break
		}
		switch {
		case c == '&':
			ampPos := tk.pos
			name, width, kind := scanReference(tk.text[tk.pos:])
			if kind == refName {
				if value, ok := tk.entities[name]; ok {
					if err := tk.flushText(chunkStart, ampPos); err != nil {
						return err
					}
					tk.pos = ampPos + width
					chunkStart = tk.pos
					if err := tk.expandEntity(value, ampPos); err != nil {
						return err
					}
					continue
				}
				if tk.sawSubset {
					e := tk.errAt(ErrUnknownEntityReference, ampPos)
					e.Name = name
					return e
				}
			}
			// Character references, predefined entities and anything
			// syntactically broken stay in the chunk for the normalizer.
			if kind == refBad {
				tk.pos++
			} else {
				tk.pos += width
			}
		case c == ']' && tk.startsWith("]]>"):
			return tk.errAt(ErrInvalidCharData, tk.pos)
		default:
			if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
				e := tk.errAt(ErrNonXMLChar, tk.pos)
				e.Name = string(rune(c))
				return e
			}
			tk.pos++
		}
	}
	return tk.flushText(chunkStart, tk.pos)
}

func (tk *tokenizer) flushText(from, to int) error {
	if from == to {
		return nil
	}
	return tk.sink.Event(&Event{
		Kind:   EventText,
		Value:  tk.text[from:to],
		Offset: tk.offset(from),
	})
}

// expandEntity tokenizes an entity value as element content on its own
// stream. Everything it produces reports the reference's position.
func (tk *tokenizer) expandEntity(value string, at int) error {
	if tk.depth >= maxEntityDepth {
		return tk.errAt(ErrMalformedReference, at)
	}
	sub := &tokenizer{
		text:      value,
		src:       tk.src,
		opts:      tk.opts,
		sink:      tk.sink,
		entities:  tk.entities,
		sawSubset: tk.sawSubset,
		depth:     tk.depth + 1,
		refOffset: tk.offset(at),
		inEntity:  true,
	}
	return sub.parseContent()
}

func (tk *tokenizer) parseCDATA() error {
	start := tk.pos
	if !tk.inEntity && tk.elemDepth == 0 {
		return tk.errAt(ErrUnknownToken, start)
	}
	tk.pos += len("<![CDATA[")
	idx := strings.Index(tk.text[tk.pos:], "]]>")
	if idx < 0 {
		return tk.errEOF()
	}
	data := tk.text[tk.pos : tk.pos+idx]
	tk.pos += idx + len("]]>")
	if data == "" {
		return nil
	}
	return tk.sink.Event(&Event{
		Kind:   EventText,
		Value:  data,
		Offset: tk.offset(start + len("<![CDATA[")),
		Raw:    true,
	})
}

type refKind uint8

const (
	refBad  refKind = iota // not a syntactically valid reference
	refChar                // a character reference or predefined entity
	refName                // a named reference, possibly an internal entity
)

// scanReference classifies the reference starting at s[0] == '&' without
// decoding it. width covers the full "&...;" span.
func scanReference(s string) (name string, width int, kind refKind) {
	if len(s) < 3 {
		return "", 0, refBad
	}
	if s[1] == '#' {
		i := 2
		digits := func(valid func(byte) bool) (int, bool) {
			n := 0
			for i < len(s) && valid(s[i]) {
				i++
				n++
			}
			return n, i < len(s) && s[i] == ';'
		}
		if s[2] == 'x' {
			i = 3
			if n, ok := digits(isHexDigit); n > 0 && ok {
				return "", i + 1, refChar
			}
			return "", 0, refBad
		}
		if n, ok := digits(isDigit); n > 0 && ok {
			return "", i + 1, refChar
		}
		return "", 0, refBad
	}
	end := strings.IndexByte(s, ';')
	if end < 2 {
		return "", 0, refBad
	}
	candidate := s[1:end]
	for j, r := range candidate {
		if j == 0 && !isNameStart(r) {
			return "", 0, refBad
		}
		if j > 0 && !isNameChar(r) {
			return "", 0, refBad
		}
	}
	switch candidate {
	case "amp", "lt", "gt", "apos", "quot":
		return candidate, end + 1, refChar
	}
	return candidate, end + 1, refName
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
