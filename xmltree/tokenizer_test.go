package xmltree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an EventSink that keeps a flat trace of the event stream.
type recorder struct {
	events []string
}

func (r *recorder) Event(ev *Event) error {
	var s string
	switch ev.Kind {
	case EventElementStart:
		s = "start " + qname(ev.Prefix, ev.Local)
	case EventAttribute:
		s = "attr " + qname(ev.Prefix, ev.Local) + "=" + ev.Value
	case EventElementEnd:
		switch ev.End {
		case EndOpen:
			s = "open"
		case EndEmpty:
			s = "empty"
		case EndClose:
			s = "close " + qname(ev.Prefix, ev.Local)
		}
	case EventText:
		if ev.Raw {
			s = "cdata " + ev.Value
		} else {
			s = "text " + ev.Value
		}
	}
	r.events = append(r.events, s)
	return nil
}

func tokenize(t *testing.T, text string, opts Options) ([]string, error) {
	t.Helper()

	rec := &recorder{}
	err := Tokenize(text, opts, rec)
	return rec.events, err
}

func TestTokenizeElementWithAttributes(t *testing.T) {
	// given
	input := `<a x="1" y='2'>t</a>`

	// when
	events, err := tokenize(t, input, Options{})

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start a",
		"attr x=1",
		"attr y=2",
		"open",
		"text t",
		"close a",
	}, events)
}

func TestTokenizeSelfClosingElement(t *testing.T) {
	// given
	input := `<?xml version="1.0" encoding="UTF-8"?><ns:a/>`

	// when
	events, err := tokenize(t, input, Options{})

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"start ns:a", "empty"}, events)
}

func TestTokenizeSkipsCommentsAndPIs(t *testing.T) {
	// given
	input := "<!-- head --><a><?target data?><!-- body --></a>"

	// when
	events, err := tokenize(t, input, Options{})

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"start a", "open", "close a"}, events)
}

func TestTokenizeCDATAIsRaw(t *testing.T) {
	// given
	input := "<a><![CDATA[1 < 2 && 3]]></a>"

	// when
	events, err := tokenize(t, input, Options{})

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"start a", "open", "cdata 1 < 2 && 3", "close a"}, events)
}

func TestTokenizeEntityWithMarkup(t *testing.T) {
	// given an internal entity whose value contains an element
	input := `<!DOCTYPE d [<!ENTITY e "<b>x</b>">]><a>&e;</a>`

	// when
	events, err := tokenize(t, input, Options{AllowDTD: true})

	// then the entity value is tokenized as element content
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start a", "open",
		"start b", "open", "text x", "close b",
		"close a",
	}, events)
}

func TestTokenizeUnknownEntityWithSubset(t *testing.T) {
	// given a subset that does not declare the referenced entity
	input := `<!DOCTYPE d [<!ENTITY e "x">]><a>&nope;</a>`

	// when
	_, err := tokenize(t, input, Options{AllowDTD: true})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrUnknownEntityReference, xe.Kind)
	assert.Equal(t, "nope", xe.Name)
}

func TestTokenizeNamedReferenceWithoutSubsetStaysRaw(t *testing.T) {
	// given no DOCTYPE at all
	input := `<a>&nope;</a>`

	// when
	events, err := tokenize(t, input, Options{AllowDTD: true})

	// then the reference is left for the text normalizer
	require.NoError(t, err)
	assert.Equal(t, []string{"start a", "open", "text &nope;", "close a"}, events)
}

func TestTokenizeDoctypeSkippedWhenDTDDisabled(t *testing.T) {
	// given
	input := `<!DOCTYPE d [<!ENTITY e "x">]><a>&e;</a>`

	// when
	events, err := tokenize(t, input, Options{AllowDTD: false})

	// then the declared entity is not collected
	require.NoError(t, err)
	assert.Equal(t, []string{"start a", "open", "text &e;", "close a"}, events)
}

func TestTokenizeRecursiveEntity(t *testing.T) {
	// given
	input := `<!DOCTYPE d [<!ENTITY e "&e;">]><a>&e;</a>`

	// when
	_, err := tokenize(t, input, Options{AllowDTD: true})

	// then expansion stops at the depth cap
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrMalformedReference, xe.Kind)
}

func TestTokenizeSecondRootRejected(t *testing.T) {
	// given
	input := `<a/><b/>`

	// when
	_, err := tokenize(t, input, Options{})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrUnknownToken, xe.Kind)
}

func TestTokenizeTextOutsideRootRejected(t *testing.T) {
	// given
	input := "  stray <a/>"

	// when
	_, err := tokenize(t, input, Options{})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrUnknownToken, xe.Kind)
}

func TestTokenizeCDATAEndInText(t *testing.T) {
	// given
	input := "<a>]]></a>"

	// when
	_, err := tokenize(t, input, Options{})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrInvalidCharData, xe.Kind)
}

func TestTokenizeMarkupInAttributeValue(t *testing.T) {
	// given
	input := `<a b="1 < 2"/>`

	// when
	_, err := tokenize(t, input, Options{})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrInvalidAttributeValue, xe.Kind)
}

func TestTokenizeEntityBringingMarkupIntoAttribute(t *testing.T) {
	// given an entity whose value would inject an element into an attribute
	input := `<!DOCTYPE d [<!ENTITY e "<b/>">]><a b="&e;"/>`

	// when
	_, err := tokenize(t, input, Options{AllowDTD: true})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrInvalidAttributeValue, xe.Kind)
}

func TestTokenizeEntityInAttributeValue(t *testing.T) {
	// given
	input := `<!DOCTYPE d [<!ENTITY brand "rpub">]><a title="the &brand; reader"/>`

	// when
	events, err := tokenize(t, input, Options{AllowDTD: true})

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"start a", "attr title=the rpub reader", "empty"}, events)
}

func TestTokenizeMisplacedDeclaration(t *testing.T) {
	// given
	input := "<a><?xml version=\"1.0\"?></a>"

	// when
	_, err := tokenize(t, input, Options{})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrUnexpectedDeclaration, xe.Kind)
}

func TestTokenizeStylesheetPIIsNotADeclaration(t *testing.T) {
	// given
	input := `<?xml-stylesheet href="x.css"?><a/>`

	// when
	events, err := tokenize(t, input, Options{})

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"start a", "empty"}, events)
}

func TestTokenizeBOM(t *testing.T) {
	// given
	input := "\uFEFF<a/>"

	// when
	events, err := tokenize(t, input, Options{})

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"start a", "empty"}, events)
}

func TestTokenizeTruncatedInput(t *testing.T) {
	// given
	input := `<a b="1`

	// when
	_, err := tokenize(t, input, Options{})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrUnexpectedEOF, xe.Kind)
}

func TestTokenizeBadDeclarationVersion(t *testing.T) {
	// given
	input := `<?xml version="2.0"?><a/>`

	// when
	_, err := tokenize(t, input, Options{})

	// then
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, ErrInvalidString, xe.Kind)
}
