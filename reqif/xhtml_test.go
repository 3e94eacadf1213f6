package reqif

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestXHTMLContentDropsPrefixes(t *testing.T) {
	// WHAT: prefixed elements re-serialize with local names, namespace
	// declarations vanish, ordinary attributes survive.
	// WHY: the html parser only recognizes table markup by unprefixed names.
	src := `<wrap xmlns:html="http://www.w3.org/1999/xhtml">
<html:the-value><html:div><html:table><html:tr><html:td colspan="2">A &amp; B</html:td></html:tr></html:table></html:div></html:the-value>
</wrap>`

	var doc struct {
		Value xhtmlContent `xml:"the-value"`
	}
	if err := xml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}

	got := doc.Value.Markup
	if strings.Contains(got, "html:") {
		t.Fatalf("prefix leaked into markup: %q", got)
	}
	if strings.Contains(got, "xmlns") {
		t.Fatalf("namespace declaration leaked: %q", got)
	}
	if !strings.Contains(got, `<td colspan="2">`) {
		t.Fatalf("expected attribute preserved, got %q", got)
	}
	if !strings.Contains(got, "A &amp; B") {
		t.Fatalf("expected escaped text preserved, got %q", got)
	}
}

func TestXHTMLContentDefaultNamespace(t *testing.T) {
	src := `<the-value><div xmlns="http://www.w3.org/1999/xhtml"><p>hi</p></div></the-value>`

	var v xhtmlContent
	if err := xml.Unmarshal([]byte(src), &v); err != nil {
		t.Fatal(err)
	}
	if v.Markup != "<div><p>hi</p></div>" {
		t.Fatalf("unexpected markup: %q", v.Markup)
	}
}

func TestCollectText(t *testing.T) {
	tests := []struct {
		markup string
		want   string
	}{
		// Inline markup does not introduce breaks.
		{"<p>Door <b>stays</b> shut.</p>", "Door stays shut."},
		{"<p>volt</p><p>age</p>", "voltage"},
		// Only the outermost whitespace is trimmed.
		{"<div>  padded   inside  </div>", "padded   inside"},
		{"<div></div>", ""},
	}

	for _, tt := range tests {
		root, err := parseMarkup(tt.markup)
		if err != nil {
			t.Fatal(err)
		}
		if got := collectText(root); got != tt.want {
			t.Errorf("collectText(%q) = %q, want %q", tt.markup, got, tt.want)
		}
	}
}

func TestFindTableFirstInDocumentOrder(t *testing.T) {
	root, err := parseMarkup(`<div><p>lead</p><table><tr><td>first</td></tr></table><table><tr><td>second</td></tr></table></div>`)
	if err != nil {
		t.Fatal(err)
	}
	tbl := findTable(root)
	if tbl == nil {
		t.Fatal("expected a table")
	}
	if got := collectText(tbl); got != "first" {
		t.Fatalf("expected first table, got %q", got)
	}
}

func TestFindTableAbsent(t *testing.T) {
	root, err := parseMarkup(`<div><p>no tables here</p></div>`)
	if err != nil {
		t.Fatal(err)
	}
	if tbl := findTable(root); tbl != nil {
		t.Fatal("expected no table")
	}
}
