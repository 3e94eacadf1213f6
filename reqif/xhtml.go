package reqif

import (
	"encoding/xml"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// xhtmlContent captures the markup inside a THE-VALUE element. The XML
// decoder has already resolved namespace prefixes by the time tokens reach
// us, so re-serializing with local names alone yields plain HTML that
// x/net/html recognizes no matter which prefix the exporting tool chose for
// the XHTML namespace.
type xhtmlContent struct {
	Markup string
}

func (x *xhtmlContent) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 1
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			sb.WriteByte('<')
			sb.WriteString(t.Name.Local)
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				sb.WriteByte(' ')
				sb.WriteString(a.Name.Local)
				sb.WriteString(`="`)
				if err := xml.EscapeText(&sb, []byte(a.Value)); err != nil {
					return err
				}
				sb.WriteByte('"')
			}
			sb.WriteByte('>')
		case xml.EndElement:
			depth--
			if depth == 0 {
				x.Markup = sb.String()
				return nil
			}
			sb.WriteString("</")
			sb.WriteString(t.Name.Local)
			sb.WriteByte('>')
		case xml.CharData:
			if err := xml.EscapeText(&sb, t); err != nil {
				return err
			}
		}
	}
}

// parseMarkup parses rich-text markup into an HTML node tree. html.Parse is
// lenient and repairs what it can, so this only fails on reader errors.
func parseMarkup(markup string) (*html.Node, error) {
	return html.Parse(strings.NewReader(markup))
}

// collectText concatenates every text node under n and trims the result.
// Segments are joined without separators: inline markup must not introduce
// breaks the source text does not have.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// findTable returns the first table element under n in document order, or
// nil if there is none.
func findTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTable(c); t != nil {
			return t
		}
	}
	return nil
}
