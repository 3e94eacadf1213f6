package reqif

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Attribute definition long names that extraction cares about. Everything
// else a document declares is ignored.
const (
	foreignIDAttr = "ReqIF.ForeignID"
	textAttr      = "ReqIF.Text"
)

// maxXMLDepth bounds element nesting when pre-scanning a document. Real
// ReqIF exports stay far below this; running past it indicates a crafted or
// corrupt file.
const maxXMLDepth = 256

// xmlDocument maps the two REQ-IF subtrees extraction reads: the type
// declarations and the spec objects. Elements are matched by local name, so
// documents that qualify the ReqIF namespace with a prefix parse the same as
// ones that default it.
type xmlDocument struct {
	SpecTypes   []xmlSpecObjectType `xml:"CORE-CONTENT>REQ-IF-CONTENT>SPEC-TYPES>SPEC-OBJECT-TYPE"`
	SpecObjects []xmlSpecObject     `xml:"CORE-CONTENT>REQ-IF-CONTENT>SPEC-OBJECTS>SPEC-OBJECT"`
}

type xmlSpecObjectType struct {
	Identifier string       `xml:"IDENTIFIER,attr"`
	LongName   string       `xml:"LONG-NAME,attr"`
	StringDefs []xmlAttrDef `xml:"SPEC-ATTRIBUTES>ATTRIBUTE-DEFINITION-STRING"`
	XHTMLDefs  []xmlAttrDef `xml:"SPEC-ATTRIBUTES>ATTRIBUTE-DEFINITION-XHTML"`
}

type xmlAttrDef struct {
	Identifier string `xml:"IDENTIFIER,attr"`
	LongName   string `xml:"LONG-NAME,attr"`
}

type xmlSpecObject struct {
	Identifier string           `xml:"IDENTIFIER,attr"`
	TypeRef    string           `xml:"TYPE>SPEC-OBJECT-TYPE-REF"`
	StringVals []xmlStringValue `xml:"VALUES>ATTRIBUTE-VALUE-STRING"`
	XHTMLVals  []xmlXHTMLValue  `xml:"VALUES>ATTRIBUTE-VALUE-XHTML"`
}

type xmlStringValue struct {
	TheValue string `xml:"THE-VALUE,attr"`
	DefRef   string `xml:"DEFINITION>ATTRIBUTE-DEFINITION-STRING-REF"`
}

type xmlXHTMLValue struct {
	DefRef   string       `xml:"DEFINITION>ATTRIBUTE-DEFINITION-XHTML-REF"`
	TheValue xhtmlContent `xml:"THE-VALUE"`
}

// parseDocument decodes ReqIF XML. A parse failure here aborts the whole
// document: with no object list there is nothing to degrade to.
func parseDocument(data []byte) (*xmlDocument, error) {
	if err := checkDepth(data); err != nil {
		return nil, err
	}
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse reqif: %w", err)
	}
	return &doc, nil
}

// checkDepth scans the token stream and rejects pathological nesting before
// the full decode allocates anything.
func checkDepth(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse reqif: %w", err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxXMLDepth {
				return fmt.Errorf("xml nesting depth exceeds %d", maxXMLDepth)
			}
		case xml.EndElement:
			depth--
		}
	}
}

// typeIndex maps a SPEC-OBJECT-TYPE identifier to its long name.
type typeIndex map[string]string

// attrIndex maps a type identifier to the identifiers of its
// ReqIF.ForeignID and ReqIF.Text attribute definitions. A type absent from a
// map declares no such attribute.
type attrIndex struct {
	foreignID map[string]string
	text      map[string]string
}

// buildIndexes walks the type declarations once so object resolution is a
// pair of map hits per field instead of a scan of the declaration tree.
func buildIndexes(doc *xmlDocument) (typeIndex, attrIndex) {
	types := make(typeIndex, len(doc.SpecTypes))
	attrs := attrIndex{
		foreignID: make(map[string]string),
		text:      make(map[string]string),
	}
	for _, st := range doc.SpecTypes {
		types[st.Identifier] = st.LongName
		for _, def := range st.StringDefs {
			if def.LongName == foreignIDAttr {
				attrs.foreignID[st.Identifier] = def.Identifier
				break
			}
		}
		for _, def := range st.XHTMLDefs {
			if def.LongName == textAttr {
				attrs.text[st.Identifier] = def.Identifier
				break
			}
		}
	}
	return types, attrs
}
