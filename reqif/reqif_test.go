package reqif

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// reqifDoc wraps type declarations and spec objects in a complete ReqIF
// document, with the XHTML namespace bound to the html prefix the way real
// exporters emit it.
func reqifDoc(specTypes, specObjects string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<REQ-IF xmlns="http://www.omg.org/spec/ReqIF/20110401/reqif.xsd" xmlns:html="http://www.w3.org/1999/xhtml">
  <THE-HEADER/>
  <CORE-CONTENT>
    <REQ-IF-CONTENT>
      <SPEC-TYPES>` + specTypes + `</SPEC-TYPES>
      <SPEC-OBJECTS>` + specObjects + `</SPEC-OBJECTS>
    </REQ-IF-CONTENT>
  </CORE-CONTENT>
</REQ-IF>`
}

// objectType declares a SPEC-OBJECT-TYPE with a ReqIF.ForeignID string
// attribute and a ReqIF.Text rich-text attribute.
func objectType(id, longName string) string {
	return `
      <SPEC-OBJECT-TYPE IDENTIFIER="` + id + `" LONG-NAME="` + longName + `">
        <SPEC-ATTRIBUTES>
          <ATTRIBUTE-DEFINITION-STRING IDENTIFIER="` + id + `-fid" LONG-NAME="ReqIF.ForeignID"/>
          <ATTRIBUTE-DEFINITION-XHTML IDENTIFIER="` + id + `-text" LONG-NAME="ReqIF.Text"/>
        </SPEC-ATTRIBUTES>
      </SPEC-OBJECT-TYPE>`
}

// specObject builds a SPEC-OBJECT of the given type carrying a foreign ID
// and rich-text markup. The markup is emitted inside THE-VALUE as-is.
func specObject(id, typeID, foreignID, markup string) string {
	return `
      <SPEC-OBJECT IDENTIFIER="` + id + `">
        <TYPE><SPEC-OBJECT-TYPE-REF>` + typeID + `</SPEC-OBJECT-TYPE-REF></TYPE>
        <VALUES>
          <ATTRIBUTE-VALUE-STRING THE-VALUE="` + foreignID + `">
            <DEFINITION><ATTRIBUTE-DEFINITION-STRING-REF>` + typeID + `-fid</ATTRIBUTE-DEFINITION-STRING-REF></DEFINITION>
          </ATTRIBUTE-VALUE-STRING>
          <ATTRIBUTE-VALUE-XHTML>
            <DEFINITION><ATTRIBUTE-DEFINITION-XHTML-REF>` + typeID + `-text</ATTRIBUTE-DEFINITION-XHTML-REF></DEFINITION>
            <THE-VALUE>` + markup + `</THE-VALUE>
          </ATTRIBUTE-VALUE-XHTML>
        </VALUES>
      </SPEC-OBJECT>`
}

// writeArchive writes doc as the sole .reqif member of a fresh .reqifz file
// and returns its path.
func writeArchive(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, _ := w.Create(strings.TrimSuffix(name, ".reqifz") + ".reqif")
	fw.Write([]byte(doc))
	w.Close()
	f.Close()
	return path
}

// logicTable is a 5-column truth table in the shape requirement authors
// produce: a grouping header row with column spans above a signal name row.
const logicTable = `<html:div>
<html:p>The door lock shall engage when the vehicle is moving.</html:p>
<html:table>
<html:tr><html:td colspan="1">No.</html:td><html:td colspan="3">Input</html:td><html:td colspan="1">Output</html:td></html:tr>
<html:tr><html:td>Test Case</html:td><html:td>B_VEHICLE_MOVING</html:td><html:td>B_DOOR_OPEN</html:td><html:td>B_SPEED_ABOVE_THRESHOLD</html:td><html:td>B_DOOR_LOCK_CMD</html:td></html:tr>
<html:tr><html:td>1</html:td><html:td>TRUE</html:td><html:td>FALSE</html:td><html:td>TRUE</html:td><html:td>TRUE</html:td></html:tr>
<html:tr><html:td>2</html:td><html:td>FALSE</html:td><html:td>FALSE</html:td><html:td>FALSE</html:td><html:td>FALSE</html:td></html:tr>
</html:table>
</html:div>`

func TestDetect(t *testing.T) {
	ex := New(Config{})

	tests := []struct {
		path   string
		format Format
	}{
		{"doc.reqifz", FormatArchive},
		{"doc.REQIFZ", FormatArchive},
		{"doc.reqif", FormatDocument},
		{"dir/doc.reqif", FormatDocument},
	}

	for _, tt := range tests {
		f, err := ex.Detect(tt.path)
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.path, err)
			continue
		}
		if f != tt.format {
			t.Errorf("Detect(%q) = %q, want %q", tt.path, f, tt.format)
		}
	}

	// Unsupported format.
	if _, err := ex.Detect("doc.xlsx"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestExtractArchive(t *testing.T) {
	doc := reqifDoc(
		objectType("t-head", "Heading")+objectType("t-req", "System Requirement"),
		specObject("o-1", "t-head", "H-100", `<html:div>Door Control</html:div>`)+
			specObject("o-2", "t-req", "SYS-SW-4711", logicTable),
	)
	path := writeArchive(t, "doors.reqifz", doc)

	ex := New(Config{})
	arts, err := ex.ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(arts))
	}

	head := arts[0]
	if head.ID != "H-100" || head.Type != "Heading" || head.Text != "Door Control" {
		t.Fatalf("unexpected heading artifact: %+v", head)
	}
	if head.Table != nil {
		t.Fatal("heading should carry no table")
	}

	req := arts[1]
	if req.ID != "SYS-SW-4711" {
		t.Fatalf("expected foreign ID, got %q", req.ID)
	}
	if req.Type != "System Requirement" {
		t.Fatalf("expected requirement type, got %q", req.Type)
	}
	if !strings.Contains(req.Text, "door lock shall engage") {
		t.Fatalf("expected requirement prose, got %q", req.Text)
	}
	if req.Table == nil {
		t.Fatal("expected a reconstructed table")
	}

	// Grouping labels vanish from the merged headers; the signal row stays.
	wantHeaders := []string{"Test Case", "B_VEHICLE_MOVING", "B_DOOR_OPEN", "B_SPEED_ABOVE_THRESHOLD", "B_DOOR_LOCK_CMD"}
	if len(req.Table.Headers) != len(wantHeaders) {
		t.Fatalf("expected %d headers, got %v", len(wantHeaders), req.Table.Headers)
	}
	for i, h := range wantHeaders {
		if req.Table.Headers[i] != h {
			t.Fatalf("header %d = %q, want %q", i, req.Table.Headers[i], h)
		}
	}
	if len(req.Table.Rows) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(req.Table.Rows))
	}
	if req.Table.Rows[0][4] != "TRUE" || req.Table.Rows[1][4] != "FALSE" {
		t.Fatalf("unexpected output column: %v", req.Table.Rows)
	}
}

func TestExtractBareDocument(t *testing.T) {
	doc := reqifDoc(
		objectType("t-req", "System Requirement"),
		specObject("o-1", "t-req", "SYS-1", `<html:div>Plain requirement.</html:div>`),
	)
	path := filepath.Join(t.TempDir(), "spec.reqif")
	os.WriteFile(path, []byte(doc), 0644)

	ex := New(Config{})
	arts, err := ex.ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 1 || arts[0].ID != "SYS-1" || arts[0].Text != "Plain requirement." {
		t.Fatalf("unexpected artifacts: %+v", arts)
	}
}

func TestExtractPrefixedNamespaces(t *testing.T) {
	// WHAT: ReqIF elements behind a namespace prefix and XHTML declared as
	// the default namespace inside THE-VALUE extract identically.
	// WHY: prefixes are the exporting tool's choice, not document meaning.
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<r:REQ-IF xmlns:r="http://www.omg.org/spec/ReqIF/20110401/reqif.xsd">
  <r:CORE-CONTENT>
    <r:REQ-IF-CONTENT>
      <r:SPEC-TYPES>
        <r:SPEC-OBJECT-TYPE IDENTIFIER="t-req" LONG-NAME="System Requirement">
          <r:SPEC-ATTRIBUTES>
            <r:ATTRIBUTE-DEFINITION-XHTML IDENTIFIER="t-req-text" LONG-NAME="ReqIF.Text"/>
          </r:SPEC-ATTRIBUTES>
        </r:SPEC-OBJECT-TYPE>
      </r:SPEC-TYPES>
      <r:SPEC-OBJECTS>
        <r:SPEC-OBJECT IDENTIFIER="o-1">
          <r:TYPE><r:SPEC-OBJECT-TYPE-REF>t-req</r:SPEC-OBJECT-TYPE-REF></r:TYPE>
          <r:VALUES>
            <r:ATTRIBUTE-VALUE-XHTML>
              <r:DEFINITION><r:ATTRIBUTE-DEFINITION-XHTML-REF>t-req-text</r:ATTRIBUTE-DEFINITION-XHTML-REF></r:DEFINITION>
              <r:THE-VALUE><div xmlns="http://www.w3.org/1999/xhtml"><p>Door <b>stays</b> shut.</p></div></r:THE-VALUE>
            </r:ATTRIBUTE-VALUE-XHTML>
          </r:VALUES>
        </r:SPEC-OBJECT>
      </r:SPEC-OBJECTS>
    </r:REQ-IF-CONTENT>
  </r:CORE-CONTENT>
</r:REQ-IF>`
	path := writeArchive(t, "prefixed.reqifz", doc)

	ex := New(Config{})
	arts, err := ex.ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(arts))
	}
	if arts[0].Text != "Door stays shut." {
		t.Fatalf("expected inline markup flattened, got %q", arts[0].Text)
	}
	if arts[0].ID != "o-1" {
		t.Fatalf("expected fallback to internal identifier, got %q", arts[0].ID)
	}
}

func TestExtractResolutionDegrades(t *testing.T) {
	// A dangling type ref, a type without a ForeignID attribute, and an
	// empty foreign ID value each cost one field, never the artifact.
	doc := reqifDoc(
		objectType("t-req", "System Requirement"),
		`<SPEC-OBJECT IDENTIFIER="o-dangling">
        <TYPE><SPEC-OBJECT-TYPE-REF>t-missing</SPEC-OBJECT-TYPE-REF></TYPE>
      </SPEC-OBJECT>`+
			specObject("o-empty-fid", "t-req", "", `<html:div>text only</html:div>`)+
			`<SPEC-OBJECT IDENTIFIER="o-no-type"></SPEC-OBJECT>`,
	)
	path := writeArchive(t, "degraded.reqifz", doc)

	ex := New(Config{})
	arts, err := ex.ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(arts))
	}

	if arts[0].ID != "o-dangling" || arts[0].Type != "Unknown" {
		t.Fatalf("dangling ref should keep raw id and Unknown type: %+v", arts[0])
	}
	if arts[1].ID != "o-empty-fid" {
		t.Fatalf("empty foreign ID value should keep raw id, got %q", arts[1].ID)
	}
	if arts[1].Text != "text only" {
		t.Fatalf("text should still resolve, got %q", arts[1].Text)
	}
	if arts[2].Type != "Unknown" || arts[2].ID != "o-no-type" {
		t.Fatalf("typeless object should degrade: %+v", arts[2])
	}
}

func TestExtractArchiveNoMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.reqifz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, _ := w.Create("readme.txt")
	fw.Write([]byte("nothing here"))
	w.Close()
	f.Close()

	ex := New(Config{})
	_, err = ex.ExtractFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for archive without .reqif member")
	}
	if !strings.Contains(err.Error(), "no .reqif member") {
		t.Errorf("expected member error, got: %v", err)
	}
}

func TestExtractNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.reqifz")
	os.WriteFile(path, []byte("this is not a zip file"), 0644)

	ex := New(Config{})
	if _, err := ex.ExtractFile(context.Background(), path); err == nil {
		t.Fatal("expected error for corrupt archive")
	}
}

func TestExtractMalformedXML(t *testing.T) {
	path := writeArchive(t, "bad.reqifz", `<?xml version="1.0"?><REQ-IF><CORE-CONTENT>`)

	ex := New(Config{})
	if _, err := ex.ExtractFile(context.Background(), path); err == nil {
		t.Fatal("expected error for malformed XML")
	}
}

func TestExtractFileTooLarge(t *testing.T) {
	doc := reqifDoc(objectType("t-req", "System Requirement"), "")
	path := writeArchive(t, "big.reqifz", doc)

	ex := New(Config{MaxFileSize: 16})
	_, err := ex.ExtractFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
	if !strings.Contains(err.Error(), "file too large") {
		t.Errorf("expected size error, got: %v", err)
	}
}

func TestExtractXMLBomb(t *testing.T) {
	// WHAT: deeply nested XML returns a depth error.
	// WHY: XML bomb / billion laughs defense.
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<REQ-IF xmlns="http://www.omg.org/spec/ReqIF/20110401/reqif.xsd">`)
	for i := 0; i < 300; i++ {
		b.WriteString("<CORE-CONTENT>")
	}
	b.WriteString("deep")
	for i := 0; i < 300; i++ {
		b.WriteString("</CORE-CONTENT>")
	}
	b.WriteString("</REQ-IF>")

	path := writeArchive(t, "bomb.reqifz", b.String())

	ex := New(Config{})
	_, err := ex.ExtractFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for deeply nested XML")
	}
	if !strings.Contains(err.Error(), "nesting depth") {
		t.Errorf("expected 'nesting depth' error, got: %v", err)
	}
}

func TestExtractMultipleMembersUsesFirst(t *testing.T) {
	docA := reqifDoc(
		objectType("t-req", "System Requirement"),
		specObject("o-a", "t-req", "FIRST-1", `<html:div>first member</html:div>`),
	)
	docB := reqifDoc(
		objectType("t-req", "System Requirement"),
		specObject("o-b", "t-req", "SECOND-1", `<html:div>second member</html:div>`),
	)

	path := filepath.Join(t.TempDir(), "multi.reqifz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, _ := w.Create("a.reqif")
	fw.Write([]byte(docA))
	fw, _ = w.Create("b.reqif")
	fw.Write([]byte(docB))
	w.Close()
	f.Close()

	ex := New(Config{})
	arts, err := ex.ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(arts) != 1 || arts[0].ID != "FIRST-1" {
		t.Fatalf("expected first member to win, got %+v", arts)
	}
}
