package reqif

// Format identifies an input file layout.
type Format string

const (
	// FormatArchive is a zip archive holding a single .reqif member.
	FormatArchive Format = "reqifz"
	// FormatDocument is a bare .reqif XML document.
	FormatDocument Format = "reqif"
)

// Artifact type names the sequencer distinguishes. Any other resolved type is
// carried through but ignored by sequencing.
const (
	TypeHeading     = "Heading"
	TypeInformation = "Information"
	TypeRequirement = "System Requirement"
	TypeInterface   = "System Interface"
	TypeUnknown     = "Unknown"
)

// NoHeading is the heading of units emitted before any Heading artifact.
const NoHeading = "No Heading"

// Artifact is one resolved record from a requirements document.
type Artifact struct {
	// ID is the ReqIF.ForeignID value when the object carries one, else the
	// object's internal IDENTIFIER. Never empty for a well-formed object.
	ID string `json:"id"`

	// Text is the trimmed plain text of the ReqIF.Text attribute, "" if absent.
	Text string `json:"text"`

	// Type is the resolved SPEC-OBJECT-TYPE long name, "Unknown" if unresolvable.
	Type string `json:"type"`

	// Table is the logic table embedded in the rich text, nil if none.
	Table *Table `json:"table,omitempty"`
}

// Table is a rectangular logic table reconstructed from XHTML markup.
// Every row has exactly len(Headers) cells.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Unit is a table-bearing requirement together with its document context:
// the heading in force, the notes accumulated since that heading, and the
// document-wide interface dictionary in document order.
type Unit struct {
	Requirement Artifact   `json:"requirement"`
	Heading     string     `json:"heading"`
	Notes       []Artifact `json:"notes"`
	Interfaces  []Artifact `json:"interfaces"`
}
