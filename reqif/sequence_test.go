package reqif

import "testing"

func art(id, typ, text string) Artifact {
	return Artifact{ID: id, Type: typ, Text: text}
}

func tableArt(id, text string) Artifact {
	return Artifact{
		ID:   id,
		Type: TypeRequirement,
		Text: text,
		Table: &Table{
			Headers: []string{"Case", "In", "Out"},
			Rows:    [][]string{{"1", "T", "F"}},
		},
	}
}

func TestSequence(t *testing.T) {
	arts := []Artifact{
		art("H-1", TypeHeading, "Locking"),
		art("N-1", TypeInformation, "Applies to all doors."),
		art("I-1", TypeInterface, "B_DOOR_OPEN: door status"),
		tableArt("R-1", "Lock when moving."),
		tableArt("R-2", "Unlock on crash."),
		art("N-2", TypeInformation, "Crash input is latched."),
		art("H-2", TypeHeading, "Unlocking"),
		tableArt("R-3", "Unlock on request."),
	}

	units := Sequence(arts)
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}

	u := units[0]
	if u.Requirement.ID != "R-1" || u.Heading != "Locking" {
		t.Fatalf("unexpected first unit: %+v", u)
	}
	if len(u.Notes) != 1 || u.Notes[0].ID != "N-1" {
		t.Fatalf("expected note N-1, got %+v", u.Notes)
	}
	if len(u.Interfaces) != 1 || u.Interfaces[0].ID != "I-1" {
		t.Fatalf("expected interface I-1, got %+v", u.Interfaces)
	}

	// Notes were consumed by the first unit.
	if len(units[1].Notes) != 0 {
		t.Fatalf("expected no notes on second unit, got %+v", units[1].Notes)
	}

	// The heading reset discarded N-2.
	u = units[2]
	if u.Heading != "Unlocking" {
		t.Fatalf("expected heading switch, got %q", u.Heading)
	}
	if len(u.Notes) != 0 {
		t.Fatalf("heading should discard pending notes, got %+v", u.Notes)
	}
	// The interface dictionary is document-wide.
	if len(u.Interfaces) != 1 {
		t.Fatalf("expected interfaces on every unit, got %+v", u.Interfaces)
	}
}

func TestSequenceNoHeading(t *testing.T) {
	units := Sequence([]Artifact{tableArt("R-1", "Early requirement.")})
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if units[0].Heading != NoHeading {
		t.Fatalf("expected %q, got %q", NoHeading, units[0].Heading)
	}
}

func TestSequenceTablelessRequirementSkipped(t *testing.T) {
	units := Sequence([]Artifact{
		art("N-1", TypeInformation, "note"),
		art("R-1", TypeRequirement, "prose only"),
		tableArt("R-2", "with table"),
	})
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	// The tableless requirement neither emitted nor consumed the note.
	if units[0].Requirement.ID != "R-2" || len(units[0].Notes) != 1 {
		t.Fatalf("unexpected unit: %+v", units[0])
	}
}

func TestSequenceInterfaceNeverAUnit(t *testing.T) {
	iface := Artifact{
		ID:    "I-1",
		Type:  TypeInterface,
		Text:  "B_SPEED: vehicle speed",
		Table: &Table{Headers: []string{"a"}, Rows: [][]string{{"1"}}},
	}
	// The interface sits after the requirement; the dictionary still
	// reaches it because collection is document-wide, not positional.
	units := Sequence([]Artifact{tableArt("R-1", "req"), iface})
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if len(units[0].Interfaces) != 1 || units[0].Interfaces[0].ID != "I-1" {
		t.Fatalf("expected trailing interface in dictionary, got %+v", units[0].Interfaces)
	}
}

func TestSequenceUnknownTypesIgnored(t *testing.T) {
	units := Sequence([]Artifact{
		art("N-1", TypeInformation, "kept"),
		art("X-1", TypeUnknown, "noise"),
		art("X-2", "Folder", "more noise"),
		tableArt("R-1", "req"),
	})
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if len(units[0].Notes) != 1 || units[0].Notes[0].ID != "N-1" {
		t.Fatalf("unknown types must not disturb notes: %+v", units[0].Notes)
	}
}

func TestSequenceEmpty(t *testing.T) {
	if units := Sequence(nil); len(units) != 0 {
		t.Fatalf("expected no units, got %d", len(units))
	}
}
