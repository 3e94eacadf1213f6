package reqif

// Sequence folds resolved artifacts in document order into requirement
// units.
//
// "System Interface" artifacts never enter the fold: they form the interface
// dictionary attached to every unit. Of the rest, a Heading replaces the
// current heading and discards pending notes, an Information artifact
// accumulates as a note, and a System Requirement carrying a table snapshots
// the context into a Unit and clears the notes. Requirements without a
// table, and artifacts of any other type, produce nothing and leave the
// context untouched.
func Sequence(artifacts []Artifact) []Unit {
	var interfaces []Artifact
	for _, a := range artifacts {
		if a.Type == TypeInterface {
			interfaces = append(interfaces, a)
		}
	}

	var units []Unit
	heading := NoHeading
	var notes []Artifact

	for _, a := range artifacts {
		switch a.Type {
		case TypeInterface:
			// Already collected.
		case TypeHeading:
			heading = a.Text
			notes = nil
		case TypeInformation:
			notes = append(notes, a)
		case TypeRequirement:
			if a.Table == nil {
				continue
			}
			units = append(units, Unit{
				Requirement: a,
				Heading:     heading,
				Notes:       append([]Artifact(nil), notes...),
				Interfaces:  interfaces,
			})
			notes = nil
		}
	}
	return units
}
