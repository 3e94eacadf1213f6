package reqif

import "strings"

// resolveArtifact flattens one spec object through the document indexes.
// Resolution never fails: each field degrades independently, so a broken
// type reference or missing attribute costs that field its value and
// nothing else.
func (e *Extractor) resolveArtifact(obj *xmlSpecObject, types typeIndex, attrs attrIndex) Artifact {
	art := Artifact{
		ID:   obj.Identifier,
		Type: TypeUnknown,
	}

	typeRef := strings.TrimSpace(obj.TypeRef)
	if typeRef == "" {
		return art
	}
	if name, ok := types[typeRef]; ok {
		art.Type = name
	}

	if defRef, ok := attrs.foreignID[typeRef]; ok {
		for _, v := range obj.StringVals {
			if strings.TrimSpace(v.DefRef) != defRef {
				continue
			}
			if v.TheValue != "" {
				art.ID = v.TheValue
			}
			break
		}
	}

	if defRef, ok := attrs.text[typeRef]; ok {
		for _, v := range obj.XHTMLVals {
			if strings.TrimSpace(v.DefRef) != defRef {
				continue
			}
			root, err := parseMarkup(v.TheValue.Markup)
			if err != nil {
				e.cfg.Logger.Warn("rich text unreadable", "object", obj.Identifier, "error", err)
				break
			}
			art.Text = collectText(root)
			if tbl := findTable(root); tbl != nil {
				t, err := buildTable(tbl)
				if err != nil {
					e.cfg.Logger.Warn("table rejected", "object", obj.Identifier, "error", err)
				} else {
					art.Table = t
				}
			}
			break
		}
	}

	return art
}
