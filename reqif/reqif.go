// Package reqif extracts typed artifacts from ReqIF requirements documents.
//
// A .reqifz input is a zip archive holding a single .reqif member; a bare
// .reqif file is accepted as well. The member is an XML document in the
// ReqIF dialect, where object fields are reached through identifier
// indirection (object to type to attribute definition to value) and rich
// text is embedded XHTML. Extraction resolves every SPEC-OBJECT into a flat
// Artifact and reconstructs the logic table found in its rich text, if any,
// into a rectangular grid with flattened headers. Sequence then folds the
// artifact list into requirement units that carry their document context.
//
// Usage:
//
//	ex := reqif.New(reqif.Config{})
//	arts, err := ex.ExtractFile(ctx, "door_control.reqifz")
//	if err != nil {
//		// archive or XML level failure, nothing extracted
//	}
//	units := reqif.Sequence(arts)
package reqif

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor turns ReqIF files into artifact lists.
type Extractor struct {
	cfg Config
}

// New returns an Extractor with defaults applied to cfg.
func New(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg}
}

// Detect reports the format of path from its extension.
func (e *Extractor) Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".reqifz":
		return FormatArchive, nil
	case ".reqif":
		return FormatDocument, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
}

// ExtractFile extracts all artifacts from the document at path, in document
// order. Any error is fatal for this file only; callers processing a batch
// log it and move on.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > e.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), e.cfg.MaxFileSize)
	}

	format, err := e.Detect(path)
	if err != nil {
		return nil, err
	}

	e.cfg.Logger.Debug("extracting document", "path", path, "format", format)

	var data []byte
	switch format {
	case FormatArchive:
		data, err = e.readArchiveMember(path)
	case FormatDocument:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	arts, err := e.extract(data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return arts, nil
}

// extract parses a ReqIF document and resolves every spec object.
func (e *Extractor) extract(data []byte) ([]Artifact, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	types, attrs := buildIndexes(doc)

	arts := make([]Artifact, 0, len(doc.SpecObjects))
	for i := range doc.SpecObjects {
		arts = append(arts, e.resolveArtifact(&doc.SpecObjects[i], types, attrs))
	}
	return arts, nil
}

// readArchiveMember returns the content of the first .reqif member of the
// archive at path. ReqIF packaging stores exactly one; extras are tolerated
// with a warning, absence is fatal for the archive.
func (e *Extractor) readArchiveMember(path string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	var member *zip.File
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".reqif") {
			continue
		}
		if member != nil {
			e.cfg.Logger.Warn("archive holds more than one .reqif member, using first",
				"path", path, "member", member.Name)
			break
		}
		member = f
	}
	if member == nil {
		return nil, fmt.Errorf("no .reqif member in archive")
	}

	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %s: %w", member.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read member %s: %w", member.Name, err)
	}
	return data, nil
}
