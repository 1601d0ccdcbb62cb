// Package opc reads and writes Open Packaging Convention containers, the zip
// format underneath DOCX files.
//
// A Package keeps every part in template order together with the bytes it was
// stored with, so parts that are never modified are copied into the output
// without being recompressed.
package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
)

// Well-known part names.
const (
	ContentTypesPart     = "[Content_Types].xml"
	PackageRelsPart      = "_rels/.rels"
	DefaultMainPart      = "word/document.xml"
	xmlDeclaration       = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	defaultCompressLevel = flate.DefaultCompression
)

// ErrNotPackage is returned when the input is not a readable zip container.
var ErrNotPackage = errors.New("not an OPC package")

// fixedTime stamps parts created during rendering so output is reproducible.
var fixedTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type part struct {
	name   string
	header zip.FileHeader
	// raw is the stored (possibly compressed) form; nil once the part is modified.
	raw  []byte
	data []byte
}

// Package is an in-memory OPC container.
//
// A Package is not safe for concurrent mutation. Clone returns an independent
// copy that shares unmodified part bytes with the original, which makes it
// cheap to render many documents from one parsed template.
type Package struct {
	parts map[string]*part
	order []string
}

// Open parses a zip container.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPackage, err)
	}

	p := &Package{parts: make(map[string]*part, len(zr.File))}
	for _, f := range zr.File {
		if _, dup := p.parts[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %s", ErrNotPackage, f.Name)
		}

		raw, err := readRaw(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		content, err := readContent(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}

		p.parts[f.Name] = &part{name: f.Name, header: f.FileHeader, raw: raw, data: content}
		p.order = append(p.order, f.Name)
	}
	return p, nil
}

func readRaw(f *zip.File) ([]byte, error) {
	r, err := f.OpenRaw()
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func readContent(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Clone returns a copy of p whose parts can be replaced without affecting p.
func (p *Package) Clone() *Package {
	c := &Package{
		parts: make(map[string]*part, len(p.parts)),
		order: append([]string(nil), p.order...),
	}
	for name, pt := range p.parts {
		c.parts[name] = pt
	}
	return c
}

// Has reports whether the package contains a part named name.
func (p *Package) Has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// Part returns the uncompressed content of a part. The returned slice must not be modified.
func (p *Package) Part(name string) ([]byte, bool) {
	pt, ok := p.parts[name]
	if !ok {
		return nil, false
	}
	return pt.data, true
}

// Names lists part names in package order.
func (p *Package) Names() []string {
	return append([]string(nil), p.order...)
}

// SetPart replaces the content of an existing part or appends a new one.
func (p *Package) SetPart(name string, data []byte) {
	if old, ok := p.parts[name]; ok {
		// Parts may be shared with clones, so replace instead of mutating.
		p.parts[name] = &part{name: name, header: old.header, data: data}
		return
	}
	p.parts[name] = &part{
		name:   name,
		header: zip.FileHeader{Name: name, Method: zip.Deflate, Modified: fixedTime},
		data:   data,
	}
	p.order = append(p.order, name)
}

// MainDocument returns the name of the main document part named by the
// package relationships, falling back to word/document.xml.
func (p *Package) MainDocument() (string, error) {
	if data, ok := p.Part(PackageRelsPart); ok {
		rels, err := ParseRelationships(data)
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", PackageRelsPart, err)
		}
		for _, rel := range rels.Relationship {
			if rel.Type == OfficeDocumentRelationshipType && !rel.External() {
				name := ResolveTarget("", rel.Target)
				if p.Has(name) {
					return name, nil
				}
			}
		}
	}
	if p.Has(DefaultMainPart) {
		return DefaultMainPart, nil
	}
	return "", fmt.Errorf("%w: no main document part", ErrNotPackage)
}

// Write serializes the package as a zip container. Unmodified parts are
// copied with their original headers and compressed bytes.
func (p *Package) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, defaultCompressLevel)
	})

	for _, name := range p.order {
		pt := p.parts[name]
		if pt.raw != nil {
			hdr := pt.header
			fw, err := zw.CreateRaw(&hdr)
			if err != nil {
				return fmt.Errorf("failed to copy part %s: %w", name, err)
			}
			if _, err := fw.Write(pt.raw); err != nil {
				return fmt.Errorf("failed to copy part %s: %w", name, err)
			}
			continue
		}

		hdr := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: pt.header.Modified,
		}
		if hdr.Modified.IsZero() {
			hdr.Modified = fixedTime
		}
		if strings.HasSuffix(name, "/") {
			hdr.Method = zip.Store
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to write part %s: %w", name, err)
		}
		if _, err := fw.Write(pt.data); err != nil {
			return fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}
	return zw.Close()
}

// Bytes serializes the package into memory.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WithDeclaration prefixes marshaled XML with the standard declaration.
func WithDeclaration(body []byte) []byte {
	out := make([]byte, 0, len(xmlDeclaration)+len(body))
	out = append(out, xmlDeclaration...)
	return append(out, body...)
}
