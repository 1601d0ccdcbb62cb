// Package docxtest builds small DOCX packages for tests and reads parts back out of rendered output.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WordNamespace is the WordprocessingML main namespace.
const WordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const declaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

var stamp = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// Builder assembles a minimal but valid DOCX package.
type Builder struct {
	body     string
	headers  []string
	footers  []string
	extra    map[string][]byte
	extraIDs []string
	rels     []rel
	defaults []string
}

type rel struct {
	id, typ, target string
}

// New returns a builder for a document with the given body markup.
func New(body string) *Builder {
	return &Builder{body: body, extra: map[string][]byte{}}
}

// Header adds word/headerN.xml with the given inner markup.
func (b *Builder) Header(inner string) *Builder {
	b.headers = append(b.headers, inner)
	return b
}

// Footer adds word/footerN.xml with the given inner markup.
func (b *Builder) Footer(inner string) *Builder {
	b.footers = append(b.footers, inner)
	return b
}

// Part adds an arbitrary part.
func (b *Builder) Part(name string, data []byte) *Builder {
	if _, ok := b.extra[name]; !ok {
		b.extraIDs = append(b.extraIDs, name)
	}
	b.extra[name] = data
	return b
}

// Relationship adds a relationship from word/document.xml.
func (b *Builder) Relationship(id, typ, target string) *Builder {
	b.rels = append(b.rels, rel{id: id, typ: typ, target: target})
	return b
}

// Default registers an extension in [Content_Types].xml.
func (b *Builder) Default(ext, contentType string) *Builder {
	b.defaults = append(b.defaults, fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, ext, contentType))
	return b
}

// Bytes writes the package.
func (b *Builder) Bytes() []byte {
	type entry struct {
		name string
		data string
	}

	docRels := []rel{{id: "rId1", typ: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles", target: "styles.xml"}}
	overrides := []string{
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`,
		`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`,
	}
	var parts []entry
	for i, h := range b.headers {
		name := fmt.Sprintf("header%d.xml", i+1)
		docRels = append(docRels, rel{id: fmt.Sprintf("rId%d", len(docRels)+1), typ: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header", target: name})
		overrides = append(overrides, fmt.Sprintf(`<Override PartName="/word/%s" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"/>`, name))
		parts = append(parts, entry{"word/" + name, declaration + `<w:hdr xmlns:w="` + WordNamespace + `">` + h + `</w:hdr>`})
	}
	for i, f := range b.footers {
		name := fmt.Sprintf("footer%d.xml", i+1)
		docRels = append(docRels, rel{id: fmt.Sprintf("rId%d", len(docRels)+1), typ: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer", target: name})
		overrides = append(overrides, fmt.Sprintf(`<Override PartName="/word/%s" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>`, name))
		parts = append(parts, entry{"word/" + name, declaration + `<w:ftr xmlns:w="` + WordNamespace + `">` + f + `</w:ftr>`})
	}
	docRels = append(docRels, b.rels...)

	var relsXML strings.Builder
	relsXML.WriteString(declaration + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range docRels {
		fmt.Fprintf(&relsXML, `<Relationship Id="%s" Type="%s" Target="%s"/>`, r.id, r.typ, r.target)
	}
	relsXML.WriteString(`</Relationships>`)

	all := []entry{
		{"[Content_Types].xml", declaration + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			strings.Join(b.defaults, "") + strings.Join(overrides, "") + `</Types>`},
		{"_rels/.rels", declaration + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`},
		{"word/document.xml", Document(b.body)},
		{"word/_rels/document.xml.rels", relsXML.String()},
		{"word/styles.xml", declaration + `<w:styles xmlns:w="` + WordNamespace + `"/>`},
	}
	all = append(all, parts...)
	for _, name := range b.extraIDs {
		all = append(all, entry{name, string(b.extra[name])})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range all {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: stamp})
		if err != nil {
			panic(err)
		}
		if _, err := io.WriteString(w, e.data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Document wraps body markup in a w:document root.
func Document(body string) string {
	return declaration + `<w:document xmlns:w="` + WordNamespace + `" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>` +
		body + `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr></w:body></w:document>`
}

// Paragraph returns a paragraph with one run per text.
func Paragraph(texts ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, t := range texts {
		b.WriteString(Run(t))
	}
	b.WriteString("</w:p>")
	return b.String()
}

// Run returns a run holding text. Text is escaped.
func Run(text string) string {
	var esc strings.Builder
	_ = xml.EscapeText(&esc, []byte(text))
	return `<w:r><w:t xml:space="preserve">` + esc.String() + `</w:t></w:r>`
}

// BoldRun returns a run with bold formatting.
func BoldRun(text string) string {
	return `<w:r><w:rPr><w:b/></w:rPr><w:t>` + text + `</w:t></w:r>`
}

// Table returns a table whose rows hold one paragraph per cell.
func Table(rows ...[]string) string {
	var b strings.Builder
	b.WriteString("<w:tbl>")
	for _, row := range rows {
		b.WriteString("<w:tr>")
		for _, cell := range row {
			b.WriteString("<w:tc>" + Paragraph(cell) + "</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
	return b.String()
}

// ReadPart returns the content of a part of a rendered package.
func ReadPart(t testing.TB, docx []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

// Parts returns the entry names of a package in archive order.
func Parts(t testing.TB, docx []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Text returns the concatenated content of every w:t element of a part,
// with paragraphs separated by newlines.
func Text(t testing.TB, docx []byte, name string) string {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(ReadPart(t, docx, name)))
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch el := tok.(type) {
		case xml.StartElement:
			inText = el.Name.Local == "t" && el.Name.Space == WordNamespace
		case xml.EndElement:
			inText = false
			if el.Name.Local == "p" && el.Name.Space == WordNamespace {
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(el)
			}
		}
	}
	return b.String()
}

// Paragraphs splits the text of a part into non-empty paragraph strings.
func Paragraphs(t testing.TB, docx []byte, name string) []string {
	t.Helper()
	var out []string
	for _, line := range strings.Split(Text(t, docx, name), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// PNG encodes a solid image of the given size.
func PNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
