package xml

import (
	"encoding/xml"
	"strings"
)

// WordprocessingML element names the engine works with.
const (
	ElemText      = "w:t"
	ElemRun       = "w:r"
	ElemRunProps  = "w:rPr"
	ElemParagraph = "w:p"
	ElemCell      = "w:tc"
	ElemRow       = "w:tr"
	ElemTable     = "w:tbl"
	ElemSection   = "w:sectPr"
)

// TextNode is a character data segment inside a w:t element.
type TextNode struct {
	// Segment is the index of the character data segment.
	Segment int
	// Element is the index of the enclosing w:t start segment.
	Element int
	Text    string
}

// TextNodes returns the text nodes of the tree in document order.
func (t *Tree) TextNodes() []TextNode {
	var nodes []TextNode
	for i, seg := range t.Segments {
		if seg.Kind != KindText {
			continue
		}
		p := t.parent[i]
		if p < 0 || t.Segments[p].Name != ElemText {
			continue
		}
		nodes = append(nodes, TextNode{Segment: i, Element: p, Text: seg.Text})
	}
	return nodes
}

// Escape returns s with the XML special characters replaced by entities.
func Escape(s string) string {
	if !strings.ContainsAny(s, "<>&'\"\t\r\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// PreserveSpace adds xml:space="preserve" to a w:t start tag that lacks it.
func PreserveSpace(startTag string) string {
	if strings.Contains(startTag, "xml:space=") {
		return startTag
	}
	if strings.HasSuffix(startTag, "/>") {
		return startTag[:len(startTag)-2] + ` xml:space="preserve"/>`
	}
	return startTag[:len(startTag)-1] + ` xml:space="preserve">`
}
