package render

import (
	"errors"
	"fmt"

	docxml "github.com/leoforge/go-leodocs/pkg/leodocs/xml"
)

// Mode selects how a section's markup is repeated.
type Mode uint8

const (
	ModeInline Mode = iota
	ModeRow
	ModeParagraph
)

func (m Mode) String() string {
	switch m {
	case ModeRow:
		return "row"
	case ModeParagraph:
		return "paragraph"
	default:
		return "inline"
	}
}

// Range is an inclusive span of segment indices.
type Range struct {
	Start, End int
}

// Contains reports whether segment i lies inside r.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i <= r.End
}

// Layout places a section's tags in the segment stream.
type Layout struct {
	Mode Mode
	// Before is the segment the section start is emitted in front of.
	// Unused for ModeInline, where tags stay inside their text nodes.
	Before int
	// After is the segment the section end is emitted behind.
	After int
	// Drop lists markup removed from the output.
	Drop []Range
}

// Options tunes Plan.
type Options struct {
	// ParagraphLoops enables ModeParagraph.
	ParagraphLoops bool
	// Lonely reports whether the paragraph starting at the given segment
	// holds a single tag and otherwise only whitespace.
	Lonely func(paragraph int) bool
}

// ErrStructure reports a section whose tags cannot be repeated without breaking the markup.
var ErrStructure = errors.New("section tags sit at different markup depths")

// Plan picks the layout of a section whose start tag begins in text segment
// open and whose end tag begins in text segment close.
func Plan(tree *docxml.Tree, open, close int, opts Options) (Layout, error) {
	pOpen := tree.Enclosing(open, docxml.ElemParagraph)
	pClose := tree.Enclosing(close, docxml.ElemParagraph)
	if pOpen >= 0 && pOpen == pClose {
		return Layout{Mode: ModeInline}, nil
	}

	if row, ok := sharedRow(tree, open, close); ok {
		return Layout{Mode: ModeRow, Before: row, After: tree.Match(row)}, nil
	}

	if opts.ParagraphLoops && pOpen >= 0 && pClose >= 0 && opts.Lonely != nil &&
		opts.Lonely(pOpen) && opts.Lonely(pClose) &&
		!tree.Contains(pOpen, docxml.ElemSection) && !tree.Contains(pClose, docxml.ElemSection) {
		if !tree.SamePath(pOpen, pClose) {
			return Layout{}, fmt.Errorf("%w: paragraphs are nested differently", ErrStructure)
		}
		return Layout{
			Mode:   ModeParagraph,
			Before: pOpen,
			After:  tree.Match(pClose),
			Drop: []Range{
				{Start: pOpen, End: tree.Match(pOpen)},
				{Start: pClose, End: tree.Match(pClose)},
			},
		}, nil
	}

	if !tree.SamePath(open, close) {
		return Layout{}, fmt.Errorf("%w: enclosing elements differ", ErrStructure)
	}
	return Layout{Mode: ModeInline}, nil
}

// sharedRow returns the table row holding both positions when they sit in different cells of it.
func sharedRow(tree *docxml.Tree, open, close int) (int, bool) {
	row := tree.Enclosing(open, docxml.ElemRow)
	if row < 0 || row != tree.Enclosing(close, docxml.ElemRow) {
		return -1, false
	}
	if tree.Enclosing(open, docxml.ElemCell) == tree.Enclosing(close, docxml.ElemCell) {
		return -1, false
	}
	return row, true
}
