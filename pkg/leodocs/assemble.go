package leodocs

import (
	"strings"

	"github.com/leoforge/go-leodocs/pkg/leodocs/opc"
	docxml "github.com/leoforge/go-leodocs/pkg/leodocs/xml"
)

const emptyParagraph = "<w:p/>"

// finalizePart tidies rendered markup and checks that it is well formed:
// empty w:t elements go, runs left holding only properties go, and table
// cells without a paragraph get an empty one.
func finalizePart(part, markup string) ([]byte, error) {
	segments, err := docxml.Parse([]byte(markup))
	if err != nil {
		return nil, NewDocumentError("assemble", part, err)
	}
	tree, err := docxml.NewTree(segments)
	if err != nil {
		return nil, NewDocumentError("assemble", part, err)
	}

	drop := make([]bool, len(segments))
	dropElement := func(start int) {
		for i := start; i <= tree.Match(start); i++ {
			drop[i] = true
		}
	}

	for i, seg := range segments {
		if seg.Name == docxml.ElemText && isEmptyText(tree, i) {
			dropElement(i)
		}
	}
	for i, seg := range segments {
		if seg.Name != docxml.ElemRun || drop[i] {
			continue
		}
		if !runHasContent(tree, i, drop) {
			dropElement(i)
		}
	}

	// a table whose row loops all ran zero times
	for i, seg := range segments {
		if seg.Name == docxml.ElemTable && (seg.Kind == docxml.KindStart || seg.Kind == docxml.KindEmpty) &&
			!drop[i] && !hasDescendant(tree, i, docxml.ElemRow, drop) {
			dropElement(i)
		}
	}

	needsParagraph := map[int]bool{}
	for i, seg := range segments {
		if seg.Kind == docxml.KindStart && seg.Name == docxml.ElemCell && !hasDescendant(tree, i, docxml.ElemParagraph, drop) {
			needsParagraph[tree.Match(i)] = true
		}
	}

	var b strings.Builder
	b.Grow(len(markup))
	for i, seg := range segments {
		if needsParagraph[i] {
			b.WriteString(emptyParagraph)
		}
		if !drop[i] {
			b.WriteString(seg.Raw)
		}
	}
	return []byte(b.String()), nil
}

func isEmptyText(tree *docxml.Tree, i int) bool {
	switch tree.Segments[i].Kind {
	case docxml.KindEmpty:
		return true
	case docxml.KindStart:
		for j := i + 1; j < tree.Match(i); j++ {
			if tree.Segments[j].Kind != docxml.KindText || tree.Segments[j].Text != "" {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// runHasContent reports whether a run keeps any child other than its properties.
func runHasContent(tree *docxml.Tree, run int, drop []bool) bool {
	if tree.Segments[run].Kind == docxml.KindEmpty {
		return false
	}
	for _, c := range tree.Children(run) {
		if !drop[c] && tree.Segments[c].Name != docxml.ElemRunProps {
			return true
		}
	}
	return false
}

func hasDescendant(tree *docxml.Tree, start int, name string, drop []bool) bool {
	for j := start + 1; j < tree.Match(start); j++ {
		seg := tree.Segments[j]
		if !drop[j] && (seg.Kind == docxml.KindStart || seg.Kind == docxml.KindEmpty) && seg.Name == name {
			return true
		}
	}
	return false
}

// assemble serializes a rendered package.
func assemble(pkg *opc.Package) ([]byte, error) {
	out, err := pkg.Bytes()
	if err != nil {
		return nil, NewDocumentError("assemble", "", err)
	}
	return out, nil
}
