package xml

import "fmt"

// Tree indexes the element structure of a segment list.
type Tree struct {
	Segments []Segment
	match    []int
	parent   []int
}

// NewTree pairs start and end tags and records each segment's enclosing element.
// It fails if a closing tag does not match the innermost open element or if
// elements are left open.
func NewTree(segments []Segment) (*Tree, error) {
	t := &Tree{
		Segments: segments,
		match:    make([]int, len(segments)),
		parent:   make([]int, len(segments)),
	}
	var stack []int
	for i, seg := range segments {
		t.match[i] = i
		if len(stack) > 0 {
			t.parent[i] = stack[len(stack)-1]
		} else {
			t.parent[i] = -1
		}

		switch seg.Kind {
		case KindStart:
			stack = append(stack, i)
		case KindEnd:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected </%s>", ErrMalformed, seg.Name)
			}
			open := stack[len(stack)-1]
			if segments[open].Name != seg.Name {
				return nil, fmt.Errorf("%w: <%s> closed by </%s>", ErrMalformed, segments[open].Name, seg.Name)
			}
			stack = stack[:len(stack)-1]
			t.match[open] = i
			t.match[i] = open
			t.parent[i] = t.parent[open]
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: <%s> is never closed", ErrMalformed, segments[stack[len(stack)-1]].Name)
	}
	return t, nil
}

// Match returns the index of the tag paired with segment i, or i itself for
// segments that are not start or end tags.
func (t *Tree) Match(i int) int {
	return t.match[i]
}

// Parent returns the start segment of the element enclosing segment i, or -1.
func (t *Tree) Parent(i int) int {
	return t.parent[i]
}

// Enclosing returns the nearest ancestor start segment named name, or -1.
func (t *Tree) Enclosing(i int, name string) int {
	for p := t.parent[i]; p >= 0; p = t.parent[p] {
		if t.Segments[p].Name == name {
			return p
		}
	}
	return -1
}

// Path lists the names of the elements enclosing segment i, outermost first.
func (t *Tree) Path(i int) []string {
	var rev []string
	for p := t.parent[i]; p >= 0; p = t.parent[p] {
		rev = append(rev, t.Segments[p].Name)
	}
	path := make([]string, len(rev))
	for k, name := range rev {
		path[len(rev)-1-k] = name
	}
	return path
}

// SamePath reports whether segments i and j are enclosed by the same sequence of element names.
func (t *Tree) SamePath(i, j int) bool {
	a, b := t.Path(i), t.Path(j)
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// Contains reports whether the element starting at segment start has a descendant named name.
func (t *Tree) Contains(start int, name string) bool {
	for i := start + 1; i < t.match[start]; i++ {
		if k := t.Segments[i].Kind; (k == KindStart || k == KindEmpty) && t.Segments[i].Name == name {
			return true
		}
	}
	return false
}

// Children returns the direct child elements of the element starting at segment start.
// Text and other segments are skipped.
func (t *Tree) Children(start int) []int {
	var children []int
	end := t.match[start]
	for i := start + 1; i < end; i++ {
		switch t.Segments[i].Kind {
		case KindStart:
			children = append(children, i)
			i = t.match[i]
		case KindEmpty:
			children = append(children, i)
		}
	}
	return children
}
