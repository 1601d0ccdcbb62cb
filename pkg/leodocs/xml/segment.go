package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind identifies what a segment holds.
type Kind uint8

const (
	// KindStart is an opening tag such as <w:p>.
	KindStart Kind = iota
	// KindEnd is a closing tag such as </w:p>.
	KindEnd
	// KindEmpty is a self-closing element such as <w:br/>.
	KindEmpty
	// KindText is character data, including CDATA sections.
	KindText
	// KindOther covers declarations, comments, processing instructions and directives.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindEnd:
		return "end"
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	default:
		return "other"
	}
}

// Segment is a contiguous slice of a part's markup.
type Segment struct {
	Kind Kind
	// Name is the qualified element name as written, e.g. "w:t". Empty for text and other segments.
	Name string
	// Raw holds the exact source bytes of the segment.
	Raw string
	// Text is the unescaped character data of a text segment.
	Text string
}

// ErrMalformed is returned when a part is not well-formed XML.
var ErrMalformed = errors.New("malformed xml")

// Parse splits markup into segments. Joining the result reproduces data byte for byte.
func Parse(data []byte) ([]Segment, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	segments := make([]Segment, 0, len(data)/16)
	for {
		start := dec.InputOffset()
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: offset %d: %v", ErrMalformed, start, err)
		}
		end := dec.InputOffset()

		switch t := tok.(type) {
		case xml.StartElement:
			segments = append(segments, Segment{Kind: KindStart, Name: qualifiedName(t.Name), Raw: string(data[start:end])})
		case xml.EndElement:
			// The decoder reports the implicit end of <x/> without consuming input.
			if end == start {
				segments[len(segments)-1].Kind = KindEmpty
				continue
			}
			segments = append(segments, Segment{Kind: KindEnd, Name: qualifiedName(t.Name), Raw: string(data[start:end])})
		case xml.CharData:
			segments = append(segments, Segment{Kind: KindText, Raw: string(data[start:end]), Text: string(t)})
		default:
			segments = append(segments, Segment{Kind: KindOther, Raw: string(data[start:end])})
		}
	}
	return segments, nil
}

// Join concatenates the raw bytes of segments.
func Join(segments []Segment) string {
	n := 0
	for i := range segments {
		n += len(segments[i].Raw)
	}
	var b strings.Builder
	b.Grow(n)
	for i := range segments {
		b.WriteString(segments[i].Raw)
	}
	return b.String()
}

// CheckWellFormed reports whether markup parses and every element is closed by a matching tag.
func CheckWellFormed(data []byte) error {
	segments, err := Parse(data)
	if err != nil {
		return err
	}
	_, err = NewTree(segments)
	return err
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
