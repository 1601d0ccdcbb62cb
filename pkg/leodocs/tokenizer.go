package leodocs

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/leoforge/go-leodocs/pkg/leodocs/render"
	docxml "github.com/leoforge/go-leodocs/pkg/leodocs/xml"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenText TokenType = iota
	TokenPlaceholder
	TokenSectionStart
	TokenSectionEnd
	TokenImage
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenPlaceholder:
		return "placeholder"
	case TokenSectionStart:
		return "section"
	case TokenSectionEnd:
		return "end"
	case TokenImage:
		return "image"
	default:
		return "unknown"
	}
}

// Token represents a parsed template token
type Token struct {
	Type TokenType
	// Value holds literal markup for TokenText and the tag name otherwise.
	Value string
	// Inverted marks a {^name} section start.
	Inverted bool
	// Raw is the tag as written, delimiters included.
	Raw string
	// Offset is the byte offset of the tag within the part's text content.
	Offset int

	segment int
}

var namePattern = regexp.MustCompile(`^(?:\.|\$index|\$position|[\p{L}_][\p{L}\p{N}_-]*(?:\.[\p{L}_][\p{L}\p{N}_-]*)*)$`)

type scanOptions struct {
	start, end     string
	paragraphLoops bool
	logger         *Logger
}

func newScanOptions(config *Config, logger *Logger) scanOptions {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return scanOptions{
		start:          config.StartDelimiter,
		end:            config.EndDelimiter,
		paragraphLoops: config.ParagraphLoops,
		logger:         logger,
	}
}

// Tokenize parses a part's markup into the token stream consumed by BuildTree.
// Tags are recognized in the concatenated text of the part's w:t elements, so
// a tag split over several runs is one token.
func Tokenize(part string, data []byte, config *Config) ([]Token, error) {
	return tokenize(part, data, newScanOptions(NewConfigWithDefaults(config), nil))
}

// piece is a fragment of one text node: literal text or a tag that starts there.
type piece struct {
	text string
	tag  *Token
}

// scannedPart holds the tags of a part and where they sit in its markup.
type scannedPart struct {
	name  string
	tree  *docxml.Tree
	nodes []docxml.TextNode
	// pieces and changed are indexed like nodes.
	pieces  [][]piece
	changed []bool
	tags    []*Token
	// tagsIn counts tags per paragraph start segment; wordy marks paragraphs
	// holding text other than tags and whitespace.
	tagsIn map[int]int
	wordy  map[int]bool
}

func scanPart(part string, data []byte, opts scanOptions) (*scannedPart, error) {
	segments, err := docxml.Parse(data)
	if err != nil {
		return nil, NewDocumentError("parse", part, err)
	}
	tree, err := docxml.NewTree(segments)
	if err != nil {
		return nil, NewDocumentError("parse", part, err)
	}

	sp := &scannedPart{
		name:   part,
		tree:   tree,
		nodes:  tree.TextNodes(),
		tagsIn: map[int]int{},
		wordy:  map[int]bool{},
	}

	var text strings.Builder
	bounds := make([]int, len(sp.nodes)+1)
	for k, n := range sp.nodes {
		bounds[k] = text.Len()
		text.WriteString(n.Text)
	}
	bounds[len(sp.nodes)] = text.Len()

	spans, err := scanTags(part, text.String(), opts.start, opts.end)
	if err != nil {
		return nil, err
	}
	sp.distribute(text.String(), bounds, spans)

	if opts.logger.IsDebugMode() {
		opts.logger.WithFields(Fields{
			"part":       part,
			"text_nodes": len(sp.nodes),
			"tags":       len(sp.tags),
		}).Debug("Scanned part")
	}
	return sp, nil
}

type tagSpan struct {
	start, end int
	token      Token
}

// scanTags finds every tag in text. A closing delimiter without an opening one is literal text.
func scanTags(part, text, startDelim, endDelim string) ([]tagSpan, error) {
	var spans []tagSpan
	for pos := 0; ; {
		i := strings.Index(text[pos:], startDelim)
		if i < 0 {
			return spans, nil
		}
		start := pos + i
		bodyStart := start + len(startDelim)
		j := strings.Index(text[bodyStart:], endDelim)
		if j < 0 {
			return nil, NewTemplateError(part, excerpt(text[start:]), start, "opening delimiter is never closed")
		}
		body := text[bodyStart : bodyStart+j]
		end := bodyStart + j + len(endDelim)
		if strings.Contains(body, startDelim) {
			return nil, NewTemplateError(part, excerpt(text[start:end]), start, "opening delimiter is never closed")
		}

		tok, err := parseTag(body)
		if err != nil {
			return nil, NewTemplateError(part, text[start:end], start, err.Error())
		}
		tok.Raw = text[start:end]
		tok.Offset = start
		spans = append(spans, tagSpan{start: start, end: end, token: tok})
		pos = end
	}
}

// parseTag determines the type of a tag from its content.
func parseTag(body string) (Token, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Token{}, fmt.Errorf("empty tag")
	}

	tok := Token{Type: TokenPlaceholder}
	switch body[0] {
	case '#':
		tok.Type = TokenSectionStart
	case '^':
		tok.Type = TokenSectionStart
		tok.Inverted = true
	case '/':
		tok.Type = TokenSectionEnd
	case '%':
		tok.Type = TokenImage
	}
	name := body
	if tok.Type != TokenPlaceholder {
		name = strings.TrimSpace(body[1:])
	}
	if !namePattern.MatchString(name) {
		return Token{}, fmt.Errorf("invalid tag name %q", name)
	}
	tok.Value = name
	return tok, nil
}

func excerpt(s string) string {
	const limit = 24
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// distribute assigns each tag to the text node it starts in. The rest of the
// tag's text is removed from the nodes it spilled into.
func (sp *scannedPart) distribute(text string, bounds []int, spans []tagSpan) {
	sp.pieces = make([][]piece, len(sp.nodes))
	sp.changed = make([]bool, len(sp.nodes))

	pos, next := 0, 0
	for k, n := range sp.nodes {
		nodeEnd := bounds[k+1]
		if pos < bounds[k] {
			pos = bounds[k]
		}
		if pos > bounds[k] {
			// The previous node's tag spilled into this one.
			sp.changed[k] = true
		}
		paragraph := sp.tree.Enclosing(n.Segment, docxml.ElemParagraph)

		for pos < nodeEnd {
			if next < len(spans) && spans[next].start == pos {
				tok := spans[next].token
				tok.segment = n.Segment
				sp.tags = append(sp.tags, &tok)
				sp.pieces[k] = append(sp.pieces[k], piece{tag: &tok})
				sp.changed[k] = true
				sp.tagsIn[paragraph]++
				pos = spans[next].end
				next++
				continue
			}
			stop := nodeEnd
			if next < len(spans) && spans[next].start < stop {
				stop = spans[next].start
			}
			literal := text[pos:stop]
			sp.pieces[k] = append(sp.pieces[k], piece{text: literal})
			if strings.IndexFunc(literal, func(r rune) bool { return !unicode.IsSpace(r) }) >= 0 {
				sp.wordy[paragraph] = true
			}
			pos = stop
		}
	}
}

// tagPosition orders tag i in the output: segment s sits at 2s, a tag moved in
// front of s at 2s-1 and a tag moved behind s at 2s+1.
func tagPosition(tags []*Token, i int, placed map[int]int) int {
	if pos, ok := placed[i]; ok {
		return pos
	}
	return 2 * tags[i].segment
}

// crossesSiblings reports whether moving section i to layout would swallow a
// section tag that neither belongs to the section nor encloses it.
func crossesSiblings(tags []*Token, partners []int, i int, layout render.Layout, placed map[int]int) bool {
	first, last := 2*layout.Before-1, 2*layout.After+1
	for j, tag := range tags {
		if j >= i && j <= partners[i] {
			continue
		}
		if tag.Type != TokenSectionStart && tag.Type != TokenSectionEnd {
			continue
		}
		lo, hi := j, partners[j]
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo < i && hi > partners[i] {
			continue
		}
		if pos := tagPosition(tags, j, placed); pos >= first && pos <= last {
			return true
		}
	}
	return false
}

func (sp *scannedPart) lonely(paragraph int) bool {
	return sp.tagsIn[paragraph] == 1 && !sp.wordy[paragraph]
}

// tokenize scans a part, lays out its sections and emits the token stream.
func tokenize(part string, data []byte, opts scanOptions) ([]Token, error) {
	sp, err := scanPart(part, data, opts)
	if err != nil {
		return nil, err
	}

	partners, err := matchSections(part, sp.tags)
	if err != nil {
		return nil, err
	}

	segments := sp.tree.Segments
	before := make(map[int][]*Token)
	after := make(map[int][]*Token)
	moved := make(map[*Token]bool)
	dropped := make([]bool, len(segments))
	closing := make(map[int]int) // end tag index -> segment it is emitted after
	placed := make(map[int]int)  // moved tag index -> position, see tagPosition

	planOpts := render.Options{ParagraphLoops: opts.paragraphLoops, Lonely: sp.lonely}
	for i, tag := range sp.tags {
		if tag.Type != TokenSectionStart {
			continue
		}
		end := sp.tags[partners[i]]
		layout, err := render.Plan(sp.tree, tag.segment, end.segment, planOpts)
		if err != nil {
			return nil, NewTemplateError(part, tag.Raw, tag.Offset, err.Error())
		}
		if layout.Mode != render.ModeInline && crossesSiblings(sp.tags, partners, i, layout, placed) {
			// the markup also holds a neighbouring section
			if !sp.tree.SamePath(tag.segment, end.segment) {
				return nil, NewTemplateError(part, tag.Raw, tag.Offset,
					fmt.Errorf("%w: section overlaps a neighbouring section", render.ErrStructure).Error())
			}
			layout = render.Layout{Mode: render.ModeInline}
		}
		if layout.Mode == render.ModeInline {
			continue
		}
		moved[tag], moved[end] = true, true
		placed[i], placed[partners[i]] = 2*layout.Before-1, 2*layout.After+1
		before[layout.Before] = append(before[layout.Before], tag)
		closing[partners[i]] = layout.After
		for _, r := range layout.Drop {
			for s := r.Start; s <= r.End; s++ {
				dropped[s] = true
			}
		}
		if opts.logger.IsDebugMode() {
			opts.logger.WithFields(Fields{"part": part, "section": tag.Value, "mode": layout.Mode.String()}).Debug("Section layout")
		}
	}
	// End tags are queued in document order so inner sections close first.
	for i, tag := range sp.tags {
		if seg, ok := closing[i]; ok {
			after[seg] = append(after[seg], tag)
		}
	}

	nodeAt := make(map[int]int, len(sp.nodes))
	preserve := make(map[int]bool)
	for k, n := range sp.nodes {
		nodeAt[n.Segment] = k
		if sp.changed[k] {
			preserve[n.Element] = true
		}
	}

	var tokens []Token
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, Token{Type: TokenText, Value: lit.String()})
			lit.Reset()
		}
	}
	emit := func(tag *Token) {
		flush()
		tokens = append(tokens, *tag)
	}

	for i, seg := range segments {
		for _, tag := range before[i] {
			emit(tag)
		}
		if !dropped[i] {
			k, isNode := nodeAt[i]
			switch {
			case isNode && sp.changed[k]:
				for _, p := range sp.pieces[k] {
					if p.tag == nil {
						lit.WriteString(docxml.Escape(p.text))
					} else if !moved[p.tag] {
						emit(p.tag)
					}
				}
			case preserve[i]:
				lit.WriteString(docxml.PreserveSpace(seg.Raw))
			default:
				lit.WriteString(seg.Raw)
			}
		}
		for _, tag := range after[i] {
			emit(tag)
		}
	}
	flush()
	return tokens, nil
}
