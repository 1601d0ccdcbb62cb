package leodocs

import (
	"fmt"
	"strings"
)

// Node is a compiled template node.
type Node interface {
	String() string
	node()
}

// LiteralNode is markup emitted unchanged.
type LiteralNode struct {
	Markup string
}

// PlaceholderNode is replaced by the text of a bound value.
type PlaceholderNode struct {
	Name string
}

// ImageNode is replaced by an inline drawing of a bound image.
type ImageNode struct {
	Name string
}

// BlockNode is a section. Bound to a list it repeats once per element;
// bound to anything else it renders zero or one time by truthiness.
type BlockNode struct {
	Name     string
	Inverted bool
	Children []Node
}

func (*LiteralNode) node()     {}
func (*PlaceholderNode) node() {}
func (*ImageNode) node()       {}
func (*BlockNode) node()       {}

func (n *LiteralNode) String() string     { return fmt.Sprintf("Literal(%d bytes)", len(n.Markup)) }
func (n *PlaceholderNode) String() string { return fmt.Sprintf("Placeholder(%s)", n.Name) }
func (n *ImageNode) String() string       { return fmt.Sprintf("Image(%s)", n.Name) }

func (n *BlockNode) String() string {
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	kind := "Block"
	if n.Inverted {
		kind = "Inverted"
	}
	return fmt.Sprintf("%s(%s)[%s]", kind, n.Name, strings.Join(parts, " "))
}

// BuildTree assembles a token stream into a tree rooted at an unnamed block.
// Section ends must close the innermost open section by name, and every
// section must be closed.
func BuildTree(part string, tokens []Token) (*BlockNode, error) {
	root := &BlockNode{}
	stack := []*BlockNode{root}
	var openTags []Token

	for _, tok := range tokens {
		top := stack[len(stack)-1]
		switch tok.Type {
		case TokenText:
			if tok.Value == "" {
				continue
			}
			if n := len(top.Children); n > 0 {
				if lit, ok := top.Children[n-1].(*LiteralNode); ok {
					lit.Markup += tok.Value
					continue
				}
			}
			top.Children = append(top.Children, &LiteralNode{Markup: tok.Value})
		case TokenPlaceholder:
			top.Children = append(top.Children, &PlaceholderNode{Name: tok.Value})
		case TokenImage:
			top.Children = append(top.Children, &ImageNode{Name: tok.Value})
		case TokenSectionStart:
			block := &BlockNode{Name: tok.Value, Inverted: tok.Inverted}
			top.Children = append(top.Children, block)
			stack = append(stack, block)
			openTags = append(openTags, tok)
		case TokenSectionEnd:
			if len(stack) == 1 {
				return nil, NewTemplateError(part, tok.Raw, tok.Offset, "section end without a matching start")
			}
			if top.Name != tok.Value {
				open := openTags[len(openTags)-1]
				return nil, NewTemplateError(part, tok.Raw, tok.Offset,
					fmt.Sprintf("section %s is closed by %s", open.Raw, tok.Raw))
			}
			stack = stack[:len(stack)-1]
			openTags = openTags[:len(openTags)-1]
		default:
			return nil, NewTemplateError(part, tok.Raw, tok.Offset, fmt.Sprintf("unexpected token type %s", tok.Type))
		}
	}

	if len(openTags) > 0 {
		open := openTags[len(openTags)-1]
		return nil, NewTemplateError(part, open.Raw, open.Offset, "unterminated section")
	}
	return root, nil
}

// matchSections pairs section starts with their ends and returns, for every
// start and end tag, the index of its partner. Other tags map to -1.
func matchSections(part string, tags []*Token) ([]int, error) {
	partners := make([]int, len(tags))
	var stack []int
	for i, tag := range tags {
		partners[i] = -1
		switch tag.Type {
		case TokenSectionStart:
			stack = append(stack, i)
		case TokenSectionEnd:
			if len(stack) == 0 {
				return nil, NewTemplateError(part, tag.Raw, tag.Offset, "section end without a matching start")
			}
			open := stack[len(stack)-1]
			if tags[open].Value != tag.Value {
				return nil, NewTemplateError(part, tag.Raw, tag.Offset,
					fmt.Sprintf("section %s is closed by %s", tags[open].Raw, tag.Raw))
			}
			stack = stack[:len(stack)-1]
			partners[open], partners[i] = i, open
		}
	}
	if len(stack) > 0 {
		open := tags[stack[len(stack)-1]]
		return nil, NewTemplateError(part, open.Raw, open.Offset, "unterminated section")
	}
	return partners, nil
}

// compilePart tokenizes a part and builds its tree.
func compilePart(part string, data []byte, opts scanOptions) (*BlockNode, error) {
	tokens, err := tokenize(part, data, opts)
	if err != nil {
		return nil, err
	}
	return BuildTree(part, tokens)
}
