package leodocs

import (
	"errors"
	"fmt"
	"strings"

	docxml "github.com/leoforge/go-leodocs/pkg/leodocs/xml"
)

// ImageSink embeds images for one part and returns the drawing markup that
// references them.
type ImageSink interface {
	Embed(name string, asset *ImageAsset) (string, error)
}

const (
	textBreak = `</w:t><w:br/><w:t xml:space="preserve">`
	textClose = `</w:t>`
	textOpen  = `<w:t xml:space="preserve">`
)

// Resolver binds data to compiled templates.
type Resolver struct {
	// Images receives image tags. A nil sink makes every image tag fail.
	Images ImageSink
	// DateLayout formats time values; empty means RFC 3339.
	DateLayout string

	out []string
}

// Resolve binds ctx to node and returns the resulting markup runs in document order.
func Resolve(node Node, ctx *Context, images ImageSink) ([]string, error) {
	r := &Resolver{Images: images, DateLayout: DefaultConfig().DateLayout}
	return r.Resolve(node, ctx)
}

// Resolve binds ctx to node and returns the resulting markup runs in document order.
func (r *Resolver) Resolve(node Node, ctx *Context) ([]string, error) {
	r.out = r.out[:0]
	if err := r.resolve(node, ctx); err != nil {
		return nil, err
	}
	out := r.out
	r.out = nil
	return out, nil
}

func (r *Resolver) resolve(node Node, ctx *Context) error {
	switch n := node.(type) {
	case *LiteralNode:
		r.out = append(r.out, n.Markup)
	case *PlaceholderNode:
		v, _ := ctx.Lookup(n.Name)
		r.out = append(r.out, textMarkup(v.Format(r.DateLayout)))
	case *ImageNode:
		return r.resolveImage(n, ctx)
	case *BlockNode:
		return r.resolveBlock(n, ctx)
	default:
		return fmt.Errorf("unknown template node %T", node)
	}
	return nil
}

func (r *Resolver) resolveChildren(children []Node, ctx *Context) error {
	for _, child := range children {
		if err := r.resolve(child, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveBlock(n *BlockNode, ctx *Context) error {
	// The root block has no name and renders once.
	if n.Name == "" {
		return r.resolveChildren(n.Children, ctx)
	}

	v, ok := ctx.Lookup(n.Name)
	if n.Inverted {
		if ok && v.Truthy() {
			return nil
		}
		return r.resolveChildren(n.Children, ctx)
	}
	if !ok {
		return nil
	}

	switch v.Kind() {
	case KindList:
		for i, item := range v.Items() {
			ctx.Push(iterationScope(item, i))
			if err := r.resolveChildren(n.Children, ctx); err != nil {
				return err
			}
			ctx.Pop()
		}
		return nil
	case KindMap:
		if !v.Truthy() {
			return nil
		}
		ctx.Push(v)
		if err := r.resolveChildren(n.Children, ctx); err != nil {
			return err
		}
		ctx.Pop()
		return nil
	default:
		if !v.Truthy() {
			return nil
		}
		return r.resolveChildren(n.Children, ctx)
	}
}

func (r *Resolver) resolveImage(n *ImageNode, ctx *Context) error {
	v, ok := ctx.Lookup(n.Name)
	if !ok || v.IsNull() {
		return missingAsset(n.Name)
	}
	asset, err := assetFrom(v)
	if err != nil {
		return invalidAsset(n.Name, err)
	}
	if r.Images == nil {
		return invalidAsset(n.Name, errors.New("images are not supported here"))
	}
	drawing, err := r.Images.Embed(n.Name, asset)
	if err != nil {
		return err
	}
	r.out = append(r.out, textClose+drawing+textOpen)
	return nil
}

// textMarkup escapes a substituted value for use inside w:t. Line breaks become w:br elements.
func textMarkup(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "\r\n") {
		return docxml.Escape(s)
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = docxml.Escape(line)
	}
	return strings.Join(lines, textBreak)
}
