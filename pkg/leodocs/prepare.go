package leodocs

import (
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/leoforge/go-leodocs/pkg/leodocs/opc"
)

// PreparedTemplate is a parsed and compiled template. It is immutable and
// safe for concurrent use: every Render works on its own copy of the package.
type PreparedTemplate struct {
	name      string
	pkg       *opc.Package
	parts     []compiledPart
	lastDocPr int
	config    Config
	logger    *Logger
	renders   atomic.Int64
}

type compiledPart struct {
	name string
	root *BlockNode
}

// Prepare parses and compiles template bytes. name labels errors and logs.
func Prepare(name string, data []byte, config *Config, logger *Logger) (*PreparedTemplate, error) {
	config = NewConfigWithDefaults(config)
	if logger == nil {
		logger = NopLogger()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pkg, err := opc.Open(data)
	if err != nil {
		return nil, NewDocumentError("open", name, err)
	}
	targets, err := renderableParts(pkg)
	if err != nil {
		return nil, NewDocumentError("open", name, err)
	}

	opts := newScanOptions(config, logger)
	pt := &PreparedTemplate{name: name, pkg: pkg, config: *config, logger: logger}
	for _, part := range targets {
		markup, _ := pkg.Part(part)
		root, err := compilePart(part, markup, opts)
		if err != nil {
			return nil, err
		}
		pt.parts = append(pt.parts, compiledPart{name: part, root: root})
		if n := maxDocPrID(markup); n > pt.lastDocPr {
			pt.lastDocPr = n
		}
	}

	logger.WithFields(Fields{"template": name, "parts": len(pt.parts)}).Debug("Prepared template")
	return pt, nil
}

// renderableParts returns the main document followed by the headers and
// footers it references, in relationship order.
func renderableParts(pkg *opc.Package) ([]string, error) {
	main, err := pkg.MainDocument()
	if err != nil {
		return nil, err
	}
	parts := []string{main}

	data, ok := pkg.Part(opc.RelsPathFor(main))
	if !ok {
		return parts, nil
	}
	rels, err := opc.ParseRelationships(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relationships of %s: %w", main, err)
	}
	seen := map[string]bool{main: true}
	for _, rel := range rels.Relationship {
		if rel.External() || (rel.Type != opc.HeaderRelationshipType && rel.Type != opc.FooterRelationshipType) {
			continue
		}
		target := opc.ResolveTarget(main, rel.Target)
		if !seen[target] && pkg.Has(target) && strings.EqualFold(path.Ext(target), ".xml") {
			seen[target] = true
			parts = append(parts, target)
		}
	}
	return parts, nil
}

// Name returns the template's identifier.
func (pt *PreparedTemplate) Name() string {
	return pt.name
}

// Parts lists the parts that are rendered, main document first.
func (pt *PreparedTemplate) Parts() []string {
	names := make([]string, len(pt.parts))
	for i, p := range pt.parts {
		names[i] = p.name
	}
	return names
}

// Tree returns the compiled tree of a part.
func (pt *PreparedTemplate) Tree(part string) (*BlockNode, bool) {
	for _, p := range pt.parts {
		if p.name == part {
			return p.root, true
		}
	}
	return nil, false
}

// Render binds data to the template and returns the rendered package. No
// partial output is returned on error.
func (pt *PreparedTemplate) Render(data TemplateData) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, RecoverError(r)
		}
	}()

	start := time.Now()
	pkg := pt.pkg.Clone()
	images := newImageEmbedder(pkg, pt.lastDocPr, pt.config.MaxImageBytes, pt.logger)
	ctx := NewContext(ValueOf(map[string]interface{}(data)))

	for _, part := range pt.parts {
		r := &Resolver{Images: images.forPart(part.name), DateLayout: pt.config.DateLayout}
		runs, err := r.Resolve(part.root, ctx)
		if err != nil {
			return nil, WithContext(err, "render", map[string]interface{}{"template": pt.name, "part": part.name})
		}
		body, err := finalizePart(part.name, strings.Join(runs, ""))
		if err != nil {
			return nil, err
		}
		pkg.SetPart(part.name, body)
	}
	if err := images.flush(); err != nil {
		return nil, err
	}

	out, err = assemble(pkg)
	if err != nil {
		return nil, err
	}
	pt.renders.Add(1)
	pt.logger.WithFields(Fields{
		"template": pt.name,
		"bytes":    len(out),
		"duration": time.Since(start).String(),
	}).Debug("Rendered template")
	return out, nil
}

// RenderCount returns how many renders of this template succeeded.
func (pt *PreparedTemplate) RenderCount() int64 {
	return pt.renders.Load()
}
