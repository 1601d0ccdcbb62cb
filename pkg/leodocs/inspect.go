package leodocs

import (
	"sort"

	"github.com/leoforge/go-leodocs/pkg/leodocs/opc"
)

// TagRef is one tag found in a template part.
type TagRef struct {
	Part     string `json:"part"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Raw      string `json:"raw"`
	Offset   int    `json:"offset"`
	Inverted bool   `json:"inverted,omitempty"`
}

// Report describes a template without rendering it.
type Report struct {
	Main  string   `json:"main"`
	Parts []string `json:"parts"`
	Tags  []TagRef `json:"tags"`
	// Problems holds the tag and section errors of every part.
	Problems *MultiError `json:"-"`
	// Issues lists package consistency problems.
	Issues []opc.Issue `json:"issues,omitempty"`
}

// Valid reports whether the template would prepare and its package is consistent.
func (r *Report) Valid() bool {
	return r.Problems.Len() == 0 && len(r.Issues) == 0
}

// Names returns the distinct tag names in sorted order.
func (r *Report) Names() []string {
	seen := map[string]bool{}
	var names []string
	for _, t := range r.Tags {
		if t.Kind == TokenSectionEnd.String() || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Inspect lists the tags of every renderable part and collects all template
// problems instead of stopping at the first one. An error is returned only
// when data is not a readable package.
func Inspect(data []byte, config *Config) (*Report, error) {
	config = NewConfigWithDefaults(config)
	pkg, err := opc.Open(data)
	if err != nil {
		return nil, NewDocumentError("open", "", err)
	}
	parts, err := renderableParts(pkg)
	if err != nil {
		return nil, NewDocumentError("open", "", err)
	}

	report := &Report{Main: parts[0], Parts: parts, Problems: NewMultiError()}
	opts := newScanOptions(config, nil)
	for _, part := range parts {
		markup, _ := pkg.Part(part)
		sp, err := scanPart(part, markup, opts)
		if err != nil {
			report.Problems.Add(err)
			continue
		}
		for _, tag := range sp.tags {
			report.Tags = append(report.Tags, TagRef{
				Part:     part,
				Kind:     tag.Type.String(),
				Name:     tag.Value,
				Raw:      tag.Raw,
				Offset:   tag.Offset,
				Inverted: tag.Inverted,
			})
		}
		if _, err := compilePart(part, markup, opts); err != nil {
			report.Problems.Add(err)
		}
	}
	report.Issues = opc.Validate(pkg)
	return report, nil
}
