package opc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Issue describes a structural problem in a package.
type Issue struct {
	Part    string `json:"part"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Part == "" {
		return i.Message
	}
	return i.Part + ": " + i.Message
}

var relReference = regexp.MustCompile(`\br:(?:embed|id|link|pict)="([^"]+)"`)

// Validate checks the structural consistency of a package: every part has a
// content type, every internal relationship points to an existing part,
// relationship IDs are unique, and every relationship ID referenced from XML
// markup is defined in the part's relationships.
func Validate(p *Package) []Issue {
	var issues []Issue

	ctData, ok := p.Part(ContentTypesPart)
	if !ok {
		return []Issue{{Part: ContentTypesPart, Message: "missing"}}
	}
	ct, err := ParseContentTypes(ctData)
	if err != nil {
		return []Issue{{Part: ContentTypesPart, Message: fmt.Sprintf("unreadable: %v", err)}}
	}

	for _, name := range p.order {
		if name == ContentTypesPart || strings.HasSuffix(name, "/") {
			continue
		}
		if _, ok := ct.TypeOf(name); !ok {
			issues = append(issues, Issue{Part: name, Message: "no content type"})
		}
	}

	for _, name := range p.order {
		source, ok := SourceOf(name)
		if !ok {
			continue
		}
		data, _ := p.Part(name)
		rels, err := ParseRelationships(data)
		if err != nil {
			issues = append(issues, Issue{Part: name, Message: fmt.Sprintf("unreadable: %v", err)})
			continue
		}
		issues = append(issues, checkRelationships(p, name, source, rels)...)
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Part < issues[j].Part })
	return issues
}

func checkRelationships(p *Package, relsPart, source string, rels *Relationships) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(rels.Relationship))
	for _, rel := range rels.Relationship {
		if seen[rel.ID] {
			issues = append(issues, Issue{Part: relsPart, Message: fmt.Sprintf("duplicate relationship id %s", rel.ID)})
		}
		seen[rel.ID] = true
		if rel.External() {
			continue
		}
		if target := ResolveTarget(source, rel.Target); !p.Has(target) {
			issues = append(issues, Issue{Part: relsPart, Message: fmt.Sprintf("%s targets missing part %s", rel.ID, target)})
		}
	}

	if source == "" || !strings.HasSuffix(source, ".xml") {
		return issues
	}
	markup, ok := p.Part(source)
	if !ok {
		return append(issues, Issue{Part: relsPart, Message: "source part is missing"})
	}
	reported := map[string]bool{}
	for _, m := range relReference.FindAllSubmatch(markup, -1) {
		id := string(m[1])
		if !seen[id] && !reported[id] {
			reported[id] = true
			issues = append(issues, Issue{Part: source, Message: fmt.Sprintf("references undefined relationship %s", id)})
		}
	}
	return issues
}
