package opc

import (
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Relationship types used by the engine.
const (
	RelationshipsNamespace         = "http://schemas.openxmlformats.org/package/2006/relationships"
	OfficeDocumentRelationshipType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	ImageRelationshipType          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	HeaderRelationshipType         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	FooterRelationshipType         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
)

// Relationship represents a relationship in a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// External reports whether the target lies outside the package.
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Relationships represents the collection of relationships of one source part.
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`
}

// NewRelationships returns an empty collection.
func NewRelationships() *Relationships {
	return &Relationships{Namespace: RelationshipsNamespace}
}

// ParseRelationships decodes a .rels part.
func ParseRelationships(data []byte) (*Relationships, error) {
	var rels Relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	rels.Namespace = RelationshipsNamespace
	return &rels, nil
}

// Get returns the relationship with the given ID.
func (r *Relationships) Get(id string) (Relationship, bool) {
	for _, rel := range r.Relationship {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// NextID returns an rId one above the highest numeric rId in use.
func (r *Relationships) NextID() string {
	maxID := 0
	for _, rel := range r.Relationship {
		if strings.HasPrefix(rel.ID, "rId") {
			if id, err := strconv.Atoi(rel.ID[3:]); err == nil && id > maxID {
				maxID = id
			}
		}
	}
	return fmt.Sprintf("rId%d", maxID+1)
}

// Add appends an internal relationship and returns its new ID.
func (r *Relationships) Add(relType, target string) string {
	id := r.NextID()
	r.Relationship = append(r.Relationship, Relationship{ID: id, Type: relType, Target: target})
	return id
}

// Marshal encodes the collection with an XML declaration.
func (r *Relationships) Marshal() ([]byte, error) {
	out := Relationships{Namespace: RelationshipsNamespace, Relationship: r.Relationship}
	body, err := xml.Marshal(out)
	if err != nil {
		return nil, err
	}
	return WithDeclaration(body), nil
}

// RelsPathFor returns the relationships part name of a source part,
// e.g. "word/document.xml" -> "word/_rels/document.xml.rels".
func RelsPathFor(partName string) string {
	dir, base := path.Split(partName)
	return dir + "_rels/" + base + ".rels"
}

// SourceOf is the inverse of RelsPathFor. It returns "" for the package
// relationships part and false for names that are not relationships parts.
func SourceOf(relsPart string) (string, bool) {
	dir, base := path.Split(relsPart)
	if !strings.HasSuffix(dir, "_rels/") || !strings.HasSuffix(base, ".rels") {
		return "", false
	}
	return strings.TrimSuffix(dir, "_rels/") + strings.TrimSuffix(base, ".rels"), true
}

// ResolveTarget turns a relationship target into a part name, relative to the source part.
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Join(path.Dir("/"+source), target), "/")
}

// RelativeTarget returns the target that a relationship from source would use to reach partName.
func RelativeTarget(source, partName string) string {
	dir := path.Dir(source)
	if dir == "." {
		return partName
	}
	if strings.HasPrefix(partName, dir+"/") {
		return strings.TrimPrefix(partName, dir+"/")
	}
	return "/" + partName
}
