package opc

import (
	"encoding/xml"
	"path"
	"strings"
)

// ContentTypesNamespace is the namespace of [Content_Types].xml.
const ContentTypesNamespace = "http://schemas.openxmlformats.org/package/2006/content-types"

// ContentTypes represents the [Content_Types].xml part.
type ContentTypes struct {
	XMLName   xml.Name              `xml:"Types"`
	Namespace string                `xml:"xmlns,attr"`
	Defaults  []ContentTypeDefault  `xml:"Default"`
	Overrides []ContentTypeOverride `xml:"Override"`
}

// ContentTypeDefault maps a file extension to a content type.
type ContentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ContentTypeOverride maps a single part to a content type.
type ContentTypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ParseContentTypes decodes a [Content_Types].xml part.
func ParseContentTypes(data []byte) (*ContentTypes, error) {
	var ct ContentTypes
	if err := xml.Unmarshal(data, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

// Default returns the content type registered for an extension. Extensions
// compare case-insensitively.
func (ct *ContentTypes) Default(ext string) (string, bool) {
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType, true
		}
	}
	return "", false
}

// AddDefault registers an extension unless it is already present. It reports
// whether the collection changed.
func (ct *ContentTypes) AddDefault(ext, contentType string) bool {
	if _, ok := ct.Default(ext); ok {
		return false
	}
	ct.Defaults = append(ct.Defaults, ContentTypeDefault{Extension: ext, ContentType: contentType})
	return true
}

// Register makes partName resolve to contentType. The extension default is
// used when free; otherwise the part gets an override. It reports whether the
// collection changed.
func (ct *ContentTypes) Register(partName, contentType string) bool {
	if typ, ok := ct.TypeOf(partName); ok && typ == contentType {
		return false
	}
	if ext := strings.TrimPrefix(path.Ext(partName), "."); ext != "" && ct.AddDefault(ext, contentType) {
		return true
	}
	name := "/" + strings.TrimPrefix(partName, "/")
	for i, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, name) {
			ct.Overrides[i].ContentType = contentType
			return true
		}
	}
	ct.Overrides = append(ct.Overrides, ContentTypeOverride{PartName: name, ContentType: contentType})
	return true
}

// TypeOf resolves the content type of a part, preferring overrides.
func (ct *ContentTypes) TypeOf(partName string) (string, bool) {
	for _, o := range ct.Overrides {
		if strings.EqualFold(strings.TrimPrefix(o.PartName, "/"), partName) {
			return o.ContentType, true
		}
	}
	ext := strings.TrimPrefix(path.Ext(partName), ".")
	if ext == "" {
		return "", false
	}
	return ct.Default(ext)
}

// Marshal encodes the part with an XML declaration.
func (ct *ContentTypes) Marshal() ([]byte, error) {
	out := ContentTypes{
		Namespace: ContentTypesNamespace,
		Defaults:  ct.Defaults,
		Overrides: ct.Overrides,
	}
	body, err := xml.Marshal(out)
	if err != nil {
		return nil, err
	}
	return WithDeclaration(body), nil
}
