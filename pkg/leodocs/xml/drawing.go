package xml

import "fmt"

// Namespaces declared by inline drawing markup.
const (
	NamespaceWordDrawing   = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	NamespaceDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NamespacePicture       = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	NamespaceRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// EMUPerPixel converts pixels at 96 DPI to English Metric Units.
const EMUPerPixel = 9525

// Drawing describes an inline picture.
type Drawing struct {
	// RelID is the relationship ID of the image part, e.g. "rId7".
	RelID string
	// ID is the drawing object ID, unique within the document.
	ID          int
	Name        string
	Description string
	// Width and Height are in pixels.
	Width, Height int
}

// Markup returns the w:drawing element for d.
func (d Drawing) Markup() string {
	cx := int64(d.Width) * EMUPerPixel
	cy := int64(d.Height) * EMUPerPixel
	name := Escape(d.Name)
	descr := ""
	if d.Description != "" {
		descr = fmt.Sprintf(` descr="%s"`, Escape(d.Description))
	}
	return fmt.Sprintf(`<w:drawing>`+
		`<wp:inline xmlns:wp="%s" distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/>`+
		`<wp:effectExtent l="0" t="0" r="0" b="0"/>`+
		`<wp:docPr id="%d" name="%s"%s/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="%s" noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic xmlns:a="%s"><a:graphicData uri="%s">`+
		`<pic:pic xmlns:pic="%s">`+
		`<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip xmlns:r="%s" r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`,
		NamespaceWordDrawing,
		cx, cy,
		d.ID, name, descr,
		NamespaceDrawing,
		NamespaceDrawing, NamespacePicture,
		NamespacePicture,
		d.ID, name,
		NamespaceRelationships, d.RelID,
		cx, cy,
	)
}
