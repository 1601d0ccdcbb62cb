// Package xml provides the byte-exact markup model used to rewrite DOCX parts.
//
// A part is split into segments: start tags, end tags, self-closing elements,
// character data and everything else (declarations, comments, processing
// instructions). Joining the segments of an untouched part reproduces the
// original bytes exactly, so only the regions a template actually changes are
// ever re-serialized.
//
// # Structure Organization
//
//   - segment.go: Parse and Join, the Segment and Kind types
//   - tree.go: element matching, parents and ancestor paths over a segment list
//   - text.go: WordprocessingML text nodes and text escaping
//   - drawing.go: inline picture markup for embedded images
//
// # Key Concepts
//
// Text node: the character data inside a w:t element. Template tags are only
// recognized in text nodes, never in attribute values or other elements.
//
// Path: the qualified element names enclosing a segment, outermost first.
// Two positions with equal paths sit at the same structural depth, which is
// what makes it safe to repeat the markup between them.
//
// # XML Namespaces
//
// Element names are compared as written (for example "w:p"). Word always
// writes the WordprocessingML namespace with the w prefix; the drawing markup
// produced by this package declares wp, a, pic and r on the elements that use
// them so it is valid regardless of the declarations on the document root.
package xml
