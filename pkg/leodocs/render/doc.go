// Package render decides how repeated sections map onto document markup.
//
// A section's start and end tags live in text nodes. Repeating the raw bytes
// between them only yields valid markup when the two tags sit at the same
// element depth, so before a part is compiled each section is given a Layout:
//
//   - ModeInline: both tags stay where they are; valid when they share a
//     paragraph or their enclosing element paths match.
//   - ModeRow: the tags sit in different cells of one table row, so the whole
//     w:tr is repeated.
//   - ModeParagraph: each tag is alone in its own paragraph, so those two
//     paragraphs are dropped and everything between them is repeated.
//
// The helpers are pure functions over an xml.Tree and never touch template
// data, which keeps them independent of the leodocs package.
package render
