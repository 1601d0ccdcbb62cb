// Package leodocs assembles Word (DOCX) documents from templates and a data
// context.
//
// A template is an ordinary .docx file whose text contains tags. Tags are
// recognized in the text content of the document, so a tag that the word
// processor split over several runs still works.
//
// # Quick Start
//
//	engine := leodocs.New(leodocs.NewDirStore("templates"))
//	defer engine.Close()
//
//	result, err := engine.Render(ctx, leodocs.Request{
//	    Template: "minutes.docx",
//	    Data: leodocs.TemplateData{
//	        "clubName": "Example Leos",
//	        "agendaItems": []map[string]interface{}{
//	            {"item": "Roll Call"},
//	            {"item": "Treasurer Report"},
//	        },
//	    },
//	    Filename: leodocs.FilenameSpec{Prefix: "Minutes", Month: "october", Year: 2026},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(result.Filename, result.Data, 0644)
//
// # Template Syntax
//
//	{name}            - Placeholder, replaced by the value's text (empty when absent)
//	{club.name}       - Nested field access
//	{#items}...{/items} - Section: repeats per list element, or renders once when truthy
//	{^items}...{/items} - Inverted section: renders when the value is absent or falsy
//	{%logo}           - Inline image bound to an image asset
//	{.} {$index} {$position} - Current element, zero-based and one-based index
//
// A section whose tags sit in different cells of one table row repeats the
// row. A section whose tags each sit alone in their own paragraph repeats the
// paragraphs between them.
//
// # Errors
//
// Missing text values and missing sections are not errors. A missing image
// asset is: it fails with ErrMissingAsset. Malformed tags or interleaved
// sections fail with ErrMalformedTemplate, and unknown templates with
// ErrTemplateNotFound. A failed render never returns a partial document.
//
// # Concurrency
//
// Prepared templates are immutable and cached by the Engine; every render
// works on its own copy of the package, so renders may run concurrently.
package leodocs
