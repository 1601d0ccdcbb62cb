package leodocs

import (
	"errors"
	"testing"

	"github.com/leoforge/go-leodocs/internal/docxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainPart = "word/document.xml"

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func tagTokens(tokens []Token) []Token {
	var tags []Token
	for _, tok := range tokens {
		if tok.Type != TokenText {
			tags = append(tags, tok)
		}
	}
	return tags
}

func TestTokenizeRecognizesTagKinds(t *testing.T) {
	body := docxtest.Paragraph("Dear {name}, {#items}{.}{/items}{^none}-{/none}{%logo}")
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(body)), nil)
	require.NoError(t, err)

	tags := tagTokens(tokens)
	require.Len(t, tags, 7)
	assert.Equal(t, []TokenType{
		TokenPlaceholder, TokenSectionStart, TokenPlaceholder, TokenSectionEnd,
		TokenSectionStart, TokenSectionEnd, TokenImage,
	}, tokenTypes(tags))
	assert.Equal(t, "name", tags[0].Value)
	assert.Equal(t, "{name}", tags[0].Raw)
	assert.Equal(t, 5, tags[0].Offset)
	assert.Equal(t, "items", tags[1].Value)
	assert.Equal(t, ".", tags[2].Value)
	assert.True(t, tags[4].Inverted)
	assert.False(t, tags[1].Inverted)
	assert.Equal(t, "logo", tags[6].Value)
}

func TestTokenizeJoinsTagsSplitAcrossRuns(t *testing.T) {
	body := `<w:p>` + docxtest.Run("Hello {cl") + docxtest.BoldRun("ub") + docxtest.Run("Name}!") + `</w:p>`
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(body)), nil)
	require.NoError(t, err)

	assert.Equal(t, []TokenType{TokenText, TokenPlaceholder, TokenText}, tokenTypes(tokens))
	assert.Equal(t, "clubName", tokens[1].Value)
	assert.Equal(t, "{clubName}", tokens[1].Raw)
	assert.Contains(t, tokens[0].Value, "Hello ")
	assert.NotContains(t, tokens[2].Value, "ub")
	assert.NotContains(t, tokens[2].Value, "Name}")
	assert.Contains(t, tokens[2].Value, "!")
}

func TestTokenizeKeepsUntouchedMarkup(t *testing.T) {
	body := docxtest.Paragraph("No tags here & there")
	doc := docxtest.Document(body)
	tokens, err := Tokenize(mainPart, []byte(doc), nil)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, doc, tokens[0].Value)
}

func TestTokenizeLoneClosingDelimiterIsText(t *testing.T) {
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(docxtest.Paragraph("a } b {x}"))), nil)
	require.NoError(t, err)
	tags := tagTokens(tokens)
	require.Len(t, tags, 1)
	assert.Equal(t, "x", tags[0].Value)
}

func TestTokenizeCustomDelimiters(t *testing.T) {
	config := &Config{StartDelimiter: "{{", EndDelimiter: "}}"}
	body := docxtest.Paragraph("{{#items}}{{name}}{{/items}} {plain}")
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(body)), config)
	require.NoError(t, err)
	tags := tagTokens(tokens)
	require.Len(t, tags, 3)
	assert.Equal(t, "name", tags[1].Value)
	assert.Equal(t, "{{name}}", tags[1].Raw)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		message string
	}{
		{"unclosed", "Hello {name", "opening delimiter is never closed"},
		{"nested open", "{a {b}", "opening delimiter is never closed"},
		{"empty", "{ }", "empty tag"},
		{"invalid name", "{first name}", "invalid tag name"},
		{"bad section name", "{#1x}{/1x}", "invalid tag name"},
		{"unterminated", "{#items}{name}", "unterminated section"},
		{"stray end", "{/items}", "section end without a matching start"},
		{"interleaved", "{#a}{#b}{/a}{/b}", "section {#b} is closed by {/a}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(mainPart, []byte(docxtest.Document(docxtest.Paragraph(tt.text))), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedTemplate))

			var te *TemplateError
			require.True(t, errors.As(err, &te))
			assert.Contains(t, te.Message, tt.message)
			assert.Equal(t, mainPart, te.Part)
		})
	}
}

func TestTokenizeRejectsBrokenXML(t *testing.T) {
	_, err := Tokenize(mainPart, []byte(`<w:document><w:body></w:document>`), nil)
	require.Error(t, err)
	assert.True(t, IsDocumentError(err))
	assert.False(t, errors.Is(err, ErrMalformedTemplate))
}

func TestTokenizeParagraphLoopDropsTagParagraphs(t *testing.T) {
	body := docxtest.Paragraph("{#items}") + docxtest.Paragraph("Item {name}") + docxtest.Paragraph("{/items}")
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(body)), nil)
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenText, TokenSectionStart, TokenText, TokenPlaceholder, TokenText, TokenSectionEnd, TokenText,
	}, tokenTypes(tokens))
	// The section body is exactly the middle paragraph.
	assert.Equal(t, `<w:p><w:r><w:t xml:space="preserve">Item `, tokens[2].Value)
	assert.Equal(t, `</w:t></w:r></w:p>`, tokens[4].Value)
}

func TestTokenizeParagraphLoopCanBeDisabled(t *testing.T) {
	config := DefaultConfig()
	config.ParagraphLoops = false
	body := docxtest.Paragraph("{#items}") + docxtest.Paragraph("Item {name}") + docxtest.Paragraph("{/items}")
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(body)), config)
	require.NoError(t, err)

	tags := tagTokens(tokens)
	require.Len(t, tags, 3)
	// Inline expansion keeps the tag paragraphs around the section.
	assert.Contains(t, tokens[0].Value, "<w:p><w:r>")
}

func TestTokenizeTableRowLoop(t *testing.T) {
	body := docxtest.Table(
		[]string{"Item", "Owner"},
		[]string{"{#agendaItems}{item}", "{owner}{/agendaItems}"},
	)
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(body)), nil)
	require.NoError(t, err)

	var start, end int
	for i, tok := range tokens {
		switch tok.Type {
		case TokenSectionStart:
			start = i
		case TokenSectionEnd:
			end = i
		}
	}
	require.Greater(t, end, start)
	assert.True(t, len(tokens[start-1].Value) > 0)
	assert.Contains(t, tokens[start-1].Value, "Owner")
	assert.Equal(t, "<w:tr>", tokens[start+1].Value[:len("<w:tr>")])
	assert.Equal(t, "</w:tr>", tokens[end-1].Value[len(tokens[end-1].Value)-len("</w:tr>"):])
}

func TestTokenizeSiblingSectionsInOneRow(t *testing.T) {
	body := docxtest.Table([]string{"{#a}A", "{/a}", "{#b}B", "{/b}"})
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(body)), nil)
	require.NoError(t, err)

	_, err = BuildTree(mainPart, tokens)
	require.NoError(t, err)

	var names []string
	for i, tok := range tokens {
		if tok.Type != TokenSectionStart && tok.Type != TokenSectionEnd {
			continue
		}
		names = append(names, tok.Raw)
		// the row is not claimed by either section
		if i+1 < len(tokens) {
			assert.NotContains(t, tokens[i+1].Value, "<w:tr>")
		}
		assert.NotContains(t, tokens[i-1].Value, "</w:tr>")
	}
	assert.Equal(t, []string{"{#a}", "{/a}", "{#b}", "{/b}"}, names)
}

func TestTokenizeRowLoopAroundSiblingSections(t *testing.T) {
	body := docxtest.Table([]string{"{#rows}{#a}A{/a}", "{#b}B{/b}{/rows}"})
	tokens, err := Tokenize(mainPart, []byte(docxtest.Document(body)), nil)
	require.NoError(t, err)
	_, err = BuildTree(mainPart, tokens)
	require.NoError(t, err)

	for i, tok := range tokens {
		if tok.Type == TokenSectionStart && tok.Value == "rows" {
			assert.Equal(t, "<w:tr>", tokens[i+1].Value[:len("<w:tr>")])
		}
	}
}

func TestTokenizeRejectsSectionsAcrossStructures(t *testing.T) {
	body := docxtest.Paragraph("Start {#items}") +
		docxtest.Table([]string{"{name}{/items}"})
	_, err := Tokenize(mainPart, []byte(docxtest.Document(body)), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedTemplate))
}
