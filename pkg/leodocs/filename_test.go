package leodocs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestFilename(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		month  string
		year   int
		want   string
	}{
		{"full", "Minutes", "october", 2026, "Minutes_October_2026.docx"},
		{"upper month", "Minutes", "SEPTEMBER", 2026, "Minutes_September_2026.docx"},
		{"numeric month", "Minutes", "3", 2026, "Minutes_March_2026.docx"},
		{"padded numeric month", "Minutes", "03", 2026, "Minutes_March_2026.docx"},
		{"month out of range", "Minutes", "13", 2026, "Minutes_2026.docx"},
		{"no month", "Minutes", "", 2026, "Minutes_2026.docx"},
		{"no year", "Minutes", "May", 0, "Minutes_May.docx"},
		{"unsafe prefix", "Leo Club / Minutes", "May", 2026, "Leo_Club_Minutes_May_2026.docx"},
		{"unicode prefix", "Acta reunión", "mayo", 2026, "Acta_reunión_Mayo_2026.docx"},
		{"only punctuation", "../..", "", 0, "document.docx"},
		{"empty", "", "", 0, "document.docx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestFilename(tt.prefix, tt.month, tt.year))
		})
	}
}
