package leodocs

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var unsafeNameRun = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SuggestFilename derives a download name such as "Minutes_October_2026.docx".
// month may be a name in any case or a number from 1 to 12; an empty month
// or a zero year is left out.
func SuggestFilename(prefix, month string, year int) string {
	var parts []string
	if p := sanitizeNamePart(prefix); p != "" {
		parts = append(parts, p)
	}
	if m := monthName(month); m != "" {
		parts = append(parts, m)
	}
	if year > 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	if len(parts) == 0 {
		parts = append(parts, "document")
	}
	return strings.Join(parts, "_") + ".docx"
}

func monthName(month string) string {
	month = strings.TrimSpace(month)
	if month == "" {
		return ""
	}
	if n, err := strconv.Atoi(month); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n).String()
		}
		return ""
	}
	// a Caser keeps state between calls and cannot be shared
	return sanitizeNamePart(cases.Title(language.English).String(month))
}

func sanitizeNamePart(s string) string {
	s = unsafeNameRun.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "_.")
}
