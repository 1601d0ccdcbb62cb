// Command leodocs renders DOCX templates from the command line and serves
// them over HTTP.
//
// Usage:
//
//	leodocs render minutes.docx --data minutes.json --month 5 --year 2026
//	leodocs render --modality virtual --data minutes.yaml --out -
//	leodocs inspect minutes.docx
//	leodocs serve --port 8080 --watch
//
// Settings come from .leodocs.yaml, LEODOCS_* environment variables and
// flags; see internal/config.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
