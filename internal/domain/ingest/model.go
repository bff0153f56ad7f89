package ingest

import "strings"

// SourceNamaste tags every record originating from the NAMASTE
// vocabulary.
const SourceNamaste = "namaste"

// Term is the canonical representation of one NAMASTE vocabulary
// entry. A Term with an empty code never leaves the pipeline.
type Term struct {
	Code       string
	Display    string
	Definition string
	Synonyms   string
}

// Row is one raw tabular record, column name to value.
type Row map[string]string

// Accepted column aliases per logical field, in resolution order.
// Matching is case-insensitive, so each list only carries genuinely
// different names.
var (
	codeAliases       = []string{"code"}
	displayAliases    = []string{"preferredLabel", "display"}
	definitionAliases = []string{"definition"}
	synonymsAliases   = []string{"synonyms"}
)

// resolve returns the trimmed value of the first alias present in the
// row, matching column names case-insensitively.
func resolve(row Row, aliases []string) string {
	lowered := make(map[string]string, len(row))
	for k, v := range row {
		lowered[strings.ToLower(k)] = v
	}
	for _, alias := range aliases {
		if v, ok := lowered[strings.ToLower(alias)]; ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// termFromRow maps a raw row onto a Term. display falls back to the
// code when absent; definition and synonyms default to empty.
func termFromRow(row Row) Term {
	t := Term{
		Code:       resolve(row, codeAliases),
		Display:    resolve(row, displayAliases),
		Definition: resolve(row, definitionAliases),
		Synonyms:   resolve(row, synonymsAliases),
	}
	if t.Display == "" {
		t.Display = t.Code
	}
	return t
}
