// Package index owns the Elasticsearch term index: its mapping, its
// creation, and all reads and writes against it.
package index

// Document is one indexed vocabulary term. The document id is the term
// code, so re-indexing the same code overwrites in place.
type Document struct {
	Code       string `json:"code"`
	Display    string `json:"display"`
	Definition string `json:"definition"`
	Synonyms   string `json:"synonyms"`
	Source     string `json:"source"`
}

// Query describes a weighted multi-field match. Fields carry their
// boost inline ("display^3"). Fuzziness is always AUTO: edit distance
// scales with query-term length.
type Query struct {
	Text   string
	Fields []string
	Size   int
}

// Hit is a scored search result.
type Hit struct {
	Score  float64  `json:"_score"`
	Source Document `json:"_source"`
}

// ItemResult reports the outcome of one document in a bulk upsert, in
// submission order.
type ItemResult struct {
	Code   string
	Status int
	Error  string
}

// BulkReport summarizes a bulk upsert. Individual failures are
// collected here, never raised.
type BulkReport struct {
	Items     []ItemResult
	Succeeded int
	Failed    int
}

// mapping is the index schema declared before first write. code and
// source are exact-match keywords; the free-text fields are analyzed.
const mapping = `{
  "mappings": {
    "properties": {
      "code":       {"type": "keyword"},
      "display":    {"type": "text"},
      "definition": {"type": "text"},
      "synonyms":   {"type": "text"},
      "source":     {"type": "keyword"}
    }
  }
}`
