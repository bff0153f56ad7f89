package terminology

import "errors"

// SearchResult is one scored candidate from the NAMASTE term index.
// Score is engine-defined: non-negative, higher is more relevant, no
// fixed upper bound.
type SearchResult struct {
	Score    float64 `json:"score"`
	Code     string  `json:"code"`
	Display  string  `json:"display"`
	Synonyms string  `json:"synonyms,omitempty"`
	System   string  `json:"system"`
}

// SearchResponse is the wire shape of the search operation.
type SearchResponse struct {
	Matches []SearchResult `json:"matches"`
}

// CandidatePayload is the structured provenance embedded in each
// $translate candidate parameter, serialized as a valueString.
type CandidatePayload struct {
	Namaste struct {
		Code    string `json:"code"`
		Display string `json:"display"`
	} `json:"namaste"`
	Score float64 `json:"score"`
}

// Operation-scoped error conditions. Backend failures are distinct
// from empty results so callers can retry.
var (
	ErrSearchUnavailable    = errors.New("search unavailable")
	ErrTranslateUnavailable = errors.New("translate unavailable")
	ErrMissingCoding        = errors.New("coding requires code or display")
)

// Field weights for the two query profiles. Free-text search favors
// the human-readable label; translation favors exact code identity.
var (
	searchFields    = []string{"display^3", "synonyms", "definition"}
	translateFields = []string{"code^4", "display^3", "synonyms", "definition"}
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	translateLimit     = 10
)
