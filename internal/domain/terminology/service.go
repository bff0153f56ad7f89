package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
	"github.com/namaste-fhir/termservice/internal/platform/index"
)

// Service provides free-text search and cross-system translation over
// the NAMASTE term index. Each call is stateless request/response.
type Service struct {
	idx       TermIndex
	snapshots SnapshotLoader
	system    string
	timeout   time.Duration
	log       zerolog.Logger
}

func NewService(idx TermIndex, snapshots SnapshotLoader, system string, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{idx: idx, snapshots: snapshots, system: system, timeout: timeout, log: log}
}

// CodeSystem returns the snapshot from the last ingestion run, or
// ingest.ErrNotIngested when no run has happened yet.
func (s *Service) CodeSystem() (*fhir.CodeSystem, error) {
	return s.snapshots.Load()
}

// Search runs a fuzzy multi-field match over display, synonyms and
// definition. An empty or whitespace-only query returns an empty list
// without touching the index. The limit is clamped to [1,100] with a
// default of 20. Results come back in descending score order; equal
// scores keep the order the index returned them in. Backend failures
// surface as ErrSearchUnavailable so callers can tell "no matches"
// from "could not search".
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hits, err := s.idx.Search(ctx, index.Query{
		Text:   query,
		Fields: searchFields,
		Size:   limit,
	})
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("index search failed")
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			Score:    h.Score,
			Code:     h.Source.Code,
			Display:  h.Source.Display,
			Synonyms: h.Source.Synonyms,
			System:   s.system,
		})
	}
	return results, nil
}

// Translate re-queries the index for a single coding with weights
// tuned for disambiguation: exact code identity outranks fuzzy text
// similarity. The source coding is echoed back as the first parameter
// so callers can correlate request and response; zero candidates is a
// valid outcome, not an error.
func (s *Service) Translate(ctx context.Context, coding fhir.Coding) (*fhir.Parameters, error) {
	if coding.Code == "" && coding.Display == "" {
		return nil, ErrMissingCoding
	}

	text := coding.Code
	if text == "" {
		text = coding.Display
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hits, err := s.idx.Search(ctx, index.Query{
		Text:   text,
		Fields: translateFields,
		Size:   translateLimit,
	})
	if err != nil {
		s.log.Error().Err(err).Str("code", coding.Code).Msg("translate query failed")
		return nil, fmt.Errorf("%w: %v", ErrTranslateUnavailable, err)
	}

	src := coding
	params := &fhir.Parameters{
		ResourceType: "Parameters",
		Parameter: []fhir.Parameter{
			{Name: "source", ValueCoding: &src},
		},
	}
	for _, h := range hits {
		var payload CandidatePayload
		payload.Namaste.Code = h.Source.Code
		payload.Namaste.Display = h.Source.Display
		payload.Score = h.Score

		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal candidate %s: %w", h.Source.Code, err)
		}
		params.Parameter = append(params.Parameter, fhir.Parameter{
			Name:        "candidate",
			ValueString: string(raw),
		})
	}
	return params, nil
}
