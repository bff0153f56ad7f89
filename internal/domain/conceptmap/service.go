package conceptmap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
)

// maxConcepts is the hard batch cap: a synthesis run never maps more
// than this many concepts regardless of configuration.
const maxConcepts = 200

// equivalence and comment applied to every generated target; all
// mappings are machine candidates pending human review.
const (
	targetEquivalence = "equivalent"
	targetComment     = "auto-generated candidate"
)

// SnapshotLoader exposes the CodeSystem snapshot the synthesizer reads.
type SnapshotLoader interface {
	Load() (*fhir.CodeSystem, error)
}

// Service generates the NAMASTE→TM2 ConceptMap in one batch pass. A
// re-run replaces the prior artifact wholesale.
type Service struct {
	mapper    Mapper
	snapshots SnapshotLoader
	store     *Store
	sourceURI string
	targetURI string
	limit     int
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(mapper Mapper, snapshots SnapshotLoader, store *Store, sourceURI, targetURI string, limit int, log zerolog.Logger) *Service {
	if limit <= 0 || limit > maxConcepts {
		limit = maxConcepts
	}
	return &Service{
		mapper:    mapper,
		snapshots: snapshots,
		store:     store,
		sourceURI: sourceURI,
		targetURI: targetURI,
		limit:     limit,
		log:       log,
		now:       time.Now,
	}
}

// Synthesize maps the first limit concepts of the snapshot through the
// cross-mapper. Cancellation aborts the loop; a per-concept mapper
// failure is logged and skipped so one bad term cannot sink the batch.
func (s *Service) Synthesize(ctx context.Context, cs *fhir.CodeSystem) (*fhir.ConceptMap, error) {
	n := len(cs.Concept)
	if n > s.limit {
		n = s.limit
	}

	elements := make([]fhir.MapElement, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("synthesis aborted: %w", err)
		}
		c := cs.Concept[i]
		candidates, err := s.mapper.Lookup(ctx, c.Code, c.Display)
		if err != nil {
			s.log.Warn().Err(err).Str("code", c.Code).Msg("cross-mapper lookup failed, skipping concept")
			continue
		}

		targets := make([]fhir.MapTarget, 0, len(candidates))
		for _, cand := range candidates {
			targets = append(targets, fhir.MapTarget{
				Code:        cand.Code,
				Display:     cand.Display,
				Equivalence: targetEquivalence,
				Comment:     targetComment,
			})
		}
		elements = append(elements, fhir.MapElement{
			Code:    c.Code,
			Display: c.Display,
			Target:  targets,
		})
	}

	return &fhir.ConceptMap{
		ResourceType: "ConceptMap",
		ID:           "namaste-to-tm2",
		URL:          "urn:uuid:namaste-to-tm2",
		Version:      s.now().UTC().Format(time.RFC3339),
		Status:       "draft",
		SourceURI:    s.sourceURI,
		TargetURI:    s.targetURI,
		Group: []fhir.ConceptMapGroup{{
			Source:  s.sourceURI,
			Target:  s.targetURI,
			Element: elements,
		}},
	}, nil
}

// Run loads the current snapshot, synthesizes the ConceptMap and
// atomically publishes the artifact.
func (s *Service) Run(ctx context.Context) (*fhir.ConceptMap, error) {
	cs, err := s.snapshots.Load()
	if err != nil {
		return nil, err
	}

	cm, err := s.Synthesize(ctx, cs)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(cm); err != nil {
		return nil, fmt.Errorf("write conceptmap: %w", err)
	}

	s.log.Info().
		Int("elements", len(cm.Group[0].Element)).
		Str("path", s.store.Path()).
		Msg("wrote conceptmap")
	return cm, nil
}

// ConceptMap returns the last synthesized artifact.
func (s *Service) ConceptMap() (*fhir.ConceptMap, error) {
	return s.store.Load()
}
