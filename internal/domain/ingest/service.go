package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
	"github.com/namaste-fhir/termservice/internal/platform/index"
)

// Indexer is the slice of the index adapter the pipeline needs.
type Indexer interface {
	EnsureIndex(ctx context.Context) error
	BulkUpsert(ctx context.Context, docs []index.Document) (*index.BulkReport, error)
}

// Result is the pair of synchronized artifacts one ingestion run
// produces: the CodeSystem snapshot and the index documents.
type Result struct {
	Snapshot  *fhir.CodeSystem
	Documents []index.Document
	Skipped   int
}

// RunReport summarizes a completed ingestion run.
type RunReport struct {
	Version     string
	Concepts    int
	Skipped     int
	Indexed     int
	IndexFailed int
}

// Service turns raw NAMASTE rows into a versioned CodeSystem snapshot
// plus index documents.
type Service struct {
	system string
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(system string, log zerolog.Logger) *Service {
	return &Service{system: system, log: log, now: time.Now}
}

// ReadCSV parses a header-keyed CSV stream into rows, preserving input
// order. An unreadable stream is fatal; ragged rows are tolerated and
// zipped against the header.
func (s *Service) ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Ingest transforms rows into the snapshot and index documents. Rows
// whose code is blank after trimming are skipped and counted. The
// snapshot version is the run date; re-running on the same day
// overwrites the prior snapshot.
func (s *Service) Ingest(rows []Row) *Result {
	snapshot := &fhir.CodeSystem{
		ResourceType: "CodeSystem",
		ID:           "namaste-codesystem",
		URL:          s.system,
		Version:      s.now().UTC().Format("2006-01-02"),
		Name:         "NAMASTE",
		Status:       "active",
		Content:      "complete",
		Concept:      []fhir.Concept{},
	}

	result := &Result{Snapshot: snapshot}
	for _, row := range rows {
		term := termFromRow(row)
		if term.Code == "" {
			result.Skipped++
			continue
		}
		snapshot.Concept = append(snapshot.Concept, fhir.Concept{
			Code:       term.Code,
			Display:    term.Display,
			Definition: term.Definition,
		})
		result.Documents = append(result.Documents, index.Document{
			Code:       term.Code,
			Display:    term.Display,
			Definition: term.Definition,
			Synonyms:   term.Synonyms,
			Source:     SourceNamaste,
		})
	}

	if result.Skipped > 0 {
		s.log.Warn().Int("skipped", result.Skipped).Msg("skipped rows with blank code")
	}
	return result
}

// Run executes a full ingestion: parse, transform, persist the
// snapshot, then declare and fill the index. Parsing happens before
// any write so a broken input aborts cleanly.
func (s *Service) Run(ctx context.Context, r io.Reader, idx Indexer, store *SnapshotStore) (*RunReport, error) {
	rows, err := s.ReadCSV(r)
	if err != nil {
		return nil, err
	}

	result := s.Ingest(rows)
	if err := store.Write(result.Snapshot); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	s.log.Info().
		Str("version", result.Snapshot.Version).
		Int("concepts", len(result.Snapshot.Concept)).
		Str("path", store.Path()).
		Msg("wrote codesystem snapshot")

	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	report, err := idx.BulkUpsert(ctx, result.Documents)
	if err != nil {
		return nil, err
	}

	return &RunReport{
		Version:     result.Snapshot.Version,
		Concepts:    len(result.Snapshot.Concept),
		Skipped:     result.Skipped,
		Indexed:     report.Succeeded,
		IndexFailed: report.Failed,
	}, nil
}
