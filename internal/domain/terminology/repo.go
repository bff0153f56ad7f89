package terminology

import (
	"context"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
	"github.com/namaste-fhir/termservice/internal/platform/index"
)

// TermIndex is the read-only query surface of the full-text index.
// Production uses index.Client; tests substitute a fake.
type TermIndex interface {
	Search(ctx context.Context, q index.Query) ([]index.Hit, error)
}

// SnapshotLoader exposes the CodeSystem snapshot produced by the last
// ingestion run. Implemented by ingest.SnapshotStore.
type SnapshotLoader interface {
	Load() (*fhir.CodeSystem, error)
}
