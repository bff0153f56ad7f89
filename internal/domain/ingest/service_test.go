package ingest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/namaste-fhir/termservice/internal/platform/index"
)

const testSystem = "https://namaste.ayush.gov.in/codesystem/NAMASTE"

func newTestService() *Service {
	svc := NewService(testSystem, zerolog.New(os.Stderr))
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

type mockIndexer struct {
	ensured bool
	docs    []index.Document
}

func (m *mockIndexer) EnsureIndex(_ context.Context) error { m.ensured = true; return nil }

func (m *mockIndexer) BulkUpsert(_ context.Context, docs []index.Document) (*index.BulkReport, error) {
	m.docs = append(m.docs, docs...)
	report := &index.BulkReport{Succeeded: len(docs)}
	for _, d := range docs {
		report.Items = append(report.Items, index.ItemResult{Code: d.Code, Status: 201})
	}
	return report, nil
}

func TestIngest_BuildsSnapshotAndDocuments(t *testing.T) {
	svc := newTestService()
	rows := []Row{
		{"code": "NAM001", "preferredLabel": "Jwara", "definition": "Fever", "synonyms": "Santapa"},
		{"code": "NAM002", "display": "Atisara"},
	}

	result := svc.Ingest(rows)

	if result.Snapshot.URL != testSystem {
		t.Errorf("unexpected snapshot url: %s", result.Snapshot.URL)
	}
	if result.Snapshot.Version != "2026-03-15" {
		t.Errorf("expected day-stamped version, got %s", result.Snapshot.Version)
	}
	if len(result.Snapshot.Concept) != 2 {
		t.Fatalf("expected 2 concepts, got %d", len(result.Snapshot.Concept))
	}
	c := result.Snapshot.Concept[0]
	if c.Code != "NAM001" || c.Display != "Jwara" || c.Definition != "Fever" {
		t.Errorf("unexpected concept: %+v", c)
	}
	if len(result.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(result.Documents))
	}
	if result.Documents[0].Synonyms != "Santapa" || result.Documents[0].Source != SourceNamaste {
		t.Errorf("unexpected document: %+v", result.Documents[0])
	}
}

func TestIngest_SkipsBlankCodes(t *testing.T) {
	svc := newTestService()
	rows := []Row{
		{"code": "NAM001", "display": "Jwara"},
		{"code": "   ", "display": "blank code"},
		{"display": "no code at all"},
		{"code": "NAM003", "display": "Kasa"},
	}

	result := svc.Ingest(rows)

	if result.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", result.Skipped)
	}
	if len(result.Snapshot.Concept) != 2 {
		t.Errorf("expected 2 concepts, got %d", len(result.Snapshot.Concept))
	}
	if len(result.Documents) != 2 {
		t.Errorf("expected 2 documents, got %d", len(result.Documents))
	}
}

func TestIngest_DisplayFallsBackToCode(t *testing.T) {
	svc := newTestService()
	result := svc.Ingest([]Row{{"code": "NAM009"}})

	if len(result.Snapshot.Concept) != 1 {
		t.Fatalf("expected 1 concept, got %d", len(result.Snapshot.Concept))
	}
	if result.Snapshot.Concept[0].Display != "NAM009" {
		t.Errorf("expected display to fall back to code, got %q", result.Snapshot.Concept[0].Display)
	}
}

func TestIngest_AliasResolutionIsCaseInsensitive(t *testing.T) {
	svc := newTestService()
	result := svc.Ingest([]Row{
		{"Code": "NAM001", "PreferredLabel": "Jwara", "Definition": "Fever", "Synonyms": "Santapa"},
	})

	if len(result.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(result.Documents))
	}
	d := result.Documents[0]
	if d.Code != "NAM001" || d.Display != "Jwara" || d.Definition != "Fever" || d.Synonyms != "Santapa" {
		t.Errorf("unexpected document: %+v", d)
	}
}

func TestReadCSV_PreservesOrderAndTrims(t *testing.T) {
	svc := newTestService()
	csv := "code,preferredLabel,definition\n" +
		"NAM001, Jwara ,Fever\n" +
		"NAM002,Atisara,Diarrhoea\n"

	rows, err := svc.ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["code"] != "NAM001" || rows[1]["code"] != "NAM002" {
		t.Errorf("row order not preserved: %v", rows)
	}

	// trimming happens at field resolution
	result := svc.Ingest(rows)
	if result.Documents[0].Display != "Jwara" {
		t.Errorf("expected trimmed display, got %q", result.Documents[0].Display)
	}
}

func TestReadCSV_ToleratesRaggedRows(t *testing.T) {
	svc := newTestService()
	csv := "code,preferredLabel,definition\nNAM001,Jwara\n"

	rows, err := svc.ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["definition"] != "" {
		t.Errorf("expected empty definition, got %q", rows[0]["definition"])
	}
}

func TestReadCSV_EmptyInputIsFatal(t *testing.T) {
	svc := newTestService()
	if _, err := svc.ReadCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for unreadable input")
	}
}

func TestRun_EndToEnd(t *testing.T) {
	svc := newTestService()
	idx := &mockIndexer{}
	store := NewSnapshotStore(t.TempDir())

	csv := "code,preferredLabel,definition\n" +
		"NAM001,Jwara,Fever\n" +
		",blank,skipped\n" +
		"NAM002,Atisara,Diarrhoea\n"

	report, err := svc.Run(context.Background(), strings.NewReader(csv), idx, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Concepts != 2 || report.Skipped != 1 || report.Indexed != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
	if !idx.ensured {
		t.Error("expected index to be declared before writes")
	}

	cs, err := store.Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(cs.Concept) != 2 {
		t.Errorf("expected 2 concepts in persisted snapshot, got %d", len(cs.Concept))
	}
}

func TestRun_SecondRunOverwritesSnapshot(t *testing.T) {
	svc := newTestService()
	idx := &mockIndexer{}
	store := NewSnapshotStore(t.TempDir())
	csv := "code,preferredLabel\nNAM001,Jwara\n"

	for i := 0; i < 2; i++ {
		if _, err := svc.Run(context.Background(), strings.NewReader(csv), idx, store); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	cs, err := store.Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(cs.Concept) != 1 {
		t.Errorf("expected snapshot replaced, not appended: %d concepts", len(cs.Concept))
	}
	// idempotent upsert: same id submitted twice, no new ids
	if len(idx.docs) != 2 || idx.docs[0].Code != idx.docs[1].Code {
		t.Errorf("expected same document id on re-ingest, got %+v", idx.docs)
	}
}

func TestSnapshotStore_LoadBeforeIngest(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())
	if _, err := store.Load(); err != ErrNotIngested {
		t.Errorf("expected ErrNotIngested, got %v", err)
	}
}
