package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
)

// ErrNotIngested is returned when the snapshot is requested before any
// ingestion run has produced one.
var ErrNotIngested = errors.New("codesystem not ingested")

const snapshotFile = "namaste_codesystem.json"

// SnapshotStore owns the CodeSystem snapshot file. Writes go through a
// temp file and an atomic rename so readers never see a partial
// artifact.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore(dataDir string) *SnapshotStore {
	return &SnapshotStore{path: filepath.Join(dataDir, snapshotFile)}
}

func (st *SnapshotStore) Path() string { return st.path }

// Write replaces the snapshot wholesale.
func (st *SnapshotStore) Write(cs *fhir.CodeSystem) error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), st.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Load reads the current snapshot, returning ErrNotIngested when no
// run has produced one yet.
func (st *SnapshotStore) Load() (*fhir.CodeSystem, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotIngested
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var cs fhir.CodeSystem
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &cs, nil
}
