package conceptmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
)

// ErrNotSynthesized is returned when the ConceptMap is requested
// before any synthesis run has produced one.
var ErrNotSynthesized = errors.New("conceptmap not synthesized")

const conceptMapFile = "namaste_conceptmap.json"

// Store owns the ConceptMap artifact file. Like the snapshot store, it
// publishes atomically via temp file + rename so an interrupted run
// never leaves a torn artifact behind.
type Store struct {
	path string
}

func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, conceptMapFile)}
}

func (st *Store) Path() string { return st.path }

// Write replaces the ConceptMap wholesale.
func (st *Store) Write(cm *fhir.ConceptMap) error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(cm, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conceptmap: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".conceptmap-*.json")
	if err != nil {
		return fmt.Errorf("create temp conceptmap: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp conceptmap: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp conceptmap: %w", err)
	}
	if err := os.Rename(tmp.Name(), st.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish conceptmap: %w", err)
	}
	return nil
}

// Load reads the current artifact, returning ErrNotSynthesized when
// no batch run has produced one yet.
func (st *Store) Load() (*fhir.ConceptMap, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotSynthesized
		}
		return nil, fmt.Errorf("read conceptmap: %w", err)
	}
	var cm fhir.ConceptMap
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("parse conceptmap: %w", err)
	}
	return &cm, nil
}
