package fhir

// CodeSystem represents a FHIR CodeSystem resource, the versioned
// snapshot artifact produced by each ingestion run.
type CodeSystem struct {
	ResourceType string    `json:"resourceType"`
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Version      string    `json:"version"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Content      string    `json:"content"`
	Concept      []Concept `json:"concept"`
}

// Concept is one entry in a CodeSystem.
type Concept struct {
	Code       string `json:"code"`
	Display    string `json:"display"`
	Definition string `json:"definition,omitempty"`
}

// ConceptMap represents a FHIR ConceptMap resource, the persisted
// cross-mapping table produced by batch synthesis.
type ConceptMap struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Version      string            `json:"version"`
	Status       string            `json:"status"`
	SourceURI    string            `json:"sourceUri"`
	TargetURI    string            `json:"targetUri"`
	Group        []ConceptMapGroup `json:"group"`
}

type ConceptMapGroup struct {
	Source  string       `json:"source"`
	Target  string       `json:"target"`
	Element []MapElement `json:"element"`
}

type MapElement struct {
	Code    string      `json:"code"`
	Display string      `json:"display"`
	Target  []MapTarget `json:"target"`
}

type MapTarget struct {
	Code        string `json:"code"`
	Display     string `json:"display"`
	Equivalence string `json:"equivalence"`
	Comment     string `json:"comment,omitempty"`
}
