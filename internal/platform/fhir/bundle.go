package fhir

import "encoding/json"

// Bundle represents a FHIR Bundle resource. Entry resources are kept
// raw; callers unmarshal only the entries they inspect.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// ConditionResource is the subset of a FHIR Condition inspected during
// bundle validation.
type ConditionResource struct {
	ResourceType string           `json:"resourceType"`
	Code         *CodeableConcept `json:"code,omitempty"`
}
