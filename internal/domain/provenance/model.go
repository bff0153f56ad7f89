package provenance

import (
	"time"

	"github.com/google/uuid"

	"github.com/namaste-fhir/termservice/internal/platform/fhir"
)

// Activities recorded by this service.
const (
	ActivityIngest         = "ingest"
	ActivityBundleValidate = "bundle-validate"
	ActivityConceptMapSync = "conceptmap-sync"
)

// AgentDisplay is the fixed software-agent identity stamped on every
// provenance record.
const AgentDisplay = "namaste-termservice"

// Record maps to the provenance table: one audited action.
type Record struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Activity     string    `db:"activity" json:"activity"`
	AgentDisplay string    `db:"agent_display" json:"agent_display"`
	Recorded     time.Time `db:"recorded" json:"recorded"`
	Detail       string    `db:"detail" json:"detail,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ToFHIR renders the record as a FHIR Provenance resource.
func (r *Record) ToFHIR() *fhir.Provenance {
	return fhir.SoftwareProvenance(r.AgentDisplay, r.Recorded)
}
