// Package bundle validates incoming FHIR Bundles for NAMASTE coding
// completeness.
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/namaste-fhir/termservice/internal/domain/provenance"
	"github.com/namaste-fhir/termservice/internal/platform/fhir"
)

// ErrNotBundle rejects payloads that do not declare themselves as a
// Bundle. No provenance is emitted for structural rejections.
var ErrNotBundle = errors.New("expected FHIR Bundle")

// Issue is one entry-level validation finding.
type Issue struct {
	EntryIndex int    `json:"entry"`
	Text       string `json:"issue"`
}

// ValidationResult pairs the outcome report with its provenance.
type ValidationResult struct {
	Outcome    *fhir.OperationOutcome `json:"outcome"`
	Provenance *fhir.Provenance       `json:"provenance"`
	Issues     []Issue                `json:"-"`
}

// Service checks condition entries of a bundle for NAMASTE coding
// completeness. Non-condition entries are not inspected.
type Service struct {
	system string
	audit  provenance.Repository
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates a validator for the given NAMASTE system URI. The
// audit repository may be nil, in which case provenance records are
// returned but not persisted.
func NewService(system string, audit provenance.Repository, log zerolog.Logger) *Service {
	return &Service{system: system, audit: audit, log: log, now: time.Now}
}

// Validate checks every condition entry. Once the structural check
// passes, a result is always produced: issues are collected in entry
// order and never abort the walk. An entry with no coding at all
// yields the coding-presence issue; an entry whose codings all miss
// the NAMASTE system yields the coding-system issue.
func (s *Service) Validate(ctx context.Context, b *fhir.Bundle) (*ValidationResult, error) {
	if b == nil || b.ResourceType != "Bundle" {
		return nil, ErrNotBundle
	}

	var issues []Issue
	for i, entry := range b.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		var cond fhir.ConditionResource
		if err := json.Unmarshal(entry.Resource, &cond); err != nil || cond.ResourceType != "Condition" {
			continue
		}

		var codings []fhir.Coding
		if cond.Code != nil {
			codings = cond.Code.Coding
		}
		if len(codings) == 0 {
			issues = append(issues, Issue{EntryIndex: i, Text: "Condition has no coding"})
			continue
		}
		hasNamaste := false
		for _, c := range codings {
			if c.System == s.system {
				hasNamaste = true
				break
			}
		}
		if !hasNamaste {
			issues = append(issues, Issue{EntryIndex: i, Text: "Condition missing NAMASTE coding"})
		}
	}

	result := &ValidationResult{
		Outcome:    buildOutcome(issues),
		Provenance: fhir.SoftwareProvenance(provenance.AgentDisplay, s.now().UTC()),
		Issues:     issues,
	}

	if s.audit != nil {
		rec := &provenance.Record{
			Activity:     provenance.ActivityBundleValidate,
			AgentDisplay: provenance.AgentDisplay,
			Recorded:     result.Provenance.Recorded,
			Detail:       fmt.Sprintf("entries=%d issues=%d", len(b.Entry), len(issues)),
		}
		if err := s.audit.Create(ctx, rec); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist validation provenance")
		}
	}
	return result, nil
}

func buildOutcome(issues []Issue) *fhir.OperationOutcome {
	if len(issues) == 0 {
		return fhir.NewOperationOutcome(
			fhir.IssueSeverityInformation, fhir.IssueTypeInformational, "Bundle accepted")
	}
	outcome := &fhir.OperationOutcome{ResourceType: "OperationOutcome"}
	for _, issue := range issues {
		outcome.Issue = append(outcome.Issue, fhir.OperationOutcomeIssue{
			Severity: fhir.IssueSeverityError,
			Code:     fhir.IssueTypeBusinessRule,
			Details:  &fhir.CodeableConcept{Text: issue.Text},
		})
	}
	return outcome
}
