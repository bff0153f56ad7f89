package fhir

import (
	"encoding/json"
	"testing"
	"time"
)

func TestErrorOutcome(t *testing.T) {
	o := ErrorOutcome("search failed")
	if o.ResourceType != "OperationOutcome" {
		t.Errorf("expected OperationOutcome, got %s", o.ResourceType)
	}
	if len(o.Issue) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(o.Issue))
	}
	if o.Issue[0].Severity != IssueSeverityError || o.Issue[0].Code != IssueTypeProcessing {
		t.Errorf("unexpected issue: %+v", o.Issue[0])
	}
	if o.Issue[0].Diagnostics != "search failed" {
		t.Errorf("unexpected diagnostics: %s", o.Issue[0].Diagnostics)
	}
}

func TestSoftwareProvenance(t *testing.T) {
	now := time.Now().UTC()
	p := SoftwareProvenance("namaste-termservice", now)
	if p.ResourceType != "Provenance" {
		t.Errorf("expected Provenance, got %s", p.ResourceType)
	}
	if !p.Recorded.Equal(now) {
		t.Errorf("expected recorded %v, got %v", now, p.Recorded)
	}
	if len(p.Agent) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(p.Agent))
	}
	if p.Agent[0].Type.Text != "software" {
		t.Errorf("expected software agent type, got %q", p.Agent[0].Type.Text)
	}
	if p.Agent[0].Who.Display != "namaste-termservice" {
		t.Errorf("unexpected agent display: %q", p.Agent[0].Who.Display)
	}
}

func TestBundle_UnmarshalConditionEntry(t *testing.T) {
	raw := `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [{
			"resource": {
				"resourceType": "Condition",
				"code": {"coding": [{"system": "urn:x", "code": "C1", "display": "One"}]}
			}
		}]
	}`
	var b Bundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("unmarshal bundle: %v", err)
	}
	if b.ResourceType != "Bundle" || len(b.Entry) != 1 {
		t.Fatalf("unexpected bundle: %+v", b)
	}
	var cond ConditionResource
	if err := json.Unmarshal(b.Entry[0].Resource, &cond); err != nil {
		t.Fatalf("unmarshal condition: %v", err)
	}
	if cond.ResourceType != "Condition" || len(cond.Code.Coding) != 1 {
		t.Fatalf("unexpected condition: %+v", cond)
	}
	if cond.Code.Coding[0].Code != "C1" {
		t.Errorf("expected code C1, got %s", cond.Code.Coding[0].Code)
	}
}
