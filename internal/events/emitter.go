// Package events publishes pipeline observability events: per-artifact
// results and terminal case summaries. Two emitters exist: a structured-log
// emitter for single-process deployments and a Kafka emitter for everything
// else.
package events

import (
	"time"

	"veridoc/internal/verification/models"
)

// Wire shapes. Kept separate from the domain models so the published contract
// does not shift when internal types do.

type artifactResultEvent struct {
	SubjectID    string   `json:"subject_id"`
	DocumentType string   `json:"document_type"`
	Kind         string   `json:"artifact_kind"`
	IsValid      bool     `json:"is_valid"`
	Fields       []string `json:"extracted_fields,omitempty"`
	Errors       []string `json:"errors,omitempty"`
	Provider     string   `json:"provider"`
	EmittedAt    string   `json:"emitted_at"`
}

type caseSummaryEvent struct {
	CaseID          string            `json:"case_id"`
	SubjectID       string            `json:"subject_id"`
	DocumentType    string            `json:"document_type"`
	FinalState      string            `json:"final_state"`
	CanonicalFields map[string]string `json:"canonical_fields"`
	EmittedAt       string            `json:"emitted_at"`
}

func toArtifactEvent(r models.ArtifactResult, at time.Time) artifactResultEvent {
	return artifactResultEvent{
		SubjectID:    r.SubjectID.String(),
		DocumentType: r.DocumentType.String(),
		Kind:         r.Kind.String(),
		IsValid:      r.IsValid,
		Fields:       r.ExtractedFieldNames,
		Errors:       r.Errors,
		Provider:     r.Provider,
		EmittedAt:    at.UTC().Format(time.RFC3339Nano),
	}
}

func toSummaryEvent(s models.CaseSummary, at time.Time) caseSummaryEvent {
	return caseSummaryEvent{
		CaseID:          s.CaseID.String(),
		SubjectID:       s.SubjectID.String(),
		DocumentType:    s.DocumentType.String(),
		FinalState:      string(s.FinalState),
		CanonicalFields: s.CanonicalFields,
		EmittedAt:       at.UTC().Format(time.RFC3339Nano),
	}
}
