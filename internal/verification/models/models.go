// Package models defines the data shapes flowing through the verification
// pipeline: uploaded artifacts, extraction results, validation outcomes, the
// case aggregate, and the subject profile.
package models

import (
	"time"

	id "veridoc/pkg/domain"
)

// Canonical field vocabulary. Every OCR adapter maps its raw provider field
// names onto these; validation and aggregation only ever see this set.
const (
	FieldSurname          = "surname"
	FieldFirstGivenName   = "firstGivenName"
	FieldBirthDate        = "birthDate"
	FieldBirthPlace       = "birthPlace"
	FieldSex              = "sex"
	FieldNationality      = "nationality"
	FieldDocumentNumber   = "documentNumber"
	FieldIssueDate        = "issueDate"
	FieldExpiryDate       = "expiryDate"
	FieldAuthority        = "authority"
	FieldAddress          = "address"
	FieldCardAccessNumber = "cardAccessNumber"
	FieldMRZ1             = "mrz1"
	FieldMRZ2             = "mrz2"
	FieldMRZ3             = "mrz3"
)

// TrackedAttributes are the canonical fields merged into the subject profile
// when a case completes.
var TrackedAttributes = []string{
	FieldSurname,
	FieldFirstGivenName,
	FieldBirthDate,
	FieldNationality,
}

// UploadedArtifact is one physical upload delivered by the ingestion
// boundary. Immutable once created.
type UploadedArtifact struct {
	ArtifactID   id.ArtifactID
	SubjectID    id.SubjectID
	DocumentType id.DocumentType
	Kind         id.ArtifactKind
	ContentRef   string
	UploadedAt   time.Time
	// DeviceName is observability metadata captured at upload time.
	DeviceName string
}

// ExtractionResult is the OCR output for one artifact. The provider interface
// guarantees a result object is always produced; transport failures surface
// as Succeeded=false, never as errors.
type ExtractionResult struct {
	Fields             map[string]string
	GivenNames         []string
	ConfidencePerField map[string]float64
	OverallConfidence  float64
	ProviderID         string
	Succeeded          bool
	ErrorMessages      []string
}

// FieldNames lists the canonical fields present in the result, including the
// given-names list when non-empty. Used for observability records.
func (r *ExtractionResult) FieldNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Fields)+1)
	for name, value := range r.Fields {
		if value != "" {
			names = append(names, name)
		}
	}
	if len(r.GivenNames) > 0 {
		names = append(names, "givenNames")
	}
	return names
}

// ValidationOutcome is derived deterministically from an ExtractionResult and
// the (documentType, artifactKind) pair. Stateless and recomputable.
type ValidationOutcome struct {
	IsValid       bool
	MissingFields []string
}

// CaseState is the lifecycle position of a verification case. VOID is the
// absence of a persisted case, so it has no constant here.
type CaseState string

const (
	StateAwaitingSecondArtifact CaseState = "AWAITING_SECOND_ARTIFACT"
	StateAwaitingLiveness       CaseState = "AWAITING_LIVENESS"
	StateCompleted              CaseState = "COMPLETED"
	StateRejected               CaseState = "REJECTED"
)

// IsTerminal reports whether no further state change is permitted.
func (s CaseState) IsTerminal() bool {
	return s == StateCompleted || s == StateRejected
}

// ArtifactRecord is the per-artifact audit entry embedded in a case. The
// extraction keeps its ProviderID so field provenance stays traceable.
type ArtifactRecord struct {
	Extraction  *ExtractionResult
	Validation  ValidationOutcome
	ProcessedAt time.Time
}

// LivenessOutcome is the externally computed liveness result consumed by the
// state machine. The pipeline never computes liveness itself.
type LivenessOutcome struct {
	SubjectID    id.SubjectID
	DocumentType id.DocumentType
	IsValid      bool
	Confidence   float64
	Errors       []string
	EvidenceRefs []string
}

// LivenessRecord is the audit entry for a consumed liveness outcome.
type LivenessRecord struct {
	Outcome     LivenessOutcome
	ProcessedAt time.Time
}

// VerificationCase is the canonical aggregate for one subject + one document
// type. Created on the first validated artifact, never deleted; terminal
// states are final but the record persists for audit.
type VerificationCase struct {
	CaseID       id.CaseID
	SubjectID    id.SubjectID
	DocumentType id.DocumentType
	// OpenEpoch distinguishes re-verifications: it counts prior terminal
	// cases for the same (subject, document type) pair and is part of the
	// deterministic creation key.
	OpenEpoch int
	State     CaseState

	CanonicalFields map[string]string
	Artifacts       map[id.ArtifactKind]ArtifactRecord
	Liveness        *LivenessRecord

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// HasSide reports whether a photo side has already been recorded with a valid
// extraction.
func (c *VerificationCase) HasValidSide(kind id.ArtifactKind) bool {
	rec, ok := c.Artifacts[kind]
	return ok && rec.Validation.IsValid
}

// ProfileEntry is one append-only history entry for a tracked attribute.
// CaseID is the provenance key that makes Profile Merge idempotent.
type ProfileEntry struct {
	Value      string
	Origin     id.DocumentType
	CaseID     id.CaseID
	RecordedAt time.Time
}

// SubjectProfile is the durable per-subject record: an ordered, append-only
// log per tracked attribute. Entries are never overwritten.
type SubjectProfile struct {
	SubjectID id.SubjectID
	Fields    map[string][]ProfileEntry
	UpdatedAt time.Time
}

// RejectedArtifact is the audit record for a submission that produced no case
// mutation: an invalid artifact, or an event arriving in a state that cannot
// accept it. Kept so operators can reconstruct what a subject uploaded.
type RejectedArtifact struct {
	ArtifactID   id.ArtifactID
	SubjectID    id.SubjectID
	DocumentType id.DocumentType
	Kind         id.ArtifactKind
	Reason       string
	Errors       []string
	ProcessedAt  time.Time
}

// ArtifactResult is emitted for every processed artifact for observability.
type ArtifactResult struct {
	SubjectID           id.SubjectID
	DocumentType        id.DocumentType
	Kind                id.ArtifactKind
	IsValid             bool
	ExtractedFieldNames []string
	Errors              []string
	Provider            string
}

// CaseSummary is emitted on COMPLETED and REJECTED transitions for downstream
// consumers such as status polling.
type CaseSummary struct {
	CaseID          id.CaseID
	SubjectID       id.SubjectID
	DocumentType    id.DocumentType
	FinalState      CaseState
	CanonicalFields map[string]string
}
