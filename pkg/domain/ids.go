// Package domain holds the shared identity types and vocabulary used across
// the verification pipeline. IDs are typed UUIDs so a SubjectID can never be
// passed where a CaseID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "veridoc/pkg/domain-errors"
)

type (
	// SubjectID identifies the person being verified.
	SubjectID uuid.UUID

	// CaseID identifies one verification case (one subject + one document type).
	CaseID uuid.UUID

	// ArtifactID identifies one uploaded artifact event.
	ArtifactID uuid.UUID
)

func (id SubjectID) String() string  { return uuid.UUID(id).String() }
func (id CaseID) String() string     { return uuid.UUID(id).String() }
func (id ArtifactID) String() string { return uuid.UUID(id).String() }

func (id SubjectID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CaseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ArtifactID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewCaseID generates a fresh case identifier.
func NewCaseID() CaseID { return CaseID(uuid.New()) }

// NewArtifactID generates a fresh artifact identifier.
func NewArtifactID() ArtifactID { return ArtifactID(uuid.New()) }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", kind)
	}
	return parsed, nil
}

// ParseSubjectID validates raw external input into a SubjectID.
func ParseSubjectID(raw string) (SubjectID, error) {
	parsed, err := parseUUID(raw, "subject id")
	return SubjectID(parsed), err
}

// ParseCaseID validates raw external input into a CaseID.
func ParseCaseID(raw string) (CaseID, error) {
	parsed, err := parseUUID(raw, "case id")
	return CaseID(parsed), err
}

// ParseArtifactID validates raw external input into an ArtifactID.
func ParseArtifactID(raw string) (ArtifactID, error) {
	parsed, err := parseUUID(raw, "artifact id")
	return ArtifactID(parsed), err
}
