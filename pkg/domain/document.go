package domain

import (
	dErrors "veridoc/pkg/domain-errors"
)

// DocumentType enumerates the supported document products.
type DocumentType string

const (
	DocumentTypeTraditionalID DocumentType = "traditional_id"
	DocumentTypeNewID         DocumentType = "new_id"
	DocumentTypePassport      DocumentType = "passport"
)

// DocumentFamily groups document types by artifact topology.
type DocumentFamily string

const (
	// FamilyTwoSided documents need a front and a back photo.
	FamilyTwoSided DocumentFamily = "two_sided"
	// FamilySingleSided documents need a single photo plus liveness.
	FamilySingleSided DocumentFamily = "single_sided"
)

// Family returns the artifact topology of the document type.
func (t DocumentType) Family() DocumentFamily {
	if t == DocumentTypePassport {
		return FamilySingleSided
	}
	return FamilyTwoSided
}

// IsValid reports whether the document type is one the pipeline supports.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeTraditionalID, DocumentTypeNewID, DocumentTypePassport:
		return true
	}
	return false
}

func (t DocumentType) String() string { return string(t) }

// ParseDocumentType validates raw external input into a DocumentType.
func ParseDocumentType(raw string) (DocumentType, error) {
	t := DocumentType(raw)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown document type %q", raw)
	}
	return t, nil
}

// ArtifactKind identifies which physical upload an artifact event carries.
// The ingestion boundary sets it explicitly; the pipeline never infers it
// from filenames or content types.
type ArtifactKind string

const (
	ArtifactKindFront    ArtifactKind = "front"
	ArtifactKindBack     ArtifactKind = "back"
	ArtifactKindLiveness ArtifactKind = "liveness"
)

// IsValid reports whether the artifact kind is recognized.
func (k ArtifactKind) IsValid() bool {
	switch k {
	case ArtifactKindFront, ArtifactKindBack, ArtifactKindLiveness:
		return true
	}
	return false
}

func (k ArtifactKind) String() string { return string(k) }

// ParseArtifactKind validates raw external input into an ArtifactKind.
func ParseArtifactKind(raw string) (ArtifactKind, error) {
	k := ArtifactKind(raw)
	if !k.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown artifact kind %q", raw)
	}
	return k, nil
}

// CounterpartSide returns the other photo side for a two-sided document.
// Liveness has no counterpart.
func (k ArtifactKind) CounterpartSide() (ArtifactKind, bool) {
	switch k {
	case ArtifactKindFront:
		return ArtifactKindBack, true
	case ArtifactKindBack:
		return ArtifactKindFront, true
	}
	return "", false
}
