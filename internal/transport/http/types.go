package httptransport

import (
	"time"

	"veridoc/internal/verification/models"
)

type mintTokenRequest struct {
	APIKey    string `json:"api_key"`
	SubjectID string `json:"subject_id"`
}

type mintTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

type uploadArtifactRequest struct {
	// ArtifactID is client-supplied so upload retries carry the same identity
	// and are dropped as duplicates. Empty means a fresh upload.
	ArtifactID   string `json:"artifact_id"`
	SubjectID    string `json:"subject_id"`
	DocumentType string `json:"document_type"`
	Kind         string `json:"kind"`
	ContentRef   string `json:"content_ref"`
}

type livenessRequest struct {
	SubjectID    string   `json:"subject_id"`
	DocumentType string   `json:"document_type"`
	IsValid      bool     `json:"is_valid"`
	Confidence   float64  `json:"confidence"`
	Errors       []string `json:"errors,omitempty"`
	EvidenceRefs []string `json:"evidence_refs,omitempty"`
}

type artifactView struct {
	IsValid       bool     `json:"is_valid"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Provider      string   `json:"provider,omitempty"`
}

type livenessView struct {
	IsValid     bool      `json:"is_valid"`
	Confidence  float64   `json:"confidence"`
	ProcessedAt time.Time `json:"processed_at"`
}

type caseView struct {
	CaseID          string                  `json:"case_id"`
	SubjectID       string                  `json:"subject_id"`
	DocumentType    string                  `json:"document_type"`
	State           string                  `json:"state"`
	OpenEpoch       int                     `json:"open_epoch"`
	CanonicalFields map[string]string       `json:"canonical_fields"`
	Artifacts       map[string]artifactView `json:"artifacts,omitempty"`
	Liveness        *livenessView           `json:"liveness,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
}

// stateVoid is returned when no case exists yet for the submitted upload,
// which is what an invalid first artifact produces.
const stateVoid = "VOID"

type uploadResponse struct {
	State string    `json:"state"`
	Case  *caseView `json:"case,omitempty"`
}

func fromCase(c *models.VerificationCase) *caseView {
	if c == nil {
		return nil
	}
	view := &caseView{
		CaseID:          c.CaseID.String(),
		SubjectID:       c.SubjectID.String(),
		DocumentType:    c.DocumentType.String(),
		State:           string(c.State),
		OpenEpoch:       c.OpenEpoch,
		CanonicalFields: c.CanonicalFields,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		CompletedAt:     c.CompletedAt,
	}
	if len(c.Artifacts) > 0 {
		view.Artifacts = make(map[string]artifactView, len(c.Artifacts))
		for kind, rec := range c.Artifacts {
			av := artifactView{
				IsValid:       rec.Validation.IsValid,
				MissingFields: rec.Validation.MissingFields,
			}
			if rec.Extraction != nil {
				av.Provider = rec.Extraction.ProviderID
			}
			view.Artifacts[kind.String()] = av
		}
	}
	if c.Liveness != nil {
		view.Liveness = &livenessView{
			IsValid:     c.Liveness.Outcome.IsValid,
			Confidence:  c.Liveness.Outcome.Confidence,
			ProcessedAt: c.Liveness.ProcessedAt,
		}
	}
	return view
}

func toUploadResponse(c *models.VerificationCase) uploadResponse {
	if c == nil {
		return uploadResponse{State: stateVoid}
	}
	return uploadResponse{State: string(c.State), Case: fromCase(c)}
}

type profileEntryView struct {
	Value      string    `json:"value"`
	Origin     string    `json:"origin"`
	CaseID     string    `json:"case_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

type profileView struct {
	SubjectID string                        `json:"subject_id"`
	Fields    map[string][]profileEntryView `json:"fields"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

func fromProfile(p *models.SubjectProfile) profileView {
	view := profileView{
		SubjectID: p.SubjectID.String(),
		Fields:    make(map[string][]profileEntryView, len(p.Fields)),
		UpdatedAt: p.UpdatedAt,
	}
	for attribute, entries := range p.Fields {
		views := make([]profileEntryView, 0, len(entries))
		for _, entry := range entries {
			views = append(views, profileEntryView{
				Value:      entry.Value,
				Origin:     entry.Origin.String(),
				CaseID:     entry.CaseID.String(),
				RecordedAt: entry.RecordedAt,
			})
		}
		view.Fields[attribute] = views
	}
	return view
}
