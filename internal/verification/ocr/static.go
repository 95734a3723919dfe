package ocr

import (
	"context"
	"log/slog"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
)

const staticProviderID = "static"

// Static returns deterministic canned extractions keyed by document type and
// artifact kind. It exists for local development and as the configurable
// fallback when no external provider is reachable; it never fails.
type Static struct {
	logger *slog.Logger
}

func NewStatic(opts ...Option) *Static {
	s := newSettings(opts...)
	return &Static{logger: s.logger}
}

func (p *Static) ID() string { return staticProviderID }

func (p *Static) Extract(ctx context.Context, artifact models.UploadedArtifact) *models.ExtractionResult {
	p.logger.InfoContext(ctx, "static extraction",
		"document_type", artifact.DocumentType,
		"kind", artifact.Kind,
	)

	result := &models.ExtractionResult{
		Fields:     map[string]string{},
		ProviderID: staticProviderID,
		Succeeded:  true,
	}

	switch {
	case artifact.DocumentType.Family() == id.FamilySingleSided:
		result.Fields[models.FieldSurname] = "MARTIN"
		result.GivenNames = []string{"Marie"}
		result.Fields[models.FieldBirthDate] = "1985-12-20"
		result.Fields[models.FieldBirthPlace] = "Lyon"
		result.Fields[models.FieldSex] = "F"
		result.Fields[models.FieldNationality] = "FRA"
		result.Fields[models.FieldDocumentNumber] = "20AB12345"
		result.Fields[models.FieldIssueDate] = "2018-12-20"
		result.Fields[models.FieldExpiryDate] = "2028-12-20"
		result.Fields[models.FieldMRZ1] = "P<FRAMARTIN<<MARIE<<<<<<<<<<<<<<<<<<<<<<<<<<"
		result.Fields[models.FieldMRZ2] = "20AB12345<FRA8512204F2812205<<<<<<<<<<<<<<08"
		result.OverallConfidence = 0.96

	case artifact.Kind == id.ArtifactKindBack:
		result.Fields[models.FieldIssueDate] = "2020-05-15"
		result.Fields[models.FieldExpiryDate] = "2030-05-15"
		result.Fields[models.FieldDocumentNumber] = "FR123456789"
		result.Fields[models.FieldAddress] = "123 RUE DE LA PAIX, 75001 PARIS"
		result.Fields[models.FieldMRZ1] = "IDFRADUPONT<<<<<<<<<<<<<<<<<<<<123456"
		result.Fields[models.FieldMRZ2] = "9005155M3005155FRA<<<<<<<<<<<<<<08"
		result.OverallConfidence = 0.93

	default:
		result.Fields[models.FieldSurname] = "DUPONT"
		result.GivenNames = []string{"Jean"}
		result.Fields[models.FieldBirthDate] = "1990-05-15"
		result.Fields[models.FieldSex] = "M"
		result.Fields[models.FieldNationality] = "FRA"
		result.Fields[models.FieldDocumentNumber] = "FR123456789"
		result.Fields[models.FieldCardAccessNumber] = "FR12345678901"
		result.Fields[models.FieldIssueDate] = "2020-05-15"
		result.Fields[models.FieldExpiryDate] = "2030-05-15"
		result.OverallConfidence = 0.95
	}

	result.ConfidencePerField = map[string]float64{}
	for name := range result.Fields {
		result.ConfidencePerField[name] = result.OverallConfidence
	}
	return result
}
