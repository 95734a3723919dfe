package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veridoc/internal/verification/models"
)

const docscanProviderID = "docscan"

// Docscan calls an external document-scanning HTTP API and maps its raw
// prediction payload onto the canonical field vocabulary. Any transport or
// payload failure produces a Succeeded=false result instead of an error.
type Docscan struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewDocscan(endpoint, apiKey string, timeout time.Duration, opts ...Option) (*Docscan, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("docscan endpoint is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := newSettings(opts...)
	return &Docscan{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   s.logger,
		tracer:   otel.Tracer("veridoc/ocr/docscan"),
	}, nil
}

func (d *Docscan) ID() string { return docscanProviderID }

type docscanRequest struct {
	ContentRef   string `json:"content_ref"`
	DocumentType string `json:"document_type"`
	Side         string `json:"side"`
}

// docscanField is one predicted field: a value plus the provider's confidence
// in it.
type docscanField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type docscanResponse struct {
	Prediction struct {
		Surname          *docscanField  `json:"surname"`
		GivenNames       []docscanField `json:"given_names"`
		BirthDate        *docscanField  `json:"birth_date"`
		BirthPlace       *docscanField  `json:"birth_place"`
		Gender           *docscanField  `json:"gender"`
		Nationality      *docscanField  `json:"nationality"`
		DocumentNumber   *docscanField  `json:"document_number"`
		IssueDate        *docscanField  `json:"issue_date"`
		ExpiryDate       *docscanField  `json:"expiry_date"`
		Authority        *docscanField  `json:"authority"`
		Address          *docscanField  `json:"address"`
		CardAccessNumber *docscanField  `json:"card_access_number"`
		MRZ1             *docscanField  `json:"mrz1"`
		MRZ2             *docscanField  `json:"mrz2"`
		MRZ3             *docscanField  `json:"mrz3"`
	} `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

func (d *Docscan) Extract(ctx context.Context, artifact models.UploadedArtifact) *models.ExtractionResult {
	ctx, span := d.tracer.Start(ctx, "docscan.extract", trace.WithAttributes(
		attribute.String("document.type", artifact.DocumentType.String()),
		attribute.String("artifact.kind", artifact.Kind.String()),
	))
	defer span.End()

	payload, err := json.Marshal(docscanRequest{
		ContentRef:   artifact.ContentRef,
		DocumentType: artifact.DocumentType.String(),
		Side:         artifact.Kind.String(),
	})
	if err != nil {
		return d.failed(span, fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return d.failed(span, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Token "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.ErrorContext(ctx, "docscan request failed", "error", err)
		return d.failed(span, fmt.Sprintf("provider unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.ErrorContext(ctx, "docscan returned non-200", "status", resp.StatusCode)
		return d.failed(span, fmt.Sprintf("provider returned status %d", resp.StatusCode))
	}

	var body docscanResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return d.failed(span, fmt.Sprintf("decode response: %v", err))
	}

	result := d.mapResult(body)
	span.SetAttributes(
		attribute.Int("ocr.fields", len(result.Fields)),
		attribute.Float64("ocr.confidence", result.OverallConfidence),
	)
	d.logger.InfoContext(ctx, "docscan extraction completed",
		"fields", len(result.Fields),
		"confidence", result.OverallConfidence,
	)
	return result
}

// mapResult translates the provider's raw prediction names onto the canonical
// vocabulary. Absent fields stay absent; empty values are dropped so they
// never shadow a later provider's read during aggregation.
func (d *Docscan) mapResult(body docscanResponse) *models.ExtractionResult {
	result := &models.ExtractionResult{
		Fields:             map[string]string{},
		ConfidencePerField: map[string]float64{},
		OverallConfidence:  body.Confidence,
		ProviderID:         docscanProviderID,
		Succeeded:          true,
	}

	put := func(name string, field *docscanField) {
		if field == nil || field.Value == "" {
			return
		}
		result.Fields[name] = field.Value
		result.ConfidencePerField[name] = field.Confidence
	}

	p := body.Prediction
	put(models.FieldSurname, p.Surname)
	put(models.FieldBirthDate, p.BirthDate)
	put(models.FieldBirthPlace, p.BirthPlace)
	put(models.FieldSex, p.Gender)
	put(models.FieldNationality, p.Nationality)
	put(models.FieldDocumentNumber, p.DocumentNumber)
	put(models.FieldIssueDate, p.IssueDate)
	put(models.FieldExpiryDate, p.ExpiryDate)
	put(models.FieldAuthority, p.Authority)
	put(models.FieldAddress, p.Address)
	put(models.FieldCardAccessNumber, p.CardAccessNumber)
	put(models.FieldMRZ1, p.MRZ1)
	put(models.FieldMRZ2, p.MRZ2)
	put(models.FieldMRZ3, p.MRZ3)

	for _, name := range p.GivenNames {
		if name.Value != "" {
			result.GivenNames = append(result.GivenNames, name.Value)
		}
	}
	if len(p.GivenNames) > 0 {
		result.ConfidencePerField["givenNames"] = p.GivenNames[0].Confidence
	}

	return result
}

func (d *Docscan) failed(span trace.Span, message string) *models.ExtractionResult {
	span.SetAttributes(attribute.Bool("ocr.failed", true))
	return &models.ExtractionResult{
		Fields:        map[string]string{},
		ProviderID:    docscanProviderID,
		Succeeded:     false,
		ErrorMessages: []string{message},
	}
}
