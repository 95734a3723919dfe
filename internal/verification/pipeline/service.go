// Package pipeline drives the verification case state machine: it routes
// uploaded artifacts through OCR and validation, applies transitions, and
// merges completed cases into subject profiles.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veridoc/internal/verification/aggregate"
	"veridoc/internal/verification/models"
	"veridoc/internal/verification/ocr"
	"veridoc/internal/verification/pipeline/metrics"
	"veridoc/internal/verification/ports"
	"veridoc/internal/verification/validation"
	id "veridoc/pkg/domain"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/platform/sentinel"
	"veridoc/pkg/requestcontext"
)

// Rejection reasons recorded in the artifact audit log.
const (
	reasonInvalidFirstArtifact = "invalid first artifact, no case created"
	reasonInvalidForOpenCase   = "invalid artifact, open case unchanged"
	reasonCaseTerminal         = "case already terminal"
	reasonLivenessNotAwaited   = "liveness outcome before both sides validated"
)

type Service struct {
	cases    ports.CaseStore
	profiles ports.ProfileStore
	dedup    ports.DedupStore
	provider ocr.Provider
	emitter  ports.Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	dedupTTL time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEmitter(emitter ports.Emitter) Option {
	return func(s *Service) {
		s.emitter = emitter
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithDedupTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.dedupTTL = ttl
	}
}

func New(cases ports.CaseStore, profiles ports.ProfileStore, dedup ports.DedupStore, provider ocr.Provider, opts ...Option) (*Service, error) {
	if cases == nil {
		return nil, fmt.Errorf("case store is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if dedup == nil {
		return nil, fmt.Errorf("dedup store is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("ocr provider is required")
	}

	svc := &Service{
		cases:    cases,
		profiles: profiles,
		dedup:    dedup,
		provider: provider,
		logger:   slog.Default(),
		tracer:   otel.Tracer("veridoc/pipeline"),
		dedupTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ProcessArtifact runs one side-photo artifact through extraction, validation
// and the state machine. It returns the case after the transition, or nil
// when no case exists and the artifact did not create one. Redelivered
// artifacts are dropped; a fresh artifact arriving after a terminal case
// opens the next case at the next epoch.
func (s *Service) ProcessArtifact(ctx context.Context, artifact models.UploadedArtifact) (*models.VerificationCase, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.process_artifact", trace.WithAttributes(
		attribute.String("subject.id", artifact.SubjectID.String()),
		attribute.String("document.type", artifact.DocumentType.String()),
		attribute.String("artifact.kind", artifact.Kind.String()),
	))
	defer span.End()

	if err := validateArtifactEvent(artifact); err != nil {
		return nil, err
	}

	dedupKey := "artifact:" + artifact.ArtifactID.String()
	marked := false
	first, err := s.dedup.MarkProcessed(ctx, dedupKey, s.dedupTTL)
	switch {
	case err != nil:
		// A dedup outage only weakens redelivery protection; processing
		// continues so the artifact is not lost.
		s.logger.WarnContext(ctx, "dedup check failed, processing anyway", "error", err)
	case !first:
		s.logger.InfoContext(ctx, "dropping redelivered artifact", "artifact_id", artifact.ArtifactID)
		if s.metrics != nil {
			s.metrics.DuplicateDropped.Inc()
		}
		return s.currentCase(ctx, artifact.SubjectID, artifact.DocumentType)
	default:
		marked = true
	}

	c, err := s.applyArtifact(ctx, artifact)
	if err != nil && marked {
		// The transition took no durable effect; release the mark so the
		// boundary's redelivery is processed instead of dropped.
		if clearErr := s.dedup.ClearProcessed(ctx, dedupKey); clearErr != nil {
			s.logger.ErrorContext(ctx, "failed to release dedup mark",
				"error", clearErr, "artifact_id", artifact.ArtifactID)
		}
	}
	return c, err
}

func (s *Service) applyArtifact(ctx context.Context, artifact models.UploadedArtifact) (*models.VerificationCase, error) {
	start := time.Now()
	extraction := s.provider.Extract(ctx, artifact)
	if s.metrics != nil {
		s.metrics.ObserveExtraction(start)
	}

	outcome := validation.Validate(extraction, artifact.DocumentType, artifact.Kind)
	if s.metrics != nil {
		s.metrics.ObserveArtifact(outcome.IsValid)
	}
	s.emitArtifactResult(ctx, artifact, extraction, outcome)

	now := requestcontext.Now(ctx)

	current, err := s.cases.GetOpenCase(ctx, artifact.SubjectID, artifact.DocumentType)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		// No open case. Terminal cases stay final; a valid artifact opens
		// the next one.
		return s.applyFirstArtifact(ctx, artifact, extraction, outcome, now)
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up case")
	}
	return s.applyToOpenCase(ctx, current, artifact, extraction, outcome, now)
}

// applyFirstArtifact handles an artifact with no open case: a valid artifact
// opens the next case, an invalid one is recorded in isolation. The epoch
// counts prior terminal cases, so repeat verifications get fresh keys.
func (s *Service) applyFirstArtifact(ctx context.Context, artifact models.UploadedArtifact, extraction *models.ExtractionResult, outcome models.ValidationOutcome, now time.Time) (*models.VerificationCase, error) {
	if !outcome.IsValid {
		s.auditRejected(ctx, artifact, extraction, reasonInvalidFirstArtifact, now)
		return nil, nil
	}

	epoch, err := s.cases.CountTerminalCases(ctx, artifact.SubjectID, artifact.DocumentType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to derive case epoch")
	}

	c := &models.VerificationCase{
		CaseID:          id.NewCaseID(),
		SubjectID:       artifact.SubjectID,
		DocumentType:    artifact.DocumentType,
		OpenEpoch:       epoch,
		State:           initialState(artifact.DocumentType),
		CanonicalFields: map[string]string{},
		Artifacts:       map[id.ArtifactKind]models.ArtifactRecord{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	aggregate.MergeFields(c.CanonicalFields, extraction)
	c.Artifacts[artifact.Kind] = models.ArtifactRecord{
		Extraction:  extraction,
		Validation:  outcome,
		ProcessedAt: now,
	}

	stored, err := s.cases.CreateIfAbsent(ctx, c)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create case")
	}
	if stored.CaseID == c.CaseID {
		if s.metrics != nil {
			s.metrics.CasesCreated.Inc()
		}
		s.logger.InfoContext(ctx, "case created",
			"case_id", c.CaseID,
			"subject_id", artifact.SubjectID,
			"document_type", artifact.DocumentType,
			"state", c.State,
		)
		return stored, nil
	}

	// A concurrent creator won the key; fold this artifact into the winner.
	s.logger.InfoContext(ctx, "lost case creation race, applying to winner",
		"case_id", stored.CaseID, "artifact_id", artifact.ArtifactID)
	if stored.State.IsTerminal() {
		s.auditRejected(ctx, artifact, extraction, reasonCaseTerminal, now)
		return stored, nil
	}
	return s.applyToOpenCase(ctx, stored, artifact, extraction, outcome, now)
}

// applyToOpenCase folds an artifact into an existing non-terminal case:
// canonical fields first-write-wins, per-side records first-write-wins, state
// recomputed from which sides hold valid extractions.
func (s *Service) applyToOpenCase(ctx context.Context, c *models.VerificationCase, artifact models.UploadedArtifact, extraction *models.ExtractionResult, outcome models.ValidationOutcome, now time.Time) (*models.VerificationCase, error) {
	if !outcome.IsValid {
		s.auditRejected(ctx, artifact, extraction, reasonInvalidForOpenCase, now)
		return c, nil
	}

	if c.HasValidSide(artifact.Kind) {
		// Same side revalidated by a distinct upload: fields may still fill
		// gaps, but the recorded extraction keeps its original provenance.
		aggregate.MergeFields(c.CanonicalFields, extraction)
	} else {
		aggregate.MergeFields(c.CanonicalFields, extraction)
		c.Artifacts[artifact.Kind] = models.ArtifactRecord{
			Extraction:  extraction,
			Validation:  outcome,
			ProcessedAt: now,
		}
	}

	c.State = nextPhotoState(c)
	c.UpdatedAt = now

	if err := s.cases.UpdateCase(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update case")
	}
	s.logger.InfoContext(ctx, "artifact applied",
		"case_id", c.CaseID,
		"kind", artifact.Kind,
		"state", c.State,
	)
	return c, nil
}

// ProcessLiveness applies an externally computed liveness outcome to the
// case awaiting it. Liveness never mutates canonical fields.
func (s *Service) ProcessLiveness(ctx context.Context, outcome models.LivenessOutcome) (*models.VerificationCase, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.process_liveness", trace.WithAttributes(
		attribute.String("subject.id", outcome.SubjectID.String()),
		attribute.String("document.type", outcome.DocumentType.String()),
		attribute.Bool("liveness.valid", outcome.IsValid),
	))
	defer span.End()

	if !outcome.DocumentType.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown document type %q", outcome.DocumentType)
	}

	now := requestcontext.Now(ctx)

	c, err := s.cases.GetLatestCase(ctx, outcome.SubjectID, outcome.DocumentType)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no case awaits liveness for this subject")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up case")
	}

	if c.State.IsTerminal() {
		// Redelivered outcome after finalization: no state change. A
		// completion whose profile merge was interrupted finishes it here;
		// the store dedupes per attribute and case, so once merged this is
		// a no-op.
		if c.State == models.StateCompleted {
			if err := s.mergeProfile(ctx, c, now); err != nil {
				return nil, err
			}
		}
		s.logger.InfoContext(ctx, "liveness for terminal case ignored", "case_id", c.CaseID, "state", c.State)
		return c, nil
	}
	if c.State != models.StateAwaitingLiveness {
		s.auditRejectedLiveness(ctx, outcome, now)
		return c, nil
	}

	c.Liveness = &models.LivenessRecord{Outcome: outcome, ProcessedAt: now}
	c.UpdatedAt = now
	if outcome.IsValid {
		c.State = models.StateCompleted
		c.CompletedAt = &now
	} else {
		c.State = models.StateRejected
		c.CompletedAt = &now
	}

	if err := s.cases.UpdateCase(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to finalize case")
	}

	if c.State == models.StateCompleted {
		if s.metrics != nil {
			s.metrics.CasesCompleted.Inc()
		}
		if err := s.mergeProfile(ctx, c, now); err != nil {
			return nil, err
		}
	} else if s.metrics != nil {
		s.metrics.CasesRejected.Inc()
	}

	s.logger.InfoContext(ctx, "case finalized",
		"case_id", c.CaseID,
		"state", c.State,
		"liveness_valid", outcome.IsValid,
	)
	s.emitCaseSummary(ctx, c)
	return c, nil
}

// GetCaseStatus returns the newest case for the pair. Exposed to the status
// endpoint.
func (s *Service) GetCaseStatus(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error) {
	c, err := s.cases.GetLatestCase(ctx, subjectID, docType)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no verification case for this subject and document type")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up case")
	}
	return c, nil
}

// GetProfile returns the subject's append-only profile.
func (s *Service) GetProfile(ctx context.Context, subjectID id.SubjectID) (*models.SubjectProfile, error) {
	p, err := s.profiles.GetProfile(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no profile recorded for this subject")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
	}
	return p, nil
}

// mergeProfile appends each tracked canonical field to the subject profile.
// The store dedupes by (attribute, case), so a retried completion is a no-op.
func (s *Service) mergeProfile(ctx context.Context, c *models.VerificationCase, now time.Time) error {
	for _, attribute := range models.TrackedAttributes {
		value, ok := c.CanonicalFields[attribute]
		if !ok || value == "" {
			continue
		}
		entry := models.ProfileEntry{
			Value:      value,
			Origin:     c.DocumentType,
			CaseID:     c.CaseID,
			RecordedAt: now,
		}
		if err := s.profiles.AppendProfileField(ctx, c.SubjectID, attribute, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to merge profile")
		}
	}
	return nil
}

func (s *Service) currentCase(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error) {
	c, err := s.cases.GetLatestCase(ctx, subjectID, docType)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up case")
	}
	return c, nil
}

func (s *Service) auditRejected(ctx context.Context, artifact models.UploadedArtifact, extraction *models.ExtractionResult, reason string, now time.Time) {
	rec := models.RejectedArtifact{
		ArtifactID:   artifact.ArtifactID,
		SubjectID:    artifact.SubjectID,
		DocumentType: artifact.DocumentType,
		Kind:         artifact.Kind,
		Reason:       reason,
		ProcessedAt:  now,
	}
	if extraction != nil {
		rec.Errors = extraction.ErrorMessages
	}
	if err := s.cases.RecordRejectedArtifact(ctx, rec); err != nil {
		// Audit failures never mask the pipeline outcome.
		s.logger.ErrorContext(ctx, "failed to record rejected artifact", "error", err, "artifact_id", artifact.ArtifactID)
	}
}

func (s *Service) auditRejectedLiveness(ctx context.Context, outcome models.LivenessOutcome, now time.Time) {
	rec := models.RejectedArtifact{
		ArtifactID:   id.NewArtifactID(),
		SubjectID:    outcome.SubjectID,
		DocumentType: outcome.DocumentType,
		Kind:         id.ArtifactKindLiveness,
		Reason:       reasonLivenessNotAwaited,
		Errors:       outcome.Errors,
		ProcessedAt:  now,
	}
	if err := s.cases.RecordRejectedArtifact(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to record rejected liveness", "error", err, "subject_id", outcome.SubjectID)
	}
}

func (s *Service) emitArtifactResult(ctx context.Context, artifact models.UploadedArtifact, extraction *models.ExtractionResult, outcome models.ValidationOutcome) {
	if s.emitter == nil {
		return
	}
	result := models.ArtifactResult{
		SubjectID:           artifact.SubjectID,
		DocumentType:        artifact.DocumentType,
		Kind:                artifact.Kind,
		IsValid:             outcome.IsValid,
		ExtractedFieldNames: extraction.FieldNames(),
	}
	if extraction != nil {
		result.Provider = extraction.ProviderID
	}
	if !outcome.IsValid {
		result.Errors = append(result.Errors, outcome.MissingFields...)
	}
	if extraction != nil {
		result.Errors = append(result.Errors, extraction.ErrorMessages...)
	}
	if err := s.emitter.EmitArtifactResult(ctx, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit artifact result", "error", err)
	}
}

func (s *Service) emitCaseSummary(ctx context.Context, c *models.VerificationCase) {
	if s.emitter == nil {
		return
	}
	summary := models.CaseSummary{
		CaseID:          c.CaseID,
		SubjectID:       c.SubjectID,
		DocumentType:    c.DocumentType,
		FinalState:      c.State,
		CanonicalFields: c.CanonicalFields,
	}
	if err := s.emitter.EmitCaseSummary(ctx, summary); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit case summary", "error", err)
	}
}

func validateArtifactEvent(artifact models.UploadedArtifact) error {
	if artifact.ArtifactID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "artifact id is required")
	}
	if artifact.SubjectID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if !artifact.DocumentType.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown document type %q", artifact.DocumentType)
	}
	switch artifact.Kind {
	case id.ArtifactKindFront:
	case id.ArtifactKindBack:
		if artifact.DocumentType.Family() != id.FamilyTwoSided {
			return dErrors.Newf(dErrors.CodeInvalidInput, "document type %q has no back side", artifact.DocumentType)
		}
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "artifact kind %q is not a photo side", artifact.Kind)
	}
	if artifact.ContentRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "content reference is required")
	}
	return nil
}

// initialState is the post-creation state: single-sided documents go straight
// to liveness, two-sided ones wait for their counterpart.
func initialState(docType id.DocumentType) models.CaseState {
	if docType.Family() == id.FamilySingleSided {
		return models.StateAwaitingLiveness
	}
	return models.StateAwaitingSecondArtifact
}

// nextPhotoState recomputes the photo-phase state from which sides hold valid
// extractions. Commutative in arrival order.
func nextPhotoState(c *models.VerificationCase) models.CaseState {
	if c.DocumentType.Family() == id.FamilySingleSided {
		return models.StateAwaitingLiveness
	}
	if c.HasValidSide(id.ArtifactKindFront) && c.HasValidSide(id.ArtifactKindBack) {
		return models.StateAwaitingLiveness
	}
	return models.StateAwaitingSecondArtifact
}
