package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"veridoc/internal/verification/models"
	"veridoc/internal/verification/validation"
)

// Fallback decorates a primary provider with a secondary one. The secondary
// runs when the primary's extraction fails or does not pass the field rules
// for the artifact's document type and side. If both produce unusable output,
// the primary's result wins when it at least ran, falling back to whichever
// result exists, so the original failure cause stays visible in the audit
// record.
type Fallback struct {
	primary   Provider
	secondary Provider
	logger    *slog.Logger
}

func NewFallback(primary, secondary Provider, opts ...Option) (*Fallback, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary provider is required")
	}
	if secondary == nil {
		return nil, fmt.Errorf("secondary provider is required")
	}

	s := newSettings(opts...)
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    s.logger,
	}, nil
}

func (f *Fallback) ID() string {
	return fmt.Sprintf("%s+%s", f.primary.ID(), f.secondary.ID())
}

func (f *Fallback) Extract(ctx context.Context, artifact models.UploadedArtifact) *models.ExtractionResult {
	primary := f.primary.Extract(ctx, artifact)
	if usable(primary, artifact) {
		return primary
	}

	f.logger.WarnContext(ctx, "primary extraction unusable, trying fallback",
		"primary", f.primary.ID(),
		"secondary", f.secondary.ID(),
		"primary_errors", errorsOf(primary),
	)

	secondary := f.secondary.Extract(ctx, artifact)
	if usable(secondary, artifact) {
		return secondary
	}

	f.logger.ErrorContext(ctx, "fallback extraction also unusable",
		"secondary", f.secondary.ID(),
		"secondary_errors", errorsOf(secondary),
	)

	// Prefer whichever result at least ran; the primary's errors carry the
	// original failure cause for the audit record.
	if primary != nil && primary.Succeeded {
		return primary
	}
	if secondary != nil && secondary.Succeeded {
		return secondary
	}
	if primary != nil {
		return primary
	}
	return secondary
}

func usable(result *models.ExtractionResult, artifact models.UploadedArtifact) bool {
	if result == nil || !result.Succeeded {
		return false
	}
	return validation.Validate(result, artifact.DocumentType, artifact.Kind).IsValid
}

func errorsOf(result *models.ExtractionResult) []string {
	if result == nil {
		return []string{"no result"}
	}
	return result.ErrorMessages
}
