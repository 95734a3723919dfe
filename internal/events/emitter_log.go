package events

import (
	"context"
	"log/slog"

	"veridoc/internal/verification/models"
	"veridoc/pkg/requestcontext"
)

// LogEmitter writes events to the structured log. Default when no brokers are
// configured.
type LogEmitter struct {
	logger *slog.Logger
}

func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) EmitArtifactResult(ctx context.Context, result models.ArtifactResult) error {
	event := toArtifactEvent(result, requestcontext.Now(ctx))
	e.logger.InfoContext(ctx, "artifact result",
		"subject_id", event.SubjectID,
		"document_type", event.DocumentType,
		"kind", event.Kind,
		"is_valid", event.IsValid,
		"fields", event.Fields,
		"errors", event.Errors,
		"provider", event.Provider,
	)
	return nil
}

func (e *LogEmitter) EmitCaseSummary(ctx context.Context, summary models.CaseSummary) error {
	event := toSummaryEvent(summary, requestcontext.Now(ctx))
	e.logger.InfoContext(ctx, "case summary",
		"case_id", event.CaseID,
		"subject_id", event.SubjectID,
		"document_type", event.DocumentType,
		"final_state", event.FinalState,
	)
	return nil
}
