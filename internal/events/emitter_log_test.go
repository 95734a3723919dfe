package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
)

func TestLogEmitterWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	emitter := NewLogEmitter(logger)
	ctx := context.Background()

	err := emitter.EmitArtifactResult(ctx, models.ArtifactResult{
		SubjectID:           id.SubjectID(uuid.New()),
		DocumentType:        id.DocumentTypeNewID,
		Kind:                id.ArtifactKindFront,
		IsValid:             true,
		ExtractedFieldNames: []string{"surname"},
		Provider:            "static",
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "artifact result", line["msg"])
	require.Equal(t, "new_id", line["document_type"])
	require.Equal(t, true, line["is_valid"])

	buf.Reset()
	err = emitter.EmitCaseSummary(ctx, models.CaseSummary{
		CaseID:       id.NewCaseID(),
		SubjectID:    id.SubjectID(uuid.New()),
		DocumentType: id.DocumentTypePassport,
		FinalState:   models.StateCompleted,
	})
	require.NoError(t, err)

	line = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "case summary", line["msg"])
	require.Equal(t, "COMPLETED", line["final_state"])
}
