// Package httptransport is the HTTP ingestion boundary. Handlers translate
// between wire DTOs and pipeline types and delegate every decision to the
// pipeline; no verification logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"veridoc/internal/jwttoken"
	"veridoc/internal/platform/middleware"
	"veridoc/internal/platform/secrets"
	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/platform/httputil"
	"veridoc/pkg/requestcontext"
)

// Pipeline accepts uploads and liveness outcomes. Satisfied by the worker
// dispatcher, which bounds concurrency before the real pipeline runs.
type Pipeline interface {
	ProcessArtifact(ctx context.Context, artifact models.UploadedArtifact) (*models.VerificationCase, error)
	ProcessLiveness(ctx context.Context, outcome models.LivenessOutcome) (*models.VerificationCase, error)
}

// CaseReader serves the read-side endpoints straight from the pipeline
// service, bypassing the dispatcher's concurrency budget.
type CaseReader interface {
	GetCaseStatus(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error)
	GetProfile(ctx context.Context, subjectID id.SubjectID) (*models.SubjectProfile, error)
}

// Handler wires the ingestion endpoints to the pipeline.
type Handler struct {
	pipeline      Pipeline
	reader        CaseReader
	tokens        *jwttoken.Service
	uploadKeyHash string
	tokenTTL      time.Duration
	logger        *slog.Logger
}

// NewHandler constructs the ingestion handler. uploadKeyHash is the bcrypt
// hash of the shared upload API key; when empty the token endpoint refuses
// every mint so a misconfigured deployment fails closed.
func NewHandler(pipeline Pipeline, reader CaseReader, tokens *jwttoken.Service, uploadKeyHash string, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		pipeline:      pipeline,
		reader:        reader,
		tokens:        tokens,
		uploadKeyHash: uploadKeyHash,
		tokenTTL:      tokenTTL,
		logger:        logger,
	}
}

// handleMintToken exchanges the upload API key for a subject-bound session
// token. POST /auth/token.
func (h *Handler) handleMintToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[mintTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if h.uploadKeyHash == "" {
		h.logger.ErrorContext(ctx, "token mint refused - no upload key configured",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "upload key not configured"))
		return
	}
	if err := secrets.Verify(req.APIKey, h.uploadKeyHash); err != nil {
		h.logger.WarnContext(ctx, "token mint refused - bad upload key",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid upload key"))
		return
	}

	subjectID, err := id.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.tokens.GenerateUploadToken(subjectID, h.tokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to mint upload token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to mint token"))
		return
	}

	h.logger.InfoContext(ctx, "upload token minted",
		"request_id", requestID,
		"subject_id", subjectID,
	)
	httputil.WriteJSON(w, http.StatusOK, mintTokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.tokenTTL.Seconds()),
	})
}

// handleUploadArtifact ingests one document photo. POST /artifacts.
func (h *Handler) handleUploadArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[uploadArtifactRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	subjectID, err := id.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !h.subjectAuthorized(ctx, subjectID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "token is not bound to this subject"))
		return
	}

	artifactID := id.NewArtifactID()
	if req.ArtifactID != "" {
		artifactID, err = id.ParseArtifactID(req.ArtifactID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	docType, err := id.ParseDocumentType(req.DocumentType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := id.ParseArtifactKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	artifact := models.UploadedArtifact{
		ArtifactID:   artifactID,
		SubjectID:    subjectID,
		DocumentType: docType,
		Kind:         kind,
		ContentRef:   req.ContentRef,
		UploadedAt:   requestcontext.Now(ctx),
		DeviceName:   requestcontext.DeviceName(ctx),
	}

	c, err := h.pipeline.ProcessArtifact(ctx, artifact)
	if err != nil {
		h.logger.ErrorContext(ctx, "artifact processing failed",
			"request_id", requestID,
			"artifact_id", artifactID,
			"subject_id", subjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "artifact accepted",
		"request_id", requestID,
		"artifact_id", artifactID,
		"subject_id", subjectID,
		"document_type", docType,
		"kind", kind,
	)
	httputil.WriteJSON(w, http.StatusAccepted, toUploadResponse(c))
}

// handleLiveness ingests an externally computed liveness outcome.
// POST /liveness.
func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[livenessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	subjectID, err := id.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !h.subjectAuthorized(ctx, subjectID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "token is not bound to this subject"))
		return
	}
	docType, err := id.ParseDocumentType(req.DocumentType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome := models.LivenessOutcome{
		SubjectID:    subjectID,
		DocumentType: docType,
		IsValid:      req.IsValid,
		Confidence:   req.Confidence,
		Errors:       req.Errors,
		EvidenceRefs: req.EvidenceRefs,
	}

	c, err := h.pipeline.ProcessLiveness(ctx, outcome)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "liveness processing failed",
				"request_id", requestID,
				"subject_id", subjectID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "liveness outcome accepted",
		"request_id", requestID,
		"subject_id", subjectID,
		"document_type", docType,
		"state", c.State,
	)
	httputil.WriteJSON(w, http.StatusAccepted, toUploadResponse(c))
}

// handleGetCase serves the latest case for a subject and document type.
// GET /cases/{subjectID}/{documentType}.
func (h *Handler) handleGetCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(pathValue(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docType, err := id.ParseDocumentType(pathValue(r, "documentType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.reader.GetCaseStatus(ctx, subjectID, docType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCase(c))
}

// handleGetProfile serves the append-only subject profile.
// GET /profiles/{subjectID}.
func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(pathValue(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := h.reader.GetProfile(ctx, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromProfile(p))
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// subjectAuthorized enforces the token's subject binding: a session token
// only submits evidence for the subject it was minted for.
func (h *Handler) subjectAuthorized(ctx context.Context, subjectID id.SubjectID) bool {
	return middleware.AuthenticatedSubject(ctx) == subjectID.String()
}
