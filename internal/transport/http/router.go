package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veridoc/internal/platform/middleware"
)

// NewRouter assembles the ingestion API. Mutating routes sit behind the
// upload-session JWT; reads and the token exchange do not.
func NewRouter(h *Handler, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/token", h.handleMintToken)
	r.Get("/cases/{subjectID}/{documentType}", h.handleGetCase)
	r.Get("/profiles/{subjectID}", h.handleGetProfile)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUploadAuth(validator, logger))
		r.Post("/artifacts", h.handleUploadArtifact)
		r.Post("/liveness", h.handleLiveness)
	})

	return r
}

func pathValue(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
