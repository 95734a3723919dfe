package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"veridoc/internal/jwttoken"
	"veridoc/pkg/requestcontext"
)

// TokenValidator verifies upload-session tokens. Satisfied by
// jwttoken.Service; tests substitute their own.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

type contextKeySubjectID struct{}

// AuthenticatedSubject returns the subject ID the presented token was minted
// for, or "" when the request was not authenticated.
func AuthenticatedSubject(ctx context.Context) string {
	v, _ := ctx.Value(contextKeySubjectID{}).(string)
	return v
}

// WithAuthenticatedSubject injects a subject ID directly, for handler tests
// that bypass the HTTP auth chain.
func WithAuthenticatedSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, contextKeySubjectID{}, subjectID)
}

// RequireUploadAuth guards mutating routes: a valid Bearer token with upload
// scope must be presented, and its subject binding lands in the context for
// handlers to enforce against the payload.
func RequireUploadAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
					"path", r.URL.Path,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"path", r.URL.Path,
					"error", err,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, contextKeySubjectID{}, claims.SubjectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
