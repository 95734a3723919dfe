package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"veridoc/internal/jwttoken"
	id "veridoc/pkg/domain"
	"veridoc/pkg/requestcontext"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatalf("expected a request ID in context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("expected response header to echo request ID %q, got %q", seen, rec.Header().Get("X-Request-ID"))
	}
}

func TestRequestIDHonorsIncomingHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "upstream-id" {
		t.Fatalf("expected upstream request ID to be preserved, got %q", seen)
	}
}

func TestRequestTimePinsClock(t *testing.T) {
	var first, second time.Time
	h := RequestTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		time.Sleep(5 * time.Millisecond)
		second = requestcontext.Now(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !first.Equal(second) {
		t.Fatalf("expected request-scoped time to be stable, got %v then %v", first, second)
	}
}

func TestRecoveryConvertsPanics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestContentTypeJSONRejectsOtherTypes(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "application/xml")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for xml body, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Content-Type", "application/xml")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected GET to pass regardless of content type, got %d", rec.Code)
	}
}

func TestDeviceNameFromUserAgent(t *testing.T) {
	const chromeOnMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	name := DeviceNameFromUserAgent(chromeOnMac)
	if !strings.Contains(name, "Chrome") {
		t.Fatalf("expected browser name in %q", name)
	}
	if !strings.Contains(name, "on ") {
		t.Fatalf("expected OS suffix in %q", name)
	}

	raw := DeviceNameFromUserAgent("veridoc-sdk/1.2")
	if raw == "" {
		t.Fatalf("expected a fallback device name for unparseable agents")
	}
}

func TestClientMetadataEntersContext(t *testing.T) {
	var device, ip string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device = requestcontext.DeviceName(r.Context())
		ip = requestcontext.ClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if device == "" {
		t.Fatalf("expected device name from User-Agent")
	}
	if ip != "203.0.113.7" {
		t.Fatalf("expected first X-Forwarded-For hop, got %q", ip)
	}
}

func TestRequireUploadAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	tokens := jwttoken.NewService("test-signing-key", "veridoc", "veridoc-pipeline")
	subjectID := id.SubjectID(uuid.New())

	var authenticated string
	h := RequireUploadAuth(tokens, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticated = AuthenticatedSubject(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/artifacts", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/artifacts", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}

	token, err := tokens.GenerateUploadToken(subjectID, time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/artifacts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
	if authenticated != subjectID.String() {
		t.Fatalf("expected authenticated subject %s, got %q", subjectID, authenticated)
	}
}
