package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
)

type DocscanSuite struct {
	suite.Suite
	ctx context.Context
}

func TestDocscanSuite(t *testing.T) {
	suite.Run(t, new(DocscanSuite))
}

func (s *DocscanSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *DocscanSuite) artifact(kind id.ArtifactKind) models.UploadedArtifact {
	return models.UploadedArtifact{
		ArtifactID:   id.NewArtifactID(),
		DocumentType: id.DocumentTypeNewID,
		Kind:         kind,
		ContentRef:   "blob://artifacts/a.jpg",
	}
}

func (s *DocscanSuite) TestConstructor() {
	s.Run("empty endpoint returns error", func() {
		_, err := NewDocscan("", "key", time.Second)
		s.Require().Error(err)
	})
}

func (s *DocscanSuite) TestFieldMapping() {
	s.Run("maps provider names onto canonical vocabulary", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("Token key", r.Header.Get("Authorization"))

			var req docscanRequest
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&req))
			s.Equal("new_id", req.DocumentType)
			s.Equal("front", req.Side)

			_ = json.NewEncoder(w).Encode(map[string]any{
				"confidence": 0.91,
				"prediction": map[string]any{
					"surname":     map[string]any{"value": "MARTIN", "confidence": 0.99},
					"given_names": []map[string]any{{"value": "Marie", "confidence": 0.97}, {"value": "Claire", "confidence": 0.9}},
					"birth_date":  map[string]any{"value": "1990-07-13", "confidence": 0.95},
					"gender":      map[string]any{"value": "F", "confidence": 0.8},
					"authority":   map[string]any{"value": "", "confidence": 0.1}, // empty values dropped
				},
			})
		}))
		defer srv.Close()

		provider, err := NewDocscan(srv.URL, "key", time.Second)
		s.Require().NoError(err)

		result := provider.Extract(s.ctx, s.artifact(id.ArtifactKindFront))
		s.Require().NotNil(result)
		s.True(result.Succeeded)
		s.Equal("docscan", result.ProviderID)
		s.Equal("MARTIN", result.Fields[models.FieldSurname])
		s.Equal([]string{"Marie", "Claire"}, result.GivenNames)
		s.Equal("1990-07-13", result.Fields[models.FieldBirthDate])
		s.Equal("F", result.Fields[models.FieldSex])
		s.NotContains(result.Fields, models.FieldAuthority)
		s.InDelta(0.91, result.OverallConfidence, 1e-9)
		s.InDelta(0.99, result.ConfidencePerField[models.FieldSurname], 1e-9)
	})
}

func (s *DocscanSuite) TestFailureModes() {
	s.Run("non-200 yields failed result, not error", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		provider, err := NewDocscan(srv.URL, "", time.Second)
		s.Require().NoError(err)

		result := provider.Extract(s.ctx, s.artifact(id.ArtifactKindFront))
		s.Require().NotNil(result)
		s.False(result.Succeeded)
		s.NotEmpty(result.ErrorMessages)
	})

	s.Run("unreachable endpoint yields failed result", func() {
		provider, err := NewDocscan("http://127.0.0.1:1", "", 200*time.Millisecond)
		s.Require().NoError(err)

		result := provider.Extract(s.ctx, s.artifact(id.ArtifactKindBack))
		s.Require().NotNil(result)
		s.False(result.Succeeded)
	})

	s.Run("malformed body yields failed result", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		provider, err := NewDocscan(srv.URL, "", time.Second)
		s.Require().NoError(err)

		result := provider.Extract(s.ctx, s.artifact(id.ArtifactKindFront))
		s.Require().NotNil(result)
		s.False(result.Succeeded)
	})
}
