// Package cases persists verification cases, in memory or in PostgreSQL.
package cases

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
	"veridoc/pkg/platform/sentinel"
)

type caseKey struct {
	subject uuid.UUID
	docType id.DocumentType
	epoch   int
}

// InMemory is the development and unit-test case store. All reads and writes
// copy, so callers never share state with the store.
type InMemory struct {
	mu       sync.RWMutex
	cases    map[caseKey]*models.VerificationCase
	rejected []models.RejectedArtifact
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[caseKey]*models.VerificationCase)}
}

func (s *InMemory) CreateIfAbsent(ctx context.Context, c *models.VerificationCase) (*models.VerificationCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := caseKey{uuid.UUID(c.SubjectID), c.DocumentType, c.OpenEpoch}
	if existing, ok := s.cases[key]; ok {
		return cloneCase(existing), nil
	}
	s.cases[key] = cloneCase(c)
	return cloneCase(c), nil
}

func (s *InMemory) GetOpenCase(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key, c := range s.cases {
		if key.subject == uuid.UUID(subjectID) && key.docType == docType && !c.State.IsTerminal() {
			return cloneCase(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) GetLatestCase(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.VerificationCase
	for key, c := range s.cases {
		if key.subject != uuid.UUID(subjectID) || key.docType != docType {
			continue
		}
		if latest == nil || c.OpenEpoch > latest.OpenEpoch {
			latest = c
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneCase(latest), nil
}

func (s *InMemory) UpdateCase(ctx context.Context, c *models.VerificationCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := caseKey{uuid.UUID(c.SubjectID), c.DocumentType, c.OpenEpoch}
	if _, ok := s.cases[key]; !ok {
		return sentinel.ErrNotFound
	}
	s.cases[key] = cloneCase(c)
	return nil
}

func (s *InMemory) CountTerminalCases(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key, c := range s.cases {
		if key.subject == uuid.UUID(subjectID) && key.docType == docType && c.State.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) RecordRejectedArtifact(ctx context.Context, rec models.RejectedArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejected = append(s.rejected, rec)
	return nil
}

// RejectedArtifacts returns a copy of the audit log. Test helper.
func (s *InMemory) RejectedArtifacts() []models.RejectedArtifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RejectedArtifact, len(s.rejected))
	copy(out, s.rejected)
	return out
}

func cloneCase(c *models.VerificationCase) *models.VerificationCase {
	out := *c

	out.CanonicalFields = make(map[string]string, len(c.CanonicalFields))
	for k, v := range c.CanonicalFields {
		out.CanonicalFields[k] = v
	}

	out.Artifacts = make(map[id.ArtifactKind]models.ArtifactRecord, len(c.Artifacts))
	for kind, rec := range c.Artifacts {
		out.Artifacts[kind] = cloneArtifactRecord(rec)
	}

	if c.Liveness != nil {
		liveness := *c.Liveness
		liveness.Outcome.Errors = append([]string(nil), c.Liveness.Outcome.Errors...)
		liveness.Outcome.EvidenceRefs = append([]string(nil), c.Liveness.Outcome.EvidenceRefs...)
		out.Liveness = &liveness
	}
	if c.CompletedAt != nil {
		completed := *c.CompletedAt
		out.CompletedAt = &completed
	}
	return &out
}

func cloneArtifactRecord(rec models.ArtifactRecord) models.ArtifactRecord {
	out := rec
	if rec.Extraction != nil {
		extraction := *rec.Extraction
		extraction.Fields = make(map[string]string, len(rec.Extraction.Fields))
		for k, v := range rec.Extraction.Fields {
			extraction.Fields[k] = v
		}
		extraction.ConfidencePerField = make(map[string]float64, len(rec.Extraction.ConfidencePerField))
		for k, v := range rec.Extraction.ConfidencePerField {
			extraction.ConfidencePerField[k] = v
		}
		extraction.GivenNames = append([]string(nil), rec.Extraction.GivenNames...)
		extraction.ErrorMessages = append([]string(nil), rec.Extraction.ErrorMessages...)
		out.Extraction = &extraction
	}
	out.Validation.MissingFields = append([]string(nil), rec.Validation.MissingFields...)
	return out
}
