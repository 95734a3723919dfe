// Package profile persists append-only subject profiles.
package profile

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
	"veridoc/pkg/platform/sentinel"
)

// InMemory is the development and unit-test profile store.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*models.SubjectProfile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[uuid.UUID]*models.SubjectProfile)}
}

func (s *InMemory) AppendProfileField(ctx context.Context, subjectID id.SubjectID, attribute string, entry models.ProfileEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[uuid.UUID(subjectID)]
	if !ok {
		profile = &models.SubjectProfile{
			SubjectID: subjectID,
			Fields:    make(map[string][]models.ProfileEntry),
		}
		s.profiles[uuid.UUID(subjectID)] = profile
	}

	// Idempotent per (attribute, case): a redelivered completion must not
	// create a second entry.
	for _, existing := range profile.Fields[attribute] {
		if existing.CaseID == entry.CaseID {
			return nil
		}
	}

	profile.Fields[attribute] = append(profile.Fields[attribute], entry)
	if entry.RecordedAt.After(profile.UpdatedAt) {
		profile.UpdatedAt = entry.RecordedAt
	}
	return nil
}

func (s *InMemory) GetProfile(ctx context.Context, subjectID id.SubjectID) (*models.SubjectProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[uuid.UUID(subjectID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	out := &models.SubjectProfile{
		SubjectID: profile.SubjectID,
		Fields:    make(map[string][]models.ProfileEntry, len(profile.Fields)),
		UpdatedAt: profile.UpdatedAt,
	}
	for attribute, entries := range profile.Fields {
		out.Fields[attribute] = append([]models.ProfileEntry(nil), entries...)
	}
	return out, nil
}
