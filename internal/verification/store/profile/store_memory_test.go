package profile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
	"veridoc/pkg/platform/sentinel"
)

type ProfileStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestProfileStoreSuite(t *testing.T) {
	suite.Run(t, new(ProfileStoreSuite))
}

func (s *ProfileStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *ProfileStoreSuite) entry(value string, caseID id.CaseID, at time.Time) models.ProfileEntry {
	return models.ProfileEntry{
		Value:      value,
		Origin:     id.DocumentTypeNewID,
		CaseID:     caseID,
		RecordedAt: at,
	}
}

func (s *ProfileStoreSuite) TestAppendOnlyHistory() {
	subjectID := id.SubjectID(uuid.New())
	now := time.Now()

	s.Run("unknown subject yields ErrNotFound", func() {
		_, err := s.store.GetProfile(s.ctx, subjectID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("entries accumulate in order", func() {
		first := s.entry("MARTIN", id.NewCaseID(), now)
		second := s.entry("MARTEN", id.NewCaseID(), now.Add(time.Hour))

		s.Require().NoError(s.store.AppendProfileField(s.ctx, subjectID, models.FieldSurname, first))
		s.Require().NoError(s.store.AppendProfileField(s.ctx, subjectID, models.FieldSurname, second))

		profile, err := s.store.GetProfile(s.ctx, subjectID)
		s.Require().NoError(err)
		s.Require().Len(profile.Fields[models.FieldSurname], 2)
		s.Equal("MARTIN", profile.Fields[models.FieldSurname][0].Value)
		s.Equal("MARTEN", profile.Fields[models.FieldSurname][1].Value)
		s.Equal(now.Add(time.Hour), profile.UpdatedAt)
	})
}

func (s *ProfileStoreSuite) TestIdempotentProvenance() {
	subjectID := id.SubjectID(uuid.New())
	caseID := id.NewCaseID()
	entry := s.entry("MARTIN", caseID, time.Now())

	s.Run("same case appends once", func() {
		s.Require().NoError(s.store.AppendProfileField(s.ctx, subjectID, models.FieldSurname, entry))
		s.Require().NoError(s.store.AppendProfileField(s.ctx, subjectID, models.FieldSurname, entry))

		profile, err := s.store.GetProfile(s.ctx, subjectID)
		s.Require().NoError(err)
		s.Len(profile.Fields[models.FieldSurname], 1)
	})

	s.Run("same case can still feed other attributes", func() {
		birth := s.entry("1990-07-13", caseID, time.Now())
		s.Require().NoError(s.store.AppendProfileField(s.ctx, subjectID, models.FieldBirthDate, birth))

		profile, err := s.store.GetProfile(s.ctx, subjectID)
		s.Require().NoError(err)
		s.Len(profile.Fields[models.FieldBirthDate], 1)
	})
}
