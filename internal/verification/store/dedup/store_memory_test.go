package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DedupStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestDedupStoreSuite(t *testing.T) {
	suite.Run(t, new(DedupStoreSuite))
}

func (s *DedupStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Now()
	s.store.now = func() time.Time { return s.now }
}

func (s *DedupStoreSuite) TestFirstSeenSemantics() {
	s.Run("first mark returns true, redelivery false", func() {
		first, err := s.store.MarkProcessed(s.ctx, "artifact:abc", time.Hour)
		s.Require().NoError(err)
		s.True(first)

		again, err := s.store.MarkProcessed(s.ctx, "artifact:abc", time.Hour)
		s.Require().NoError(err)
		s.False(again)
	})

	s.Run("distinct keys are independent", func() {
		first, err := s.store.MarkProcessed(s.ctx, "artifact:xyz", time.Hour)
		s.Require().NoError(err)
		s.True(first)
	})
}

func (s *DedupStoreSuite) TestExpiry() {
	first, err := s.store.MarkProcessed(s.ctx, "artifact:ttl", time.Minute)
	s.Require().NoError(err)
	s.True(first)

	s.now = s.now.Add(2 * time.Minute)

	again, err := s.store.MarkProcessed(s.ctx, "artifact:ttl", time.Minute)
	s.Require().NoError(err)
	s.True(again, "expired keys are first-seen again")
}

func (s *DedupStoreSuite) TestClearProcessed() {
	s.Run("cleared keys are first-seen again", func() {
		first, err := s.store.MarkProcessed(s.ctx, "artifact:retry", time.Hour)
		s.Require().NoError(err)
		s.True(first)

		s.Require().NoError(s.store.ClearProcessed(s.ctx, "artifact:retry"))

		again, err := s.store.MarkProcessed(s.ctx, "artifact:retry", time.Hour)
		s.Require().NoError(err)
		s.True(again)
	})

	s.Run("clearing an unknown key is a no-op", func() {
		s.NoError(s.store.ClearProcessed(s.ctx, "artifact:unknown"))
	})
}
