package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veridoc/internal/verification/models"
	dErrors "veridoc/pkg/domain-errors"
)

// gaugePipeline records the peak number of concurrent invocations.
type gaugePipeline struct {
	current atomic.Int32
	peak    atomic.Int32
	hold    time.Duration
}

func (p *gaugePipeline) observe() {
	cur := p.current.Add(1)
	for {
		peak := p.peak.Load()
		if cur <= peak || p.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	time.Sleep(p.hold)
	p.current.Add(-1)
}

func (p *gaugePipeline) ProcessArtifact(ctx context.Context, artifact models.UploadedArtifact) (*models.VerificationCase, error) {
	p.observe()
	return nil, nil
}

func (p *gaugePipeline) ProcessLiveness(ctx context.Context, outcome models.LivenessOutcome) (*models.VerificationCase, error) {
	p.observe()
	return nil, nil
}

type DispatcherSuite struct {
	suite.Suite
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) TestConstructor() {
	s.Run("nil pipeline returns error", func() {
		_, err := New(nil, 4)
		s.Require().Error(err)
	})

	s.Run("non-positive concurrency returns error", func() {
		_, err := New(&gaugePipeline{}, 0)
		s.Require().Error(err)
	})
}

func (s *DispatcherSuite) TestConcurrencyBound() {
	pipeline := &gaugePipeline{hold: 20 * time.Millisecond}
	dispatcher, err := New(pipeline, 3)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dispatcher.ProcessArtifact(context.Background(), models.UploadedArtifact{})
			s.Require().NoError(err)
		}()
	}
	wg.Wait()

	s.LessOrEqual(pipeline.peak.Load(), int32(3), "no more than the budget may run at once")
}

func (s *DispatcherSuite) TestCancelledWaitIsUnavailable() {
	pipeline := &gaugePipeline{hold: 200 * time.Millisecond}
	dispatcher, err := New(pipeline, 1)
	s.Require().NoError(err)

	// Occupy the only slot.
	go func() {
		_, _ = dispatcher.ProcessArtifact(context.Background(), models.UploadedArtifact{})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = dispatcher.ProcessLiveness(ctx, models.LivenessOutcome{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
