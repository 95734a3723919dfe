// Package worker bounds how many pipeline invocations run at once. Each
// event is processed by an independent invocation; the semaphore caps the
// concurrent OCR and store load without serializing unrelated events.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"veridoc/internal/verification/models"
	dErrors "veridoc/pkg/domain-errors"
)

// Pipeline is the slice of the verification service the dispatcher fronts.
type Pipeline interface {
	ProcessArtifact(ctx context.Context, artifact models.UploadedArtifact) (*models.VerificationCase, error)
	ProcessLiveness(ctx context.Context, outcome models.LivenessOutcome) (*models.VerificationCase, error)
}

type Dispatcher struct {
	pipeline Pipeline
	sem      *semaphore.Weighted
	logger   *slog.Logger
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func New(pipeline Pipeline, concurrency int64, opts ...Option) (*Dispatcher, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	d := &Dispatcher{
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(concurrency),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ProcessArtifact runs one artifact invocation, blocking while the
// concurrency budget is exhausted. Cancellation while waiting surfaces as
// unavailability so the caller's redelivery retries later.
func (d *Dispatcher) ProcessArtifact(ctx context.Context, artifact models.UploadedArtifact) (*models.VerificationCase, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "pipeline at capacity")
	}
	defer d.sem.Release(1)

	return d.pipeline.ProcessArtifact(ctx, artifact)
}

// ProcessLiveness runs one liveness invocation under the same budget.
func (d *Dispatcher) ProcessLiveness(ctx context.Context, outcome models.LivenessOutcome) (*models.VerificationCase, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "pipeline at capacity")
	}
	defer d.sem.Release(1)

	return d.pipeline.ProcessLiveness(ctx, outcome)
}
