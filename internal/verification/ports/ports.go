// Package ports defines shared interfaces for the verification module.
// Interfaces are placed here when consumed by multiple services to avoid
// duplication.
package ports

import (
	"context"
	"time"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
)

// CaseStore persists verification cases. A case is keyed by
// (subject, document type, open epoch); at most one non-terminal case exists
// per (subject, document type) pair.
type CaseStore interface {
	// CreateIfAbsent atomically inserts the case unless one with the same
	// (subject, document type, epoch) key already exists. It returns the
	// stored case: the given one on a win, the concurrent winner otherwise.
	CreateIfAbsent(ctx context.Context, c *models.VerificationCase) (*models.VerificationCase, error)

	// GetOpenCase returns the non-terminal case for the pair, or
	// sentinel.ErrNotFound when none is open.
	GetOpenCase(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error)

	// GetLatestCase returns the newest case regardless of state, or
	// sentinel.ErrNotFound. Used by status queries.
	GetLatestCase(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error)

	// UpdateCase replaces the stored case record.
	UpdateCase(ctx context.Context, c *models.VerificationCase) error

	// CountTerminalCases returns how many cases for the pair have reached a
	// terminal state. This count is the open epoch of the next case.
	CountTerminalCases(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (int, error)

	// RecordRejectedArtifact appends an audit entry for an artifact that
	// mutated no case.
	RecordRejectedArtifact(ctx context.Context, rec models.RejectedArtifact) error
}

// ProfileStore persists append-only subject profiles.
type ProfileStore interface {
	// AppendProfileField appends one history entry for an attribute. Entries
	// are idempotent per (attribute, case): a second append with the same
	// provenance is a no-op.
	AppendProfileField(ctx context.Context, subjectID id.SubjectID, attribute string, entry models.ProfileEntry) error

	// GetProfile returns the subject's profile, or sentinel.ErrNotFound when
	// the subject has no recorded attributes.
	GetProfile(ctx context.Context, subjectID id.SubjectID) (*models.SubjectProfile, error)
}

// DedupStore remembers processed delivery keys so redelivered events are
// dropped at the boundary. First-seen keys return true.
type DedupStore interface {
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ClearProcessed forgets a key. Called when a marked delivery fails
	// before any durable effect, so the boundary's redelivery is processed
	// instead of dropped.
	ClearProcessed(ctx context.Context, key string) error
}

// Emitter publishes pipeline observability events.
type Emitter interface {
	EmitArtifactResult(ctx context.Context, result models.ArtifactResult) error
	EmitCaseSummary(ctx context.Context, summary models.CaseSummary) error
}
