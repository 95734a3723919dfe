package cases

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
	"veridoc/pkg/platform/sentinel"
)

// Schema is the DDL for the case tables. Applied by deployment tooling and by
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_cases (
	case_id          UUID PRIMARY KEY,
	subject_id       UUID NOT NULL,
	document_type    TEXT NOT NULL,
	open_epoch       INT  NOT NULL,
	state            TEXT NOT NULL,
	canonical_fields JSONB NOT NULL,
	artifacts        JSONB NOT NULL,
	liveness         JSONB,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	completed_at     TIMESTAMPTZ,
	UNIQUE (subject_id, document_type, open_epoch)
);

CREATE TABLE IF NOT EXISTS rejected_artifacts (
	artifact_id   UUID NOT NULL,
	subject_id    UUID NOT NULL,
	document_type TEXT NOT NULL,
	kind          TEXT NOT NULL,
	reason        TEXT NOT NULL,
	errors        TEXT[] NOT NULL DEFAULT '{}',
	processed_at  TIMESTAMPTZ NOT NULL
);
`

// PostgresStore persists verification cases in PostgreSQL. Atomic case
// creation leans on the unique (subject, document type, epoch) key with
// ON CONFLICT DO NOTHING, so concurrent creators converge on one row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const caseColumns = `case_id, subject_id, document_type, open_epoch, state,
	canonical_fields, artifacts, liveness, created_at, updated_at, completed_at`

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, c *models.VerificationCase) (*models.VerificationCase, error) {
	fields, artifacts, liveness, err := marshalCaseJSON(c)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (subject_id, document_type, open_epoch) DO NOTHING
	`,
		uuid.UUID(c.CaseID), uuid.UUID(c.SubjectID), c.DocumentType.String(), c.OpenEpoch, string(c.State),
		fields, artifacts, liveness, c.CreatedAt, c.UpdatedAt, c.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return cloneCase(c), nil
	}

	// Lost the race; return the winner.
	row := s.db.QueryRowContext(ctx, `
		SELECT `+caseColumns+`
		FROM verification_cases
		WHERE subject_id = $1 AND document_type = $2 AND open_epoch = $3
	`, uuid.UUID(c.SubjectID), c.DocumentType.String(), c.OpenEpoch)
	winner, err := scanCase(row)
	if err != nil {
		return nil, fmt.Errorf("read winning case: %w", err)
	}
	return winner, nil
}

func (s *PostgresStore) GetOpenCase(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+caseColumns+`
		FROM verification_cases
		WHERE subject_id = $1 AND document_type = $2 AND state NOT IN ($3, $4)
		ORDER BY open_epoch DESC
		LIMIT 1
	`, uuid.UUID(subjectID), docType.String(), string(models.StateCompleted), string(models.StateRejected))

	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get open case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetLatestCase(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (*models.VerificationCase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+caseColumns+`
		FROM verification_cases
		WHERE subject_id = $1 AND document_type = $2
		ORDER BY open_epoch DESC
		LIMIT 1
	`, uuid.UUID(subjectID), docType.String())

	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateCase(ctx context.Context, c *models.VerificationCase) error {
	fields, artifacts, liveness, err := marshalCaseJSON(c)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE verification_cases
		SET state = $2, canonical_fields = $3, artifacts = $4, liveness = $5,
		    updated_at = $6, completed_at = $7
		WHERE case_id = $1
	`, uuid.UUID(c.CaseID), string(c.State), fields, artifacts, liveness, c.UpdatedAt, c.CompletedAt)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountTerminalCases(ctx context.Context, subjectID id.SubjectID, docType id.DocumentType) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM verification_cases
		WHERE subject_id = $1 AND document_type = $2 AND state IN ($3, $4)
	`, uuid.UUID(subjectID), docType.String(), string(models.StateCompleted), string(models.StateRejected)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count terminal cases: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) RecordRejectedArtifact(ctx context.Context, rec models.RejectedArtifact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rejected_artifacts (artifact_id, subject_id, document_type, kind, reason, errors, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(rec.ArtifactID), uuid.UUID(rec.SubjectID), rec.DocumentType.String(), rec.Kind.String(),
		rec.Reason, pq.Array(rec.Errors), rec.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record rejected artifact: %w", err)
	}
	return nil
}

func marshalCaseJSON(c *models.VerificationCase) (fields, artifacts []byte, liveness any, err error) {
	fields, err = json.Marshal(c.CanonicalFields)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal canonical fields: %w", err)
	}
	artifacts, err = json.Marshal(c.Artifacts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal artifacts: %w", err)
	}
	if c.Liveness != nil {
		raw, merr := json.Marshal(c.Liveness)
		if merr != nil {
			return nil, nil, nil, fmt.Errorf("marshal liveness: %w", merr)
		}
		liveness = raw
	}
	return fields, artifacts, liveness, nil
}

func scanCase(row *sql.Row) (*models.VerificationCase, error) {
	var (
		c         models.VerificationCase
		caseID    uuid.UUID
		subject   uuid.UUID
		docType   string
		state     string
		fields    []byte
		artifacts []byte
		liveness  []byte
	)
	err := row.Scan(&caseID, &subject, &docType, &c.OpenEpoch, &state,
		&fields, &artifacts, &liveness, &c.CreatedAt, &c.UpdatedAt, &c.CompletedAt)
	if err != nil {
		return nil, err
	}

	c.CaseID = id.CaseID(caseID)
	c.SubjectID = id.SubjectID(subject)
	c.DocumentType = id.DocumentType(docType)
	c.State = models.CaseState(state)

	if err := json.Unmarshal(fields, &c.CanonicalFields); err != nil {
		return nil, fmt.Errorf("unmarshal canonical fields: %w", err)
	}
	if err := json.Unmarshal(artifacts, &c.Artifacts); err != nil {
		return nil, fmt.Errorf("unmarshal artifacts: %w", err)
	}
	if len(liveness) > 0 {
		c.Liveness = &models.LivenessRecord{}
		if err := json.Unmarshal(liveness, c.Liveness); err != nil {
			return nil, fmt.Errorf("unmarshal liveness: %w", err)
		}
	}
	return &c, nil
}
