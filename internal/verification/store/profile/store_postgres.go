package profile

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"veridoc/internal/verification/models"
	id "veridoc/pkg/domain"
	"veridoc/pkg/platform/sentinel"
)

// Schema is the DDL for the profile entry table. The unique key makes
// AppendProfileField idempotent per (subject, attribute, case).
const Schema = `
CREATE TABLE IF NOT EXISTS subject_profile_entries (
	subject_id  UUID NOT NULL,
	attribute   TEXT NOT NULL,
	value       TEXT NOT NULL,
	origin      TEXT NOT NULL,
	case_id     UUID NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	UNIQUE (subject_id, attribute, case_id)
);

CREATE INDEX IF NOT EXISTS subject_profile_entries_subject_idx
	ON subject_profile_entries (subject_id, attribute, recorded_at);
`

// PostgresStore persists profile entries in PostgreSQL. Entries are rows, one
// per (subject, attribute, case); histories are rebuilt on read ordered by
// recording time.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AppendProfileField(ctx context.Context, subjectID id.SubjectID, attribute string, entry models.ProfileEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subject_profile_entries (subject_id, attribute, value, origin, case_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_id, attribute, case_id) DO NOTHING
	`, uuid.UUID(subjectID), attribute, entry.Value, entry.Origin.String(), uuid.UUID(entry.CaseID), entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("append profile field: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, subjectID id.SubjectID) (*models.SubjectProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attribute, value, origin, case_id, recorded_at
		FROM subject_profile_entries
		WHERE subject_id = $1
		ORDER BY recorded_at, case_id
	`, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	defer rows.Close()

	profile := &models.SubjectProfile{
		SubjectID: subjectID,
		Fields:    make(map[string][]models.ProfileEntry),
	}
	for rows.Next() {
		var (
			attribute string
			entry     models.ProfileEntry
			origin    string
			caseID    uuid.UUID
		)
		if err := rows.Scan(&attribute, &entry.Value, &origin, &caseID, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan profile entry: %w", err)
		}
		entry.Origin = id.DocumentType(origin)
		entry.CaseID = id.CaseID(caseID)

		profile.Fields[attribute] = append(profile.Fields[attribute], entry)
		if entry.RecordedAt.After(profile.UpdatedAt) {
			profile.UpdatedAt = entry.RecordedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile entries: %w", err)
	}
	if len(profile.Fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return profile, nil
}
